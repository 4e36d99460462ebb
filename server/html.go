package server

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLOptions parameterizes the markup processor.
type HTMLOptions struct {
	// BasePrefix is the project-scoped base path, e.g. "/p/my-project".
	BasePrefix string
	// NotifyURL is the socket endpoint the injected reload client connects
	// to, e.g. "/p/my-project/ws".
	NotifyURL string
}

// ProcessHTML streams served HTML through a tag-level rewrite: same-origin
// script/stylesheet URLs get the project base prefix, and two script blocks
// are injected before the closing head tag (falling back to the start of
// body, then the end of the document): the request-rewriting shim and the
// reload client. Rewriting rules are attribute-local; the document is never
// buffered as a whole.
func ProcessHTML(r io.Reader, w io.Writer, options HTMLOptions) error {
	tokenizer := html.NewTokenizer(r)
	injected := false
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			if err := tokenizer.Err(); err != io.EOF {
				return err
			}
			break
		}
		switch tt {
		case html.EndTagToken:
			tagName, _ := tokenizer.TagName()
			if !injected && bytes.Equal(tagName, []byte("head")) {
				writeInjectedScripts(w, options)
				injected = true
			}
			w.Write(tokenizer.Raw())
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if !injected && token.DataAtom == atom.Body {
				writeInjectedScripts(w, options)
				injected = true
			}
			switch token.DataAtom {
			case atom.Script:
				rewriteTagAttr(&token, "src", options.BasePrefix)
			case atom.Link:
				if tagAttr(&token, "rel") == "stylesheet" {
					rewriteTagAttr(&token, "href", options.BasePrefix)
				}
			}
			w.Write([]byte(token.String()))
		default:
			w.Write(tokenizer.Raw())
		}
	}
	if !injected {
		writeInjectedScripts(w, options)
	}
	return nil
}

func tagAttr(token *html.Token, key string) string {
	for _, attr := range token.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// rewriteTagAttr prefixes a same-origin URL attribute with the project base
// path. Absolute http(s) and protocol-relative URLs stay untouched.
func rewriteTagAttr(token *html.Token, key string, basePrefix string) {
	for i, attr := range token.Attr {
		if attr.Key != key || attr.Val == "" {
			continue
		}
		token.Attr[i].Val = rewriteAssetURL(attr.Val, basePrefix)
	}
}

func rewriteAssetURL(val string, basePrefix string) string {
	if basePrefix == "" || isHttpSpecifier(val) || strings.HasPrefix(val, "//") {
		return val
	}
	prefix := strings.TrimSuffix(basePrefix, "/")
	if strings.HasPrefix(val, prefix+"/") {
		return val
	}
	if strings.HasPrefix(val, "/") {
		return prefix + val
	}
	return val
}

func writeInjectedScripts(w io.Writer, options HTMLOptions) {
	basePrefix := strings.TrimSuffix(options.BasePrefix, "/")
	for _, name := range []string{"assets/api-shim.js", "assets/reload-client.js"} {
		data, err := assetsFS.ReadFile(name)
		if err != nil {
			continue
		}
		js := strings.ReplaceAll(string(data), "__BASE_PREFIX__", basePrefix)
		js = strings.ReplaceAll(js, "__NOTIFY_URL__", options.NotifyURL)
		fmt.Fprintf(w, "<script type=\"module\">%s</script>", js)
	}
}
