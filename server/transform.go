package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"

	"github.com/TimoWilhelm/worker-ide-sub005/internal/mime"
)

// TransformResult is the served content for one file.
type TransformResult struct {
	Code        string
	ContentType string
}

// ServeFileOptions parameterizes the per-file pipeline.
type ServeFileOptions struct {
	// BasePrefix is prepended to every locally-resolved import specifier,
	// e.g. "/p/my-project".
	BasePrefix string
	// CdnOrigin is the package CDN bare specifiers redirect to.
	CdnOrigin string
	Files     FileSet
	Aliases   *AliasTable
	SourceMap bool
}

// regImportSpecifier matches the specifier of static `import`/`export ...
// from '...'` clauses, bare `import '...'` statements and dynamic
// `import('...')` calls. It is a text-level scan, not a parse; the bundler
// path uses the engine's own resolution instead.
var regImportSpecifier = regexp.MustCompile(`((?:\bimport\b|\bexport\b)\s*[\w*\s{},$]*\bfrom\s*|\bimport\s*\(\s*|\bimport\s+)(['"])([^'"\n]+)(['"])`)

// ServeFile turns one file's raw content into served content and a content
// type, dispatching on the file extension: compile, rewrite-only,
// wrap-as-module, or pass-through.
func (e *Engine) ServeFile(pathname string, raw []byte, options ServeFileOptions) (TransformResult, error) {
	extname := path.Ext(pathname)
	switch {
	case endsWith(pathname, compiledExts...):
		var sourcemap esbuild.SourceMap
		if options.SourceMap {
			sourcemap = esbuild.SourceMapInline
		}
		out, err := e.Transform(string(raw), pathname, TransformOptions{Sourcemap: sourcemap})
		if err != nil {
			return TransformResult{}, err
		}
		return TransformResult{
			Code:        rewriteImports(out.Code, pathname, options),
			ContentType: "application/javascript; charset=utf-8",
		}, nil
	case extname == ".js" || extname == ".mjs":
		// already valid syntax, only rewrite import specifiers
		return TransformResult{
			Code:        rewriteImports(string(raw), pathname, options),
			ContentType: "application/javascript; charset=utf-8",
		}, nil
	case extname == ".css":
		return TransformResult{
			Code:        wrapCSSModule(pathname, string(raw)),
			ContentType: "application/javascript; charset=utf-8",
		}, nil
	case extname == ".json":
		return TransformResult{
			Code:        "export default " + string(raw) + ";\n",
			ContentType: "application/javascript; charset=utf-8",
		}, nil
	default:
		contentType := mime.GetContentType(pathname)
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		return TransformResult{Code: string(raw), ContentType: contentType}, nil
	}
}

// rewriteImports resolves every import specifier found in code and rewrites
// the matches back-to-front so earlier offsets stay valid while the string
// mutates.
func rewriteImports(code string, importer string, options ServeFileOptions) string {
	matches := regImportSpecifier.FindAllStringSubmatchIndex(code, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		start, end := m[6], m[7]
		specifier := code[start:end]
		resolved := ResolveImport(specifier, importer, options.Files, options.Aliases, options.CdnOrigin)
		target := resolved.Resolved
		if strings.HasPrefix(target, "/") && options.BasePrefix != "" {
			target = strings.TrimSuffix(options.BasePrefix, "/") + target
		}
		if target == specifier {
			continue
		}
		code = code[:start] + target + code[end:]
	}
	return code
}

// wrapCSSModule wraps raw CSS as a module that appends a style element
// tagged with the originating path and re-exports the CSS text as the
// default export, so a style update can find the tag and swap its text.
func wrapCSSModule(pathname string, css string) string {
	encoded, _ := json.Marshal(css)
	var b strings.Builder
	fmt.Fprintf(&b, "const css = %s;\n", encoded)
	fmt.Fprintf(&b, "let el = document.querySelector('style[data-vfs-path=%q]');\n", pathname)
	b.WriteString("if (!el) {\n")
	b.WriteString("  el = document.createElement(\"style\");\n")
	fmt.Fprintf(&b, "  el.setAttribute(\"data-vfs-path\", %q);\n", pathname)
	b.WriteString("  document.head.appendChild(el);\n")
	b.WriteString("}\n")
	b.WriteString("el.textContent = css;\n")
	b.WriteString("export default css;\n")
	return b.String()
}

// wrapBinaryModule wraps binary content as a default-exported data URL.
// Used by the bundler's load hook for image/font assets.
func wrapBinaryModule(pathname string, data []byte) string {
	contentType := mime.GetContentType(pathname)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("export default %q;\n", "data:"+contentType+";base64,"+base64.StdEncoding.EncodeToString(data))
}
