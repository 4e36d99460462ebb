package server

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/jsonc"
)

// AliasTable holds the path aliases parsed from a project's
// tsconfig/jsconfig `compilerOptions.baseUrl` and `compilerOptions.paths`.
type AliasTable struct {
	baseUrl string
	exact   map[string]string
	// wildcard entries, longest prefix first
	wildcards []wildcardAlias
}

type wildcardAlias struct {
	prefix string // alias prefix before the "*"
	target string // target, may contain one "*" substitution
}

type tsConfig struct {
	CompilerOptions struct {
		BaseUrl string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// ParseAliasTable parses tsconfig-style JSONC into an alias table. Returns
// nil when the config declares no paths.
func ParseAliasTable(data []byte) (*AliasTable, error) {
	var cfg tsConfig
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return nil, err
	}
	if len(cfg.CompilerOptions.Paths) == 0 {
		return nil, nil
	}
	table := &AliasTable{
		baseUrl: cfg.CompilerOptions.BaseUrl,
		exact:   map[string]string{},
	}
	for alias, targets := range cfg.CompilerOptions.Paths {
		if len(targets) == 0 {
			continue
		}
		target := targets[0]
		if strings.HasSuffix(alias, "/*") {
			table.wildcards = append(table.wildcards, wildcardAlias{
				prefix: strings.TrimSuffix(alias, "*"),
				target: target,
			})
		} else {
			table.exact[alias] = target
		}
	}
	sort.Slice(table.wildcards, func(i, j int) bool {
		return len(table.wildcards[i].prefix) > len(table.wildcards[j].prefix)
	})
	return table, nil
}

// Lookup maps a bare specifier through the alias table. The returned path is
// absolute and normalized against the baseUrl; extension probing is left to
// the caller.
func (t *AliasTable) Lookup(specifier string) (string, bool) {
	if target, ok := t.exact[specifier]; ok {
		return t.rebase(target), true
	}
	for _, w := range t.wildcards {
		if strings.HasPrefix(specifier, w.prefix) {
			rest := specifier[len(w.prefix):]
			target := w.target
			if strings.Contains(target, "*") {
				target = strings.Replace(target, "*", rest, 1)
			} else {
				target = strings.TrimSuffix(target, "/") + "/" + rest
			}
			return t.rebase(target), true
		}
	}
	return "", false
}

func (t *AliasTable) rebase(target string) string {
	if strings.HasPrefix(target, "/") {
		return path.Clean(target)
	}
	base := t.baseUrl
	if base == "" {
		base = "."
	}
	return path.Clean("/" + path.Join(base, target))
}

// aliasCache caches parsed alias tables per project root. There is no
// automatic invalidation: the write path calls ClearAliasCache whenever a
// tsconfig-equivalent file changes.
var aliasCache, _ = lru.New[string, *AliasTable](256)

// tsConfigFilenames are probed, in order, when loading a project's aliases.
var tsConfigFilenames = []string{"/tsconfig.json", "/jsconfig.json"}

// LoadAliasTable returns the alias table for a project root, loading and
// caching it on first access. A project without a tsconfig yields a nil
// table, which is also cached.
func LoadAliasTable(projectRoot string, readFile func(path string) ([]byte, error)) *AliasTable {
	if table, ok := aliasCache.Get(projectRoot); ok {
		return table
	}
	var table *AliasTable
	for _, name := range tsConfigFilenames {
		data, err := readFile(name)
		if err != nil {
			continue
		}
		if t, err := ParseAliasTable(data); err == nil {
			table = t
			break
		}
	}
	aliasCache.Add(projectRoot, table)
	return table
}

// ClearAliasCache drops the cached alias table for a project root.
func ClearAliasCache(projectRoot string) {
	aliasCache.Remove(projectRoot)
}

// isTSConfigPath reports whether a served path is a tsconfig-equivalent
// file whose change must invalidate the alias cache.
func isTSConfigPath(p string) bool {
	base := path.Base(p)
	return base == "tsconfig.json" || base == "jsconfig.json"
}
