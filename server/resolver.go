package server

import (
	"path"
	"strings"
)

// ResolvedImport is the result of resolving one import specifier.
type ResolvedImport struct {
	Original string
	Resolved string
	Bare     bool
}

// FileSet answers existence checks during module resolution. The serve path
// backs it with the filesystem collaborator; the bundler backs it with an
// in-memory snapshot.
type FileSet interface {
	Exists(path string) bool
}

// MapFileSet is a FileSet over an in-memory snapshot.
type MapFileSet map[string][]byte

func (m MapFileSet) Exists(path string) bool {
	_, ok := m[path]
	return ok
}

// FileSetFunc adapts a function to the FileSet interface.
type FileSetFunc func(path string) bool

func (f FileSetFunc) Exists(path string) bool {
	return f(path)
}

// ResolveImport maps an import specifier written in the file at importer to
// a served absolute path or an external package URL. It is a pure function:
// the same inputs always produce the same output.
//
// Bare specifiers are checked against the alias table first; without a
// matching alias they redirect to the package CDN. Relative and absolute
// specifiers resolve against the importer's directory, then probe the fixed
// extension list and index files. When nothing matches, the normalized path
// is returned as-is so the caller can report "module not found" downstream.
func ResolveImport(specifier string, importer string, files FileSet, aliases *AliasTable, cdnOrigin string) ResolvedImport {
	if isHttpSpecifier(specifier) {
		return ResolvedImport{Original: specifier, Resolved: specifier}
	}
	if !isRelPathSpecifier(specifier) && !isAbsPathSpecifier(specifier) {
		if aliases != nil {
			if target, ok := aliases.Lookup(specifier); ok {
				return ResolvedImport{
					Original: specifier,
					Resolved: probeExtensions(target, files),
				}
			}
		}
		return ResolvedImport{
			Original: specifier,
			Resolved: strings.TrimSuffix(cdnOrigin, "/") + "/" + specifier,
			Bare:     true,
		}
	}

	var base string
	if isAbsPathSpecifier(specifier) {
		base = specifier
	} else {
		base = joinSegments(path.Dir(importer), specifier)
	}
	return ResolvedImport{
		Original: specifier,
		Resolved: probeExtensions(base, files),
	}
}

// joinSegments resolves a relative specifier against a directory by walking
// path segments: "." is skipped, ".." pops the last segment, anything else
// is pushed.
func joinSegments(dir string, specifier string) string {
	stack := []string{}
	for _, seg := range strings.Split(dir, "/") {
		if seg != "" && seg != "." {
			stack = append(stack, seg)
		}
	}
	for _, seg := range strings.Split(specifier, "/") {
		switch seg {
		case "", ".":
			// skip
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, seg)
		}
	}
	return "/" + strings.Join(stack, "/")
}

// probeExtensions finds the first existing entry for a path that may have
// been written without an extension: the literal path first, then each
// extension of the fixed list appended, then "index" files in the same
// order. The literal path is returned untouched when nothing exists.
func probeExtensions(p string, files FileSet) string {
	if files == nil {
		return p
	}
	if files.Exists(p) {
		return p
	}
	for _, ext := range moduleExts {
		if files.Exists(p + ext) {
			return p + ext
		}
	}
	for _, ext := range moduleExts {
		if files.Exists(p + "/index" + ext) {
			return p + "/index" + ext
		}
	}
	return p
}
