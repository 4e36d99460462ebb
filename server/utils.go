package server

import (
	"strings"
)

// isHttpSpecifier returns true if the specifier is a remote URL.
func isHttpSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "https://") || strings.HasPrefix(specifier, "http://")
}

// isRelPathSpecifier returns true if the specifier is a relative path.
func isRelPathSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../") || specifier == "." || specifier == ".."
}

// isAbsPathSpecifier returns true if the specifier is an absolute path.
func isAbsPathSpecifier(specifier string) bool {
	return strings.HasPrefix(specifier, "/")
}

func endsWith(s string, suffixs ...string) bool {
	for _, suffix := range suffixs {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// isSafePath reports whether the path is an absolute project-relative path
// that can not escape the project root: it must start with a single "/",
// contain no ".." segment, no repeated slash, and no NUL byte.
func isSafePath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.Contains(p, "\x00") {
		return false
	}
	if strings.Contains(p, "//") || strings.Contains(p, "\\") {
		return false
	}
	for _, seg := range strings.Split(p[1:], "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}
