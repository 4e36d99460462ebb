package server

// VERSION is the build version of the dev server.
const VERSION = 1

// moduleExts is the fixed extension probe order used by module resolution.
// `.ts` beats `.js` when both exist for the same basename.
var moduleExts = []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".mjs"}

// compiledExts are extensions that go through the esbuild transform before
// being served.
var compiledExts = []string{".ts", ".tsx", ".jsx", ".mts"}

// bundleNamespace is the esbuild plugin namespace for files loaded out of
// the in-memory project snapshot.
const bundleNamespace = "project"
