package mime

import (
	"path"
	"strings"
)

// MIME types for files served out of a project.
var mimeTypes = map[string][]string{
	"application/javascript;": {"js", "mjs", "cjs"},
	"application/json;":       {"json", "map"},
	"application/jsonc;":      {"jsonc"},
	"application/pdf":         {"pdf"},
	"application/wasm":        {"wasm"},
	"application/xml;":        {"xml"},
	"application/zip":         {"zip"},
	"audio/mpeg":              {"mp3"},
	"audio/ogg":               {"ogg", "oga"},
	"audio/wav":               {"wav"},
	"font/otf":                {"otf"},
	"font/ttf":                {"ttf"},
	"font/woff":               {"woff"},
	"font/woff2":              {"woff2"},
	"image/avif":              {"avif"},
	"image/gif":               {"gif"},
	"image/jpeg":              {"jpg", "jpeg"},
	"image/png":               {"png"},
	"image/svg+xml;":          {"svg"},
	"image/webp":              {"webp"},
	"image/x-icon":            {"ico"},
	"text/css":                {"css"},
	"text/csv":                {"csv"},
	"text/html":               {"html", "htm"},
	"text/jsx":                {"jsx"},
	"text/markdown":           {"md", "markdown"},
	"text/plain":              {"txt"},
	"text/tsx":                {"tsx"},
	"text/typescript":         {"ts", "mts", "cts"},
	"text/yaml":               {"yaml", "yml"},
	"video/mp4":               {"mp4"},
	"video/webm":              {"webm"},
}

var mimeTypesMap = map[string]string{}

func init() {
	for k, v := range mimeTypes {
		if strings.HasSuffix(k, ";") || strings.HasPrefix(k, "text/") {
			k = strings.TrimSuffix(k, ";") + "; charset=utf-8"
		}
		for _, ext := range v {
			mimeTypesMap["."+ext] = k
		}
	}
}

// GetContentType returns the content type for the given filename,
// or an empty string if the extension is unknown.
func GetContentType(filename string) string {
	return mimeTypesMap[path.Ext(filename)]
}

// IsBinaryExt reports whether the extension belongs to an image, font,
// audio/video or other binary asset that is embedded as a data URL at
// bundle time.
func IsBinaryExt(extname string) bool {
	switch extname {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".avif", ".ico", ".svg",
		".woff", ".woff2", ".ttf", ".otf",
		".mp3", ".ogg", ".oga", ".wav", ".mp4", ".webm",
		".wasm", ".pdf", ".zip":
		return true
	}
	return false
}
