package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	esbuild "github.com/evanw/esbuild/pkg/api"
	"github.com/go-chi/chi/v5"

	"github.com/TimoWilhelm/worker-ide-sub005/internal/mime"
	"github.com/TimoWilhelm/worker-ide-sub005/internal/vfs"
)

var regProjectID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// projectCtx resolves the project route param to its filesystem. An unknown
// or malformed project id is a 400 before any storage access.
func (s *Server) projectCtx(r *http.Request) (projectID string, fs vfs.FS, err error) {
	projectID = chi.URLParam(r, "project")
	if !regProjectID.MatchString(projectID) {
		return "", nil, errors.New("invalid project id")
	}
	fs, err = s.openProject(projectID)
	return
}

// requestPath validates a client-supplied file path before it reaches the
// filesystem or the engine.
func requestPath(p string) (string, bool) {
	if !isSafePath(p) {
		return "", false
	}
	return p, true
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	_, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	files, err := vfs.ListFiles(fs, "/")
	if err != nil && !errors.Is(err, vfs.ErrNotFound) {
		respondError(w, 500, err.Error())
		return
	}
	if files == nil {
		files = []string{}
	}
	respondJSON(w, 200, map[string]any{"files": files})
}

func (s *Server) handleReadFile(w http.ResponseWriter, r *http.Request) {
	_, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	path, ok := requestPath(r.URL.Query().Get("path"))
	if !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	content, err := fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			respondError(w, 404, "file not found: "+path)
		} else {
			respondError(w, 500, err.Error())
		}
		return
	}
	respondJSON(w, 200, map[string]any{"path": path, "content": string(content)})
}

func (s *Server) handleWriteFile(w http.ResponseWriter, r *http.Request) {
	projectID, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	var body struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid request body")
		return
	}
	path, ok := requestPath(body.Path)
	if !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	if err := fs.WriteFile(path, []byte(body.Content)); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	if isTSConfigPath(path) {
		ClearAliasCache(s.projectRoot(projectID))
	}
	s.hub.Get(projectID).Broadcast(classifyChange(path))
	respondJSON(w, 200, map[string]any{"success": true, "path": path})
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	projectID, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	path, ok := requestPath(r.URL.Query().Get("path"))
	if !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	if err := fs.Unlink(path); err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			respondError(w, 404, "file not found: "+path)
		} else {
			respondError(w, 500, err.Error())
		}
		return
	}
	if isTSConfigPath(path) {
		ClearAliasCache(s.projectRoot(projectID))
	}
	s.hub.Get(projectID).Broadcast(Update{
		Type:      "full-reload",
		Path:      path,
		Timestamp: time.Now().UnixMilli(),
	})
	respondJSON(w, 200, map[string]any{"success": true})
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	_, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid request body")
		return
	}
	path, ok := requestPath(body.Path)
	if !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	if err := fs.Mkdir(path); err != nil {
		respondError(w, 500, err.Error())
		return
	}
	respondJSON(w, 200, map[string]any{"success": true})
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	projectID, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	var body struct {
		EntryPoint string `json:"entryPoint"`
		Minify     bool   `json:"minify"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&body)
	}
	entryPoint := body.EntryPoint
	if entryPoint == "" {
		entryPoint = s.findEntryPoint(fs)
	}
	if _, ok := requestPath(entryPoint); !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	snapshot, err := vfs.Snapshot(fs, "/")
	if err != nil {
		respondError(w, 500, err.Error())
		return
	}
	aliases := LoadAliasTable(s.projectRoot(projectID), fs.ReadFile)
	result, err := s.engine.BundleProject(entryPoint, snapshot, BundleOptions{
		Minify:  body.Minify,
		Aliases: aliases,
	})
	if err != nil {
		respondJSON(w, 200, map[string]any{"success": false, "error": err.Error()})
		return
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	respondJSON(w, 200, map[string]any{"success": true, "code": result.Code, "warnings": warnings})
}

func (s *Server) handleTransform(w http.ResponseWriter, r *http.Request) {
	if _, _, err := s.projectCtx(r); err != nil {
		respondError(w, 400, err.Error())
		return
	}
	var body struct {
		Code     string `json:"code"`
		Filename string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, 400, "invalid request body")
		return
	}
	out, err := s.engine.Transform(body.Code, body.Filename, TransformOptions{
		Sourcemap: esbuild.SourceMapExternal,
	})
	if err != nil {
		respondJSON(w, 200, map[string]any{"success": false, "error": err.Error()})
		return
	}
	respondJSON(w, 200, map[string]any{"success": true, "code": out.Code, "map": out.Map})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	projectID, _, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	s.hub.Get(projectID).ServeWS(w, r)
}

// handleServeFile is the serving path: every asset request flows through
// the per-file transform pipeline, HTML through the markup processor.
// Served responses are never cached by this layer.
func (s *Server) handleServeFile(w http.ResponseWriter, r *http.Request) {
	projectID, fs, err := s.projectCtx(r)
	if err != nil {
		respondError(w, 400, err.Error())
		return
	}
	pathname := "/" + chi.URLParam(r, "*")
	if pathname == "/" || strings.HasSuffix(pathname, "/") {
		pathname = strings.TrimSuffix(pathname, "/") + "/index.html"
	}
	if _, ok := requestPath(pathname); !ok {
		respondError(w, 400, "unsafe path")
		return
	}
	content, err := fs.ReadFile(pathname)
	if err != nil {
		if errors.Is(err, vfs.ErrNotFound) {
			http.Error(w, "Not Found", 404)
		} else if errors.Is(err, vfs.ErrIsDir) {
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		} else {
			http.Error(w, "Internal Server Error", 500)
		}
		return
	}

	basePrefix := "/p/" + projectID
	header := w.Header()
	header.Set("Cache-Control", "no-cache")

	if strings.HasSuffix(pathname, ".html") {
		header.Set("Content-Type", "text/html; charset=utf-8")
		ProcessHTML(bytes.NewReader(content), w, HTMLOptions{
			BasePrefix: basePrefix,
			NotifyURL:  basePrefix + "/ws",
		})
		return
	}

	if r.URL.Query().Has("raw") {
		contentType := mime.GetContentType(pathname)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		w.Write(content)
		return
	}

	aliases := LoadAliasTable(s.projectRoot(projectID), fs.ReadFile)
	result, err := s.engine.ServeFile(pathname, content, ServeFileOptions{
		BasePrefix: basePrefix,
		CdnOrigin:  s.cfg.CdnOrigin,
		Files:      FileSetFunc(func(p string) bool { return fs.Access(p) == nil }),
		Aliases:    aliases,
		SourceMap:  true,
	})
	if err != nil {
		s.log.Error().Err(err).Str("path", pathname).Msg("transform failed")
		respondError(w, 500, err.Error())
		return
	}
	header.Set("Content-Type", result.ContentType)
	w.Write([]byte(result.Code))
}

// classifyChange maps a written path to the update kind clients receive:
// a CSS edit can be hot-swapped, anything else forces a full reload.
func classifyChange(path string) Update {
	update := Update{
		Path:      path,
		Timestamp: time.Now().UnixMilli(),
	}
	if strings.HasSuffix(path, ".css") {
		update.Type = "update"
		update.IsCSS = true
	} else {
		update.Type = "full-reload"
	}
	return update
}

// findEntryPoint picks a conventional bundle entry when the request names
// none.
func (s *Server) findEntryPoint(fs vfs.FS) string {
	for _, candidate := range []string{"/src/main.tsx", "/src/main.ts", "/src/index.tsx", "/src/index.ts", "/main.tsx", "/main.ts", "/index.tsx", "/index.ts", "/index.js"} {
		if fs.Access(candidate) == nil {
			return candidate
		}
	}
	return "/index.ts"
}
