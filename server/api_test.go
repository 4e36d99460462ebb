package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	cfg := &Config{
		Port:        0,
		ProjectsDir: t.TempDir(),
		CdnOrigin:   testCdnOrigin,
		CORSOrigins: "*",
	}
	s := New(cfg, zerolog.Nop())
	return s, s.Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var decoded map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

func TestWriteReadListDeleteRoundTrip(t *testing.T) {
	_, handler := testServer(t)

	rec, body := doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/src/app.ts","content":"export const a = 1;"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "/src/app.ts", body["path"])

	rec, body = doJSON(t, handler, "GET", "/p/demo/api/file?path=/src/app.ts", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "export const a = 1;", body["content"])

	rec, body = doJSON(t, handler, "GET", "/p/demo/api/files", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, []any{"/src/app.ts"}, body["files"])

	rec, body = doJSON(t, handler, "DELETE", "/p/demo/api/file?path=/src/app.ts", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["success"])

	rec, _ = doJSON(t, handler, "GET", "/p/demo/api/file?path=/src/app.ts", "")
	assert.Equal(t, 404, rec.Code)
}

func TestUnsafePathsRejectedBeforeWrite(t *testing.T) {
	s, handler := testServer(t)

	rec, body := doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/../etc/passwd","content":"x"}`)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "unsafe path", body["error"])

	rec, body = doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"a/b","content":"x"}`)
	assert.Equal(t, 400, rec.Code)
	assert.Equal(t, "unsafe path", body["error"])

	// nothing was written into the project directory
	entries, err := os.ReadDir(filepath.Join(s.cfg.ProjectsDir, "demo"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	rec, _ = doJSON(t, handler, "GET", "/p/demo/api/file?path=/a//b", "")
	assert.Equal(t, 400, rec.Code)
}

func TestInvalidProjectIDRejected(t *testing.T) {
	_, handler := testServer(t)
	rec, _ := doJSON(t, handler, "GET", "/p/bad..id/api/files", "")
	assert.Equal(t, 400, rec.Code)
}

func TestWriteBroadcastsClassifiedChange(t *testing.T) {
	s, handler := testServer(t)
	conn := newFakeConn()
	coordinator := s.hub.Get("demo")
	coordinator.AcceptSession(conn)
	coordinator.flush()

	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/src/app.ts","content":"export {}"}`)
	coordinator.flush()

	msgs := conn.received()
	require.Len(t, msgs, 1)
	var envelope struct {
		Type    string   `json:"type"`
		Updates []Update `json:"updates"`
	}
	require.NoError(t, json.Unmarshal(msgs[0], &envelope))
	assert.Equal(t, "full-reload", envelope.Type)
	require.Len(t, envelope.Updates, 1)
	assert.Equal(t, "/src/app.ts", envelope.Updates[0].Path)
	assert.NotZero(t, envelope.Updates[0].Timestamp)

	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/styles/app.css","content":"body{}"}`)
	coordinator.flush()

	msgs = conn.received()
	require.Len(t, msgs, 2)
	require.NoError(t, json.Unmarshal(msgs[1], &envelope))
	assert.Equal(t, "update", envelope.Type)
	assert.True(t, envelope.Updates[0].IsCSS)
}

func TestServeHTMLIsProcessed(t *testing.T) {
	_, handler := testServer(t)
	doJSON(t, handler, "PUT", "/p/demo/api/file",
		`{"path":"/index.html","content":"<html><head><script src=\"/main.ts\"></script></head><body></body></html>"}`)

	rec, _ := doJSON(t, handler, "GET", "/p/demo/", "")
	require.Equal(t, 200, rec.Code)
	out := rec.Body.String()
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, out, `src="/p/demo/main.ts"`)
	assert.Contains(t, out, "new WebSocket")
	assert.Contains(t, out, `"/p/demo/ws"`)
}

func TestServeModuleIsCompiled(t *testing.T) {
	_, handler := testServer(t)
	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/util.ts","content":"export const n: number = 1;"}`)
	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/app.ts","content":"import { n } from './util';\nconsole.log(n);"}`)

	rec, _ := doJSON(t, handler, "GET", "/p/demo/app.ts", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Contains(t, rec.Body.String(), "/p/demo/util.ts")
	assert.NotContains(t, rec.Body.String(), ": number")
}

func TestServeRawBypassesPipeline(t *testing.T) {
	_, handler := testServer(t)
	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/styles/app.css","content":"body{color:red}"}`)

	rec, _ := doJSON(t, handler, "GET", "/p/demo/styles/app.css?raw", "")
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "body{color:red}", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec, _ = doJSON(t, handler, "GET", "/p/demo/styles/app.css", "")
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Contains(t, rec.Body.String(), `data-vfs-path="/styles/app.css"`)
}

func TestTransformEndpoint(t *testing.T) {
	_, handler := testServer(t)
	rec, body := doJSON(t, handler, "POST", "/p/demo/api/transform",
		`{"code":"const x: number = 1; export default x;","filename":"/x.ts"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["code"], "const x = 1")
	assert.NotEmpty(t, body["map"])

	rec, body = doJSON(t, handler, "POST", "/p/demo/api/transform", `{"code":"const = ;","filename":"/bad.ts"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestBundleEndpoint(t *testing.T) {
	_, handler := testServer(t)
	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/src/main.ts","content":"export const answer = 42;"}`)

	rec, body := doJSON(t, handler, "POST", "/p/demo/api/bundle", `{}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["code"], "42")

	doJSON(t, handler, "PUT", "/p/demo/api/file", `{"path":"/src/main.ts","content":"const = ;"}`)
	rec, body = doJSON(t, handler, "POST", "/p/demo/api/bundle", `{}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])
}

func TestMkdirEndpoint(t *testing.T) {
	s, handler := testServer(t)
	rec, body := doJSON(t, handler, "POST", "/p/demo/api/mkdir", `{"path":"/assets/images"}`)
	require.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["success"])
	fi, err := os.Stat(filepath.Join(s.cfg.ProjectsDir, "demo", "assets", "images"))
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestHealthz(t *testing.T) {
	_, handler := testServer(t)
	rec, body := doJSON(t, handler, "GET", "/healthz", "")
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, true, body["ok"])
}
