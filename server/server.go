package server

import (
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/TimoWilhelm/worker-ide-sub005/internal/vfs"
)

// Server hosts the project API and the serving path for every project
// under the configured projects directory.
type Server struct {
	cfg    *Config
	engine *Engine
	hub    *CoordinatorHub
	log    zerolog.Logger

	projectsLock sync.Mutex
	projects     map[string]vfs.FS
}

func New(cfg *Config, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		engine:   &Engine{},
		hub:      NewCoordinatorHub(log),
		log:      log.With().Str("component", "server").Logger(),
		projects: map[string]vfs.FS{},
	}
}

// projectRoot is the alias-cache key for a project.
func (s *Server) projectRoot(projectID string) string {
	return filepath.Join(s.cfg.ProjectsDir, projectID)
}

// openProject returns the filesystem collaborator for a project, creating
// the backing directory on first access.
func (s *Server) openProject(projectID string) (vfs.FS, error) {
	s.projectsLock.Lock()
	defer s.projectsLock.Unlock()
	if fs, ok := s.projects[projectID]; ok {
		return fs, nil
	}
	fs, err := vfs.NewDirFS(filepath.Join(s.cfg.ProjectsDir, projectID))
	if err != nil {
		return nil, err
	}
	s.projects[projectID] = fs
	return fs, nil
}

// Handler builds the HTTP routing surface.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: strings.Split(s.cfg.CORSOrigins, ","),
		AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, 200, map[string]any{"ok": true})
	})

	r.Route("/p/{project}", func(r chi.Router) {
		r.Get("/api/files", s.handleListFiles)
		r.Get("/api/file", s.handleReadFile)
		r.Put("/api/file", s.handleWriteFile)
		r.Delete("/api/file", s.handleDeleteFile)
		r.Post("/api/mkdir", s.handleMkdir)
		r.Post("/api/bundle", s.handleBundle)
		r.Post("/api/transform", s.handleTransform)
		r.Get("/ws", s.handleWS)
		r.Get("/*", s.handleServeFile)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Msg("request")
	})
}

// ListenAndServe warms the engine and serves until the listener fails.
func (s *Server) ListenAndServe() error {
	if err := s.engine.Warmup(); err != nil {
		return fmt.Errorf("fail to initialize transform engine: %w", err)
	}
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.Info().Uint16("port", s.cfg.Port).Str("projectsDir", s.cfg.ProjectsDir).Msg("dev server is ready")
	return http.Serve(ln, s.Handler())
}
