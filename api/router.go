package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/spektr-org/meditrack/config"
	"github.com/spektr-org/meditrack/engine"
	"github.com/spektr-org/meditrack/pages"
	"github.com/spektr-org/meditrack/schema"
)

// LoadIDHeader carries the id of the dataset load that produced a response.
const LoadIDHeader = "X-Load-ID"

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
}

// NewServer creates a new API server over a loaded dataset. The dataset is
// only read.
func NewServer(cfg *config.Config, ds *engine.Dataset) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(ds, schema.Discover(ds), pages.SettingsFrom(cfg.Dashboard)),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{LoadIDHeader},
		MaxAge:         300,
	}))

	s.router.Use(s.loadID)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/schema", s.handlers.GetSchema)

		r.Route("/pages", func(r chi.Router) {
			r.Get("/", s.handlers.ListPages)
			r.Get("/{page}", s.handlers.GetPage)
		})

		r.Post("/query", s.handlers.Query)
	})
}

func (s *Server) loadID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.handlers.ds.LoadID; id != "" {
			w.Header().Set(LoadIDHeader, id)
		}
		next.ServeHTTP(w, r)
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
