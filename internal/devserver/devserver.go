// Package devserver implements an in-memory CRM backend speaking the same
// REST contract the client adapter expects. It exists for local development
// and end-to-end testing: it assigns server keys, honours idempotency keys,
// and can inject faults to exercise the client's retry path.
package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fieldline-crm/fieldline/internal/logger"
	"github.com/fieldline-crm/fieldline/models"
)

// Options tunes the dev backend's behaviour.
type Options struct {
	// JWTSecret signs issued tokens. Empty disables authentication entirely:
	// the token endpoint still works but nothing is enforced.
	JWTSecret string
	// TokenTTL bounds issued token lifetime. Zero means 24h.
	TokenTTL time.Duration
	// FailEveryN makes every Nth mutating request fail with HTTP 500 so the
	// client's retry accounting can be observed. Zero disables injection.
	FailEveryN int
	// Latency is added to every request before handling. Zero disables it.
	Latency time.Duration
	// Seed populates every collection with generated fixtures on startup.
	Seed int
}

// Server is the in-memory CRM backend.
type Server struct {
	store  *memStore
	opts   Options
	logger *logger.Logger

	mu       sync.Mutex
	requests int
}

// NewServer builds the dev backend. Call [Server.Routes] to obtain the
// http.Handler.
func NewServer(opts Options, logger *logger.Logger) *Server {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}

	s := &Server{
		store:  newMemStore(),
		opts:   opts,
		logger: logger,
	}

	if opts.Seed > 0 {
		s.seed(opts.Seed)
	}

	return s
}

// Routes assembles the chi router exposing the backend API.
func (s *Server) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.latency)

	router.Get("/api/health", s.health)
	router.Post("/api/auth/token", s.issueToken)

	router.Group(func(r chi.Router) {
		if s.opts.JWTSecret != "" {
			r.Use(s.auth)
		}
		r.Use(s.faults)

		for _, collection := range []string{
			models.CollectionLeads,
			models.CollectionContacts,
			models.CollectionCompanies,
			models.CollectionOpportunities,
			models.CollectionActivities,
		} {
			r.Route("/api/"+collection, func(cr chi.Router) {
				cr.Get("/", s.list(collection))
				cr.Post("/", s.create(collection))
				cr.Put("/{serverKey}", s.update(collection))
				cr.Delete("/{serverKey}", s.remove(collection))
			})
		}
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// latency delays every request by the configured amount.
func (s *Server) latency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.Latency > 0 {
			time.Sleep(s.opts.Latency)
		}
		next.ServeHTTP(w, r)
	})
}

// faults fails every Nth mutating request with HTTP 500.
func (s *Server) faults(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.FailEveryN > 0 && r.Method != http.MethodGet {
			s.mu.Lock()
			s.requests++
			inject := s.requests%s.opts.FailEveryN == 0
			s.mu.Unlock()

			if inject {
				s.logger.Warn().
					Str("func", "Server.faults").
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("injected fault")
				http.Error(w, "injected fault", http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
