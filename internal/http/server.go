// Package http exposes the metrics and ledger services as a JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"carteira/internal/log"
	"carteira/internal/middleware/ratelimit"
	"carteira/internal/middleware/security"
	"carteira/internal/middleware/trace"
	"carteira/internal/services"
)

// HeaderUserID selects whose data a request reads and writes.
const HeaderUserID = "X-User-ID"

// PingFunc reports whether the backing store is reachable.
type PingFunc func(ctx context.Context) error

type Options struct {
	Addr         string
	Metrics      *services.MetricsService
	Ledger       *services.TransactionService
	Ping         PingFunc
	Logger       *log.Logger
	RateLimit    ratelimit.Config
	DefaultUser  string
	Location     *time.Location
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	http.Server

	metrics     *services.MetricsService
	ledger      *services.TransactionService
	ping        PingFunc
	logger      *log.Logger
	limiter     *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware
	defaultUser string
	location    *time.Location
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "default"
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.RateLimit.RequestsPerSecond <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 15 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 15 * time.Second
	}

	detector := security.NewDetector()
	s := &Server{
		metrics:     opts.Metrics,
		ledger:      opts.Ledger,
		ping:        opts.Ping,
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
		limiter:     ratelimit.NewLimiter(opts.RateLimit),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP),
		defaultUser: opts.DefaultUser,
		location:    opts.Location,
	}
	s.Addr = opts.Addr
	s.ReadHeaderTimeout = 5 * time.Second
	s.ReadTimeout = opts.ReadTimeout
	s.WriteTimeout = opts.WriteTimeout
	s.IdleTimeout = 60 * time.Second
	s.Handler = s.routes(opts.Logger)
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(logger))
	r.Use(s.tracer.Middleware)
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/insights", s.handleInsight)
		r.Get("/budget", s.handleBudget)
		r.Get("/shortcuts", s.handleShortcuts)
		r.Get("/streak", s.handleStreak)

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Post("/purchases", s.handleCreatePurchase)

		r.Get("/categories", s.handleListCategories)
		r.Post("/categories", s.handleCreateCategory)
		r.Get("/goals", s.handleListGoals)
		r.Post("/goals", s.handleCreateGoal)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Shutdown drains in-flight requests and stops the limiter sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// session resolves the caller from the user header.
func (s *Server) session(r *http.Request) services.Session {
	user := r.Header.Get(HeaderUserID)
	if user == "" || len(user) > 128 {
		user = s.defaultUser
	}
	return services.Session{UserID: user, Location: s.location}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentHTTP).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			writeError(w, http.StatusServiceUnavailable, "backend unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
}
