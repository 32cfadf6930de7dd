// Package http exposes the budget over a JSON API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"finflow/internal/app"
	applog "finflow/internal/log"
	"finflow/internal/metrics"
	"finflow/internal/middleware/ratelimit"
	"finflow/internal/middleware/security"
)

type Server struct {
	http.Server
	app     *app.App
	limiter *ratelimit.Limiter
	logger  *applog.Logger
	access  *applog.StructuredLogger
}

// NewServer builds the server for a started App. Mutating routes are
// limited to rateLimitRPM requests per client per minute.
func NewServer(addr string, a *app.App, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	cfg := a.Config()
	s := &Server{
		app:     a,
		limiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitRPM}),
		logger:  logger.WithComponent(applog.ComponentHTTP),
	}
	s.access = applog.NewStructuredLogger(s.logger)
	s.Addr = addr
	s.Handler = s.routes()
	s.ReadTimeout = 10 * time.Second
	// Advice requests may wait for the model.
	s.WriteTimeout = cfg.AdviceTimeout + 10*time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.access.Middleware)
	r.Use(instrument)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/expenses", s.handleExpenses)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/cycle", s.handleCycle)
		r.Get("/accounts", s.handleAccounts)
		r.Get("/advice", s.handleAdvice)
		r.Get("/theme", s.handleGetTheme)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(clientIP, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			}))
			r.Post("/transactions", s.handleCreateTransaction)
			r.Post("/cycle/confirm", s.handleConfirmReset)
			r.Post("/cycle/decline", s.handleDeclineReset)
			r.Post("/reset", s.handleManualReset)
			r.Put("/theme", s.handleSetTheme)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// instrument records request counts and latency by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Shutdown stops accepting requests and the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
