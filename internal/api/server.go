// Package api exposes the gateway over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/muniops/internal/gateway"
	"github.com/sells-group/muniops/internal/store"
)

// Options configures the HTTP surface.
type Options struct {
	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

// Server routes HTTP requests to a gateway.
type Server struct {
	gw       *gateway.Gateway
	gatherer prometheus.Gatherer
	origins  []string
}

// NewServer creates a Server for gw.
func NewServer(gw *gateway.Gateway, opts Options) *Server {
	g := opts.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{gw: gw, gatherer: g, origins: origins}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(api chi.Router) {
		api.Get("/session", s.handleSession)
		api.Post("/session/refresh", s.handleRefresh)

		api.Route("/{entity}", func(er chi.Router) {
			er.Get("/", s.handleList)
			er.Post("/", s.handleCreate)
			er.Get("/{id}", s.handleGet)
			er.Patch("/{id}", s.handleUpdate)
			er.Delete("/{id}", s.handleDelete)
		})
	})

	return r
}

// envelope is the body of every /v1 response.
type envelope struct {
	Data  any              `json:"data"`
	Error *store.DataError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("write response failed", zap.Error(err))
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
