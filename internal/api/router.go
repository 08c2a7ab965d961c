// internal/api/router.go
package api

import (
	"net/http"

	"resource-discovery/internal/common/auth"
	"resource-discovery/internal/common/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins []string
	Verifier       auth.TokenVerifier
	// TrustedProxyHops counts the reverse proxies that append to
	// X-Forwarded-For. Zero keys anonymous callers on the socket address.
	TrustedProxyHops int
	// MetricsHandler overrides the default Prometheus handler.
	MetricsHandler http.Handler
}

// NewRouter creates the HTTP router with all discovery routes.
func NewRouter(h *Handlers, opts RouterOptions, log logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(log))
	r.Use(Telemetry)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", OutcomeHeader, "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/functions/v1", func(r chi.Router) {
		r.Use(Identity(opts.Verifier, opts.TrustedProxyHops))
		r.Post("/{endpoint}", h.Discover)
	})

	return r
}
