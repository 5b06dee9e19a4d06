// Package httptransport wires the HTTP API: entity reads and writes through
// the authorization gateway, taxonomy validation and migrations, identity
// lifecycle, and the insight aggregations. Handlers stay thin; every decision
// that matters lives in the services behind them.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pitchfund/internal/platform/metrics"
	"pitchfund/internal/platform/middleware"
)

const requestTimeout = 30 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Entities *EntityHandler
	Taxonomy *TaxonomyHandler
	Identity *IdentityHandler
	Insights *InsightsHandler
	Resolver middleware.RoleResolver
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// NewRouter builds the full route tree with the shared middleware chain.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Latency(deps.Metrics))

	r.Get("/healthz", handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.ResolveRole(deps.Resolver, deps.Logger))

		deps.Entities.Register(r)
		deps.Taxonomy.Register(r)
		deps.Identity.Register(r)
		deps.Insights.Register(r)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
