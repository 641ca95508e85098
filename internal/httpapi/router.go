package httpapi

import (
	"net/http"

	"github.com/bookhaven/bookorders/internal/config"
	"github.com/bookhaven/bookorders/internal/metrics"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HealthCheck reports whether a dependency is healthy.
type HealthCheck func() error

// NewRouter assembles the middleware chain and operational endpoints shared
// by both services, then lets register mount the service routes.
func NewRouter(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, metricsHandler http.Handler, health HealthCheck, register func(*mux.Router)) *mux.Router {
	r := mux.NewRouter()

	r.Use(Recover(log))
	r.Use(Correlation)
	r.Use(RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, log))
	r.Use(RequestLogger(log))
	r.Use(Instrument(m))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := health(); err != nil {
			log.Error("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unhealthy: " + err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)

	register(r)
	return r
}
