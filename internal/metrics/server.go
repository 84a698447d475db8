package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Serve exposes /metrics on addr for the lifetime of the run. It is meant
// for long crawls where an operator wants to watch progress; callers pass an
// empty addr to disable it entirely.
func Serve(addr string, logger *zap.Logger) *http.Server {
	if addr == "" {
		return nil
	}
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics listener stopped", zap.Error(err))
		}
	}()
	return srv
}
