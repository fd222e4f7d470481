package botapp

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/msviridov/ddu-penalty-bot/internal/http/handlers/health"
	"github.com/msviridov/ddu-penalty-bot/internal/http/handlers/stats"
	"github.com/msviridov/ddu-penalty-bot/internal/http/middlewarectx"
)

// RegisterRoutes регистрирует маршруты служебного сервера.
func RegisterRoutes(r chi.Router, logger *slog.Logger, statsProvider stats.StatsProvider, registry *prometheus.Registry) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Get("/health", health.New(logger).ServeHTTP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger, rate.NewLimiter(1, 3)))
		r.Get("/stats", stats.New(logger, statsProvider).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
