package server

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pr-insights/internal/api/handler"
	"pr-insights/internal/engine"
	"pr-insights/internal/logger"
	"pr-insights/internal/metrics"
	"pr-insights/internal/repository"
)

type Config struct {
	Host            string        `env:"HTTP_HOST" env-required:"true"`
	Port            int           `env:"HTTP_PORT" env-required:"true"`
	Timeout         time.Duration `env:"HTTP_TIMEOUT" env-required:"true"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func NewRouter(store repository.EventStore, eng *engine.Engine, log *zap.Logger, cfgLogger *logger.Config, srvTimeout time.Duration) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.MiddlewareLogger(log, cfgLogger))
	router.Use(metrics.Middleware)
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	router.Post("/events", handler.IngestEvents(store, srvTimeout, log))
	router.Get("/analytics/turnaround", handler.Turnaround(eng, srvTimeout, log))
	router.Get("/analytics/pr-story", handler.PRStory(eng, srvTimeout, log))
	router.Get("/analytics/workload", handler.Workload(eng, srvTimeout, log))
	router.Get("/analytics/bottlenecks", handler.Bottlenecks(eng, srvTimeout, log))
	router.Get("/analytics/threads", handler.Threads(eng, srvTimeout, log))
	router.Handle("/metrics", promhttp.Handler())

	return router
}
