package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightsmile/dental-portal/internal/booking"
	"github.com/brightsmile/dental-portal/internal/observability/metrics"
	"github.com/brightsmile/dental-portal/pkg/logging"
)

type RouterConfig struct {
	Scheduler *booking.Scheduler
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *logging.Logger
	Metrics   *metrics.BookingMetrics
	JWTSecret string
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger, cfg.Metrics))

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public: catalog browsing and availability
		r.Get("/services", listServicesHandler(cfg.Scheduler))
		r.Get("/services/{code}", getServiceHandler(cfg.Scheduler))
		r.Get("/appointments/available-slots", availableSlotsHandler(cfg.Scheduler))

		// Patient-scoped: requires a verified identity
		r.Group(func(r chi.Router) {
			r.Use(PatientAuth(cfg.JWTSecret))

			r.Post("/appointments", createAppointmentHandler(cfg.Scheduler))
			r.Get("/appointments", listAppointmentsHandler(cfg.Scheduler))
			r.Get("/appointments/{id}", getAppointmentHandler(cfg.Scheduler))
			r.Put("/appointments/{id}", updateAppointmentHandler(cfg.Scheduler))
			r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Scheduler))
		})
	})

	return r
}
