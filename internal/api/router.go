package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mindbridge/counselling-booking/internal/availability"
	"github.com/mindbridge/counselling-booking/internal/booking"
	"github.com/mindbridge/counselling-booking/internal/directory"
)

type RouterConfig struct {
	Availability *availability.Service
	Booking      *booking.Service
	Directory    directory.Repository
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(MetricsMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/specialists", func(r chi.Router) {
		r.Get("/", listSpecialistsHandler(cfg.Directory))
		r.Get("/{id}", getSpecialistHandler(cfg.Directory))
		r.Patch("/{id}/availability-status", setSpecialistAvailabilityHandler(cfg.Directory))

		r.Post("/{id}/availability", addWindowHandler(cfg.Availability))
		r.Post("/{id}/availability/bulk", bulkAddWindowsHandler(cfg.Availability))
		r.Get("/{id}/availability", listWindowsHandler(cfg.Availability))
		r.Get("/{id}/availability/weekly", weeklyScheduleHandler(cfg.Availability))
		r.Delete("/{id}/availability", clearWindowsHandler(cfg.Availability))
		r.Get("/{id}/slots", openSlotsHandler(cfg.Availability))

		r.Get("/{id}/bookings", listSpecialistBookingsHandler(cfg.Booking))
	})

	r.Route("/availability/{id}", func(r chi.Router) {
		r.Patch("/", updateWindowHandler(cfg.Availability))
		r.Delete("/", removeWindowHandler(cfg.Availability))
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", createBookingHandler(cfg.Booking))
		r.Get("/{id}", getBookingHandler(cfg.Booking))
		r.Patch("/{id}", updateBookingHandler(cfg.Booking))
		r.Post("/{id}/confirm", confirmBookingHandler(cfg.Booking))
		r.Post("/{id}/cancel", cancelBookingHandler(cfg.Booking))
		r.Post("/{id}/complete", completeBookingHandler(cfg.Booking))
		r.Post("/{id}/no-show", noShowBookingHandler(cfg.Booking))

		r.Post("/{id}/session", createSessionHandler(cfg.Booking))
		r.Get("/{id}/session", getSessionHandler(cfg.Booking))
	})

	r.Patch("/sessions/{id}", updateSessionHandler(cfg.Booking))

	r.Get("/patients/{id}/bookings", listPatientBookingsHandler(cfg.Booking))

	return r
}
