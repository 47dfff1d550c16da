// Package router assembles the HTTP surface of the platform.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/labdiagnostica/platform/internal/appointments"
	"github.com/labdiagnostica/platform/internal/audit"
	"github.com/labdiagnostica/platform/internal/chat"
	httpmiddleware "github.com/labdiagnostica/platform/internal/http/middleware"
	"github.com/labdiagnostica/platform/internal/results"
	"github.com/labdiagnostica/platform/internal/schedule"
	"github.com/labdiagnostica/platform/pkg/logging"
)

// Config holds router configuration. Handlers left nil have their
// routes omitted.
type Config struct {
	Logger *logging.Logger

	ScheduleHandler     *schedule.Handler
	AppointmentsHandler *appointments.Handler
	ResultsHandler      *results.Handler
	ChatHandler         *chat.Handler
	AuditHandler        *audit.Handler
	MetricsHandler      http.Handler

	AdminAuthSecret    string
	CORSAllowedOrigins []string

	ChatRatePerSec float64
	ChatRateBurst  int
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)

		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}

		if cfg.ScheduleHandler != nil {
			public.Get("/schedule/availability", cfg.ScheduleHandler.GetAvailability)
		}

		if cfg.AppointmentsHandler != nil {
			public.Route("/appointments", func(r chi.Router) {
				r.Post("/", cfg.AppointmentsHandler.Create)
				r.Get("/{id}", cfg.AppointmentsHandler.Get)
			})
		}

		if cfg.ResultsHandler != nil {
			public.Get("/portal/results", cfg.ResultsHandler.ListForPatient)
		}

		if cfg.ChatHandler != nil {
			rate, burst := cfg.ChatRatePerSec, cfg.ChatRateBurst
			if rate <= 0 {
				rate = 1
			}
			if burst <= 0 {
				burst = 5
			}
			public.With(httpmiddleware.RateLimit(rate, burst)).Post("/chat", cfg.ChatHandler.Send)
		}
	})

	// Admin endpoints behind JWT auth.
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))

		if cfg.ScheduleHandler != nil {
			admin.Route("/schedule", func(r chi.Router) {
				r.Get("/blocked-slots", cfg.ScheduleHandler.ListBlockedSlots)
				r.Post("/blocked-slots", cfg.ScheduleHandler.BlockSlot)
				r.Delete("/blocked-slots", cfg.ScheduleHandler.UnblockSlot)
				r.Get("/blocked-days", cfg.ScheduleHandler.ListBlockedDays)
				r.Post("/blocked-days", cfg.ScheduleHandler.BlockDay)
				r.Delete("/blocked-days/{date}", cfg.ScheduleHandler.UnblockDay)
			})
		}

		if cfg.AppointmentsHandler != nil {
			admin.Route("/appointments", func(r chi.Router) {
				r.Get("/", cfg.AppointmentsHandler.ListDay)
				r.Delete("/{id}", cfg.AppointmentsHandler.Cancel)
			})
		}

		if cfg.ResultsHandler != nil {
			admin.Route("/results", func(r chi.Router) {
				r.Post("/", cfg.ResultsHandler.Create)
				r.Post("/{id}/release", cfg.ResultsHandler.Release)
			})
		}

		if cfg.AuditHandler != nil {
			admin.Get("/audit", cfg.AuditHandler.Query)
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
