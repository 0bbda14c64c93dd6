package main

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/docwatch/docwatch/internal/config"
	"github.com/docwatch/docwatch/internal/dispatch"
	"github.com/docwatch/docwatch/internal/handlers"
	"github.com/docwatch/docwatch/internal/manager"
	"github.com/docwatch/docwatch/internal/middleware"
	"github.com/docwatch/docwatch/internal/models"
	"github.com/docwatch/docwatch/internal/notify"
	"github.com/docwatch/docwatch/internal/repo"
	"github.com/docwatch/docwatch/internal/scanner"
)

// newNotifier picks the delivery channel from config.
func newNotifier(cfg config.Config) notify.Notifier {
	if cfg.Notifier == "slack" {
		return notify.NewSlackNotifier(cfg.SlackToken)
	}
	return notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
}

// newDispatcher builds the scan-and-notify pipeline shared by the HTTP trigger
// endpoint and the background loop.
func newDispatcher(cfg config.Config) *dispatch.Dispatcher {
	return &dispatch.Dispatcher{
		Scanner:       scanner.NewClient(cfg.ScannerURL, cfg.ScanTimeout),
		Notifier:      newNotifier(cfg),
		ScanTimeout:   cfg.ScanTimeout,
		NotifyTimeout: cfg.NotifyTimeout,
	}
}

func scheduleDefaults(cfg config.Config) handlers.ScheduleDefaults {
	d := handlers.ScheduleDefaults{
		Frequency: models.FrequencyWeekly,
		RunAt:     models.TimeOfDay{Hour: 9, Minute: 0},
	}
	if f := models.Frequency(cfg.DefaultFrequency); f.Valid() {
		d.Frequency = f
	}
	if t, err := models.ParseTimeOfDay(cfg.DefaultRunAt); err == nil {
		d.RunAt = t
	}
	return d
}

func newRouter(database *sql.DB, cfg config.Config) chi.Router {
	scheduleRepo := repo.NewScheduleRepo(database)
	dispatcher := newDispatcher(cfg)
	scheduleManager := manager.New(scheduleRepo, dispatcher)

	scheduleHandler := &handlers.ScheduleHandler{
		Repo:     scheduleRepo,
		Manager:  scheduleManager,
		Defaults: scheduleDefaults(cfg),
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLog)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			handlers.JSONError(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	r.Handle("/metrics", promhttp.Handler())

	triggerLimiter := middleware.TriggerRateLimiter()

	r.Route("/schedules", func(r chi.Router) {
		r.Get("/", scheduleHandler.ListSchedules)
		r.With(middleware.MaxBytes(middleware.DefaultMaxBodyBytes)).
			Put("/", scheduleHandler.PutSchedule)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", scheduleHandler.GetSchedule)
			r.Delete("/", scheduleHandler.DeleteSchedule)
			r.Post("/enable", scheduleHandler.EnableSchedule)
			r.Post("/disable", scheduleHandler.DisableSchedule)
			r.With(triggerLimiter.Middleware).Post("/trigger", scheduleHandler.TriggerSchedule)
		})
	})

	return r
}
