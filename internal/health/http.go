package health

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Proton-105/donation-bot/internal/middleware"
	"github.com/Proton-105/donation-bot/pkg/logger"
)

type response struct {
	Status     string            `json:"status"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components,omitempty"`
}

// Routes serves /healthz (liveness), /readyz (dependency checks) and /metrics.
func Routes(checker *Checker, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(logger.Middleware)
	router.Use(middleware.HTTPLogger(log))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, log, http.StatusOK, response{Status: "ok", Uptime: checker.Uptime().Round(time.Second).String()})
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		components, healthy := checker.Check(r.Context())

		resp := response{Status: "ok", Uptime: checker.Uptime().Round(time.Second).String(), Components: components}
		code := http.StatusOK
		if !healthy {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		respondJSON(w, log, code, resp)
	})

	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return router
}

func respondJSON(w http.ResponseWriter, log *slog.Logger, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn("failed to write health response", slog.Any("error", err))
	}
}
