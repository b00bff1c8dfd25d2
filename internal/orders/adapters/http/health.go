package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/dejobratic/orderflow/internal/httpx"
)

// Check reports whether a dependency is usable.
type Check func(ctx context.Context) error

// Health answers liveness probes without touching dependencies.
func Health(service string, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.RespondJSON(w, http.StatusOK, map[string]string{
			"status":    "ok",
			"service":   service,
			"timestamp": now().UTC().Format(time.RFC3339Nano),
		})
	}
}

// Ready runs every check and answers 503 naming the ones that failed. Causes
// are logged; callers only see which dependency is unavailable.
func Ready(checks map[string]Check, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		failed := map[string]string{}
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed",
					slog.String("check", name),
					slog.String("error", err.Error()),
				)
				failed[name] = "unavailable"
			}
		}

		if len(failed) > 0 {
			httpx.RespondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": failed})
			return
		}
		httpx.RespondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
