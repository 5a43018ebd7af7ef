package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// Pinger is implemented by the sqlite store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the database answers.
//
// HTTP: GET /healthz
func HealthHandler(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if err := db.Ping(r.Context()); err != nil {
			logger.Error("health check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("unavailable\n"))
			return
		}
		w.Write([]byte("ok\n"))
	}
}
