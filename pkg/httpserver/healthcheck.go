package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/toggler/pkg/logger"
)

// HealthHandler answers 204 when check succeeds and 503 with the error text
// otherwise. A nil check always reports healthy.
func HealthHandler(log *slog.Logger, check func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				log.WarnContext(r.Context(), "health check failed", logger.Error(err))
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
