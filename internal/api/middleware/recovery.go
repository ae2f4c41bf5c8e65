package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/callclock/internal/api/apierr"
	"github.com/mcoot/callclock/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Panics become INTERNAL_ERROR responses quoting the request ID.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, r *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError(middleware.RequestID(r.Context())))
	})
}
