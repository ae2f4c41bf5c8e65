package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/callclock/internal/middleware"
)

// Logging creates request logging middleware for the pages and the event stream.
// Static assets log at debug level.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "web")), "/static/")
}
