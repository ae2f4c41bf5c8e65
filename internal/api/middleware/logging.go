package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/callclock/internal/middleware"
)

// healthPath is polled by load balancers; its requests log at debug level
const healthPath = "/api/v1/health"

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "api")), healthPath)
}
