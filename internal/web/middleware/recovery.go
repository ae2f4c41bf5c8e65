package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/mcoot/callclock/internal/middleware"
	"github.com/mcoot/callclock/internal/web/templates/layout"
	"github.com/mcoot/callclock/internal/web/templates/pages"
)

// Recovery creates panic recovery middleware for the web interface.
// Pages get the error page; event streams and images get a bare status.
func Recovery(logger *slog.Logger, baseURL string) func(http.Handler) http.Handler {
	meta := layout.DefaultMeta(baseURL)
	meta.Title = "Call Clock: Error"

	return middleware.Recovery(logger, func(w http.ResponseWriter, r *http.Request, _ any) {
		if !wantsHTML(r) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_ = pages.ServerError(meta, middleware.RequestID(r.Context())).Render(r.Context(), w)
	})
}

func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "text/event-stream") || strings.HasSuffix(r.URL.Path, ".png") {
		return false
	}
	return accept == "" || strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}
