package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/callclock/internal/api/apierr"
)

// AdminAuth guards a route with the admin bearer token, checked against its bcrypt hash.
// An empty or malformed hash disables every guarded route.
func AdminAuth(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "auth"))
	hash := []byte(tokenHash)
	if len(hash) > 0 {
		if _, err := bcrypt.Cost(hash); err != nil {
			logger.Error("admin token hash is not a bcrypt hash; admin API disabled", slog.String("error", err.Error()))
			hash = nil
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				apierr.WriteError(w, apierr.NewForbiddenError("Admin API is disabled"))
				return
			}

			token, ok := bearerToken(r)
			if ok && bcrypt.CompareHashAndPassword(hash, []byte(token)) == nil {
				next.ServeHTTP(w, r)
				return
			}

			if ok {
				logger.Warn("admin token rejected",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("remote_addr", r.RemoteAddr))
			}
			w.Header().Set("WWW-Authenticate", `Bearer realm="putp"`)
			apierr.WriteError(w, apierr.NewUnauthorizedError())
		})
	}
}

// HashToken returns the bcrypt hash to configure for an admin token
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// bearerToken returns the token of an Authorization: Bearer header
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
