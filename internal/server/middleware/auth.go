package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/tasklink/internal/server/response"
)

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	// Token is the shared secret. Authentication is off when it is empty.
	Token       string
	PublicPaths []string
}

// DefaultAuthConfig leaves the health endpoints under prefix public.
func DefaultAuthConfig(token, prefix string) AuthConfig {
	return AuthConfig{
		Token:       token,
		PublicPaths: []string{"/health", prefix + "/health"},
	}
}

// Auth rejects requests without "Authorization: Bearer <token>".
// Websocket clients that cannot set headers may pass ?token= instead.
func Auth(cfg AuthConfig, logger *zerolog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg.Token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(cfg.PublicPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r)
			if subtle.ConstantTimeCompare([]byte(token), []byte(cfg.Token)) != 1 {
				logger.Warn().
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Bool("token_provided", token != "").
					Msg("Authentication failed")
				response.Unauthorized(w, "Invalid or missing token", "Provide Authorization: Bearer <token>")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
