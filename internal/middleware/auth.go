package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"portal/internal/auth"
	models "portal/internal/domain/models/docsystem"
	"portal/internal/httputil"
)

// publicPaths skip authentication
var publicPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// AuthMiddleware verifies the bearer token and stores the principal in the
// request context. Requests without a valid token get a 401.
func AuthMiddleware(verifier auth.JWTVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.Debug("token rejected", "path", r.URL.Path, "error", err)
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			// VerifyToken already checked the subject parses
			userID, _ := claims.GetUserID()
			principal := &models.Principal{
				ID:              userID,
				Role:            claims.Role,
				ServiceID:       claims.ServiceID,
				EnterpriseID:    claims.EnterpriseID,
				ViewAllServices: claims.ViewAllServices,
			}

			next.ServeHTTP(w, httputil.WithPrincipal(r, principal))
		})
	}
}

// RequestID assigns every request an id, reusing X-Request-ID when the caller sent one.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			next.ServeHTTP(w, httputil.WithRequestID(r, id))
		})
	}
}
