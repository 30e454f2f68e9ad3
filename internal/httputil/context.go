package httputil

import (
	"context"
	"net/http"

	models "portal/internal/domain/models/docsystem"
)

// Context key type to avoid collisions
type contextKey string

const (
	principalKey contextKey = "principal"
	requestIDKey contextKey = "requestID"
)

// WithPrincipal adds the authenticated principal to the request context
func WithPrincipal(r *http.Request, principal *models.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, principal)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the principal from context, nil if the request is anonymous
func GetPrincipal(r *http.Request) *models.Principal {
	principal, _ := r.Context().Value(principalKey).(*models.Principal)
	return principal
}

// WithRequestID tags the request context with an id for log correlation
func WithRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), requestIDKey, id)
	return r.WithContext(ctx)
}

// GetRequestID returns the request id, or empty string if none was assigned
func GetRequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
