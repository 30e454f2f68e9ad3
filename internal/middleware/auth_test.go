package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/domain"
	"portal/internal/domain/models"
	docsystem "portal/internal/domain/models/docsystem"
	"portal/internal/httputil"
)

type fakeVerifier struct {
	claims map[string]*models.PortalClaims
}

func (f *fakeVerifier) VerifyToken(token string) (*models.PortalClaims, error) {
	if c, ok := f.claims[token]; ok {
		return c, nil
	}
	return nil, domain.ErrUnauthorized
}

func (f *fakeVerifier) Close() error { return nil }

func TestAuthMiddleware(t *testing.T) {
	serviceID := int64(4)
	verifier := &fakeVerifier{claims: map[string]*models.PortalClaims{
		"good": {
			RegisteredClaims: jwt.RegisteredClaims{Subject: "9"},
			Role:             "manager",
			EnterpriseID:     2,
			ServiceID:        &serviceID,
		},
	}}

	var seen *docsystem.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetPrincipal(r)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(verifier, slog.New(slog.DiscardHandler))(next)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/api/folders/1", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/folders/1", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/api/folders/1", "Bearer bad", http.StatusUnauthorized},
		{"health is public", "/health", "", http.StatusNoContent},
		{"valid token", "/api/folders/1", "Bearer good", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/api/folders/1", nil)
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, seen)
	assert.Equal(t, int64(9), seen.ID)
	assert.Equal(t, int64(2), seen.EnterpriseID)
	assert.True(t, seen.InService(4))
}

func TestRequestID(t *testing.T) {
	var got string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = httputil.GetRequestID(r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, got)
	assert.Equal(t, got, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "abc", got)
}
