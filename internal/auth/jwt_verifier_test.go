package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/domain"
	"portal/internal/domain/models"
)

func newTestVerifier(t *testing.T) (JWTVerifier, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	kf := func(*jwt.Token) (any, error) { return &key.PublicKey, nil }
	return NewStaticVerifier(kf, slog.New(slog.DiscardHandler)), key
}

func sign(t *testing.T, key *ecdsa.PrivateKey, claims *models.PortalClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims() *models.PortalClaims {
	serviceID := int64(3)
	return &models.PortalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:        "jane@acme.test",
		Role:         "employee",
		EnterpriseID: 7,
		ServiceID:    &serviceID,
	}
}

func TestVerifyToken(t *testing.T) {
	verifier, key := newTestVerifier(t)

	claims, err := verifier.VerifyToken(sign(t, key, validClaims()))
	require.NoError(t, err)

	userID, err := claims.GetUserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, int64(7), claims.EnterpriseID)
	require.NotNil(t, claims.ServiceID)
	assert.Equal(t, int64(3), *claims.ServiceID)
}

func TestVerifyToken_Rejects(t *testing.T) {
	verifier, key := newTestVerifier(t)
	otherKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token func() string
	}{
		{"garbage", func() string { return "not-a-token" }},
		{"wrong key", func() string { return sign(t, otherKey, validClaims()) }},
		{"expired", func() string {
			c := validClaims()
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return sign(t, key, c)
		}},
		{"no expiry", func() string {
			c := validClaims()
			c.ExpiresAt = nil
			return sign(t, key, c)
		}},
		{"non-numeric subject", func() string {
			c := validClaims()
			c.Subject = "jane"
			return sign(t, key, c)
		}},
		{"missing enterprise", func() string {
			c := validClaims()
			c.EnterpriseID = 0
			return sign(t, key, c)
		}},
		{"missing role", func() string {
			c := validClaims()
			c.Role = ""
			return sign(t, key, c)
		}},
		{"hmac algorithm", func() string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
			require.NoError(t, err)
			return token
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verifier.VerifyToken(tt.token())
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}
