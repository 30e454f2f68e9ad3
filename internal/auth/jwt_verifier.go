package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"portal/internal/domain"
	"portal/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// allowedAlgorithms guards against algorithm confusion
var allowedAlgorithms = []string{"RS256", "ES256"}

// JWKSVerifier implements JWTVerifier using keys fetched from a JWKS endpoint.
type JWKSVerifier struct {
	keyfunc jwt.Keyfunc
	cancel  context.CancelFunc
	logger  *slog.Logger
}

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc caches the keys and refreshes them based on HTTP cache headers.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (JWTVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{
		keyfunc: jwks.Keyfunc,
		cancel:  cancel,
		logger:  logger,
	}, nil
}

// NewStaticVerifier verifies tokens against a fixed key function.
// Used by tests and by deployments that pin a single public key.
func NewStaticVerifier(kf jwt.Keyfunc, logger *slog.Logger) JWTVerifier {
	return &JWKSVerifier{keyfunc: kf, cancel: func() {}, logger: logger}
}

// VerifyToken validates a JWT and extracts the portal claims.
// Tokens without a numeric subject or an enterprise are rejected.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*models.PortalClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.PortalClaims{}, v.keyfunc,
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, domain.ErrUnauthorized
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*models.PortalClaims)
	if !ok {
		v.logger.Error("failed to extract claims from token")
		return nil, domain.ErrUnauthorized
	}

	if _, err := claims.GetUserID(); err != nil {
		v.logger.Debug("token has no usable subject", "subject", claims.Subject)
		return nil, domain.ErrUnauthorized
	}
	if claims.EnterpriseID <= 0 {
		v.logger.Debug("token missing enterprise", "subject", claims.Subject)
		return nil, domain.ErrUnauthorized
	}
	if claims.Role == "" {
		v.logger.Debug("token missing role", "subject", claims.Subject)
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close stops the background JWKS refresh.
func (v *JWKSVerifier) Close() error {
	v.cancel()
	v.logger.Info("JWT verifier closed")
	return nil
}
