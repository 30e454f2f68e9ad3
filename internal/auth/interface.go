package auth

import "portal/internal/domain/models"

// JWTVerifier defines the interface for JWT token verification.
// The middleware only needs parsed claims, not how they were verified.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(tokenString string) (*models.PortalClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
