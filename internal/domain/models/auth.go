package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// PortalClaims represents the JWT claims issued to portal users.
type PortalClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	Role                 string `json:"role"`
	EnterpriseID         int64  `json:"enterprise_id"`
	ServiceID            *int64 `json:"service_id,omitempty"`
	ViewAllServices      bool   `json:"view_all_services"`
}

// GetUserID returns the numeric user ID carried in the subject claim.
func (c *PortalClaims) GetUserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}
