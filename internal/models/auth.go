package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the payload of an access token.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Can reports whether the token holder has the capability. A nil receiver has none.
func (c *JWTClaims) Can(capability Capability) bool {
	return c != nil && c.Role.Has(capability)
}
