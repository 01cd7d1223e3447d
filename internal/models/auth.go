package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims are the claims issued by the external auth system. Only the
// subject (provider id) is consumed here.
type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
