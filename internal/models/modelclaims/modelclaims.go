// Package modelclaims provides types for token authorization.

package modelclaims

import "github.com/golang-jwt/jwt"

// SessionClaims are embedded into every session token.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.StandardClaims
}
