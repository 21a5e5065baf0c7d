// Package secretary provides methods for credentials and session tokens.
package secretary

import (
	"net/http"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
)

// Secretary defines a set of methods for types implementing Secretary.
type Secretary interface {
	NewToken(userID, userType string) (string, error)
	ValidateToken(accessToken string) (*modelclaims.SessionClaims, error)
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) bool
	SessionCookie(token string, remember bool) *http.Cookie
	ClearCookie() *http.Cookie
}
