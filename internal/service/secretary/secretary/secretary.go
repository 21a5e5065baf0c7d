// Package secretary provides methods for credentials and session tokens.
package secretary

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "token"
	// RememberFor is the cookie lifetime when the user asks to be remembered.
	RememberFor = 30 * 24 * time.Hour
)

// Secretary defines object structure and its attributes.
type Secretary struct {
	key    []byte
	ttl    time.Duration
	secure bool
	cost   int
	now    func() time.Time
}

// NewSecretaryService initializes a secretary service. secure marks cookies as HTTPS-only.
func NewSecretaryService(c *config.SecretConfig, secure bool) (*Secretary, error) {
	if c == nil || c.SecretKey == "" {
		return nil, errors.New("token signing key is not set")
	}
	return &Secretary{
		key:    []byte(c.SecretKey),
		ttl:    time.Duration(c.TokenTTL),
		secure: secure,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}, nil
}

// NewToken signs a session token for a user.
func (s *Secretary) NewToken(userID, userType string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &modelclaims.SessionClaims{
		UserID:   userID,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	})
	return token.SignedString(s.key)
}

// ValidateToken checks signature and expiry and returns the embedded claims.
func (s *Secretary) ValidateToken(accessToken string) (*modelclaims.SessionClaims, error) {
	token, err := jwt.ParseWithClaims(accessToken, &modelclaims.SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*modelclaims.SessionClaims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, errors.New("invalid access token")
}

func (s *Secretary) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Secretary) ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SessionCookie wraps a token. Without remember the cookie lives for the browser session.
func (s *Secretary) SessionCookie(token string, remember bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(RememberFor / time.Second)
	}
	return cookie
}

// ClearCookie expires the session cookie.
func (s *Secretary) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}
