// Package middleware provides various middleware functionality.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	"github.com/rs/zerolog"
)

type ctxKey int

const claimsKey ctxKey = iota

// Authenticator validates a session token.
type Authenticator interface {
	Authenticate(token string) (*modelclaims.SessionClaims, error)
}

// TokenHandler sets object structure.
type TokenHandler struct {
	auth Authenticator
	log  *zerolog.Logger
}

// NewTokenHandler initializes a new token handler.
func NewTokenHandler(auth Authenticator, log *zerolog.Logger) (*TokenHandler, error) {
	if auth == nil {
		return nil, errors.New("nil authenticator object was found")
	}
	if log == nil {
		return nil, errors.New("nil logger object was found")
	}
	return &TokenHandler{auth: auth, log: log}, nil
}

// TokenHandle rejects requests without a valid session token and puts its claims into the request context.
// The token is read from the session cookie, falling back to a bearer Authorization header.
func (c *TokenHandler) TokenHandle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := c.auth.Authenticate(tokenFromRequest(r))
		if err != nil {
			c.log.Debug().Err(err).Str("path", r.URL.Path).Msg("request rejected")
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(secretary.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *modelclaims.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns the claims stored by TokenHandle.
func ClaimsFromContext(ctx context.Context) (*modelclaims.SessionClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(*modelclaims.SessionClaims)
	return claims, ok && claims != nil
}

// RequireUserType lets through only callers of the given user type. It must run after TokenHandle.
func RequireUserType(userType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			if claims.UserType != userType {
				writeError(w, http.StatusForbidden, userType+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(modeldto.ErrorResponse{Error: msg})
}
