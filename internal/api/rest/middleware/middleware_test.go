package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelclaims"
	"github.com/danilovkiri/dk-go-donations/internal/service/secretary/secretary"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuthenticator map[string]*modelclaims.SessionClaims

func (a staticAuthenticator) Authenticate(token string) (*modelclaims.SessionClaims, error) {
	claims, ok := a[token]
	if !ok {
		return nil, errors.New("unknown token")
	}
	return claims, nil
}

func newTokenHandler(t *testing.T) *TokenHandler {
	t.Helper()
	log := zerolog.Nop()
	h, err := NewTokenHandler(staticAuthenticator{
		"user-token":  {UserID: "u1", UserType: "individual"},
		"admin-token": {UserID: "a1", UserType: "admin"},
	}, &log)
	require.NoError(t, err)
	return h
}

func echoUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = w.Write([]byte(claims.UserID))
}

func TestTokenHandle(t *testing.T) {
	h := newTokenHandler(t).TokenHandle(http.HandlerFunc(echoUser))
	tests := []struct {
		name       string
		prepare    func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{name: "no token", prepare: func(r *http.Request) {}, wantStatus: http.StatusUnauthorized},
		{
			name:       "cookie",
			prepare:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: secretary.CookieName, Value: "user-token"}) },
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:       "bearer header",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer admin-token") },
			wantStatus: http.StatusOK,
			wantBody:   "a1",
		},
		{
			name: "cookie wins over header",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: secretary.CookieName, Value: "user-token"})
				r.Header.Set("Authorization", "Bearer admin-token")
			},
			wantStatus: http.StatusOK,
			wantBody:   "u1",
		},
		{
			name:       "invalid token",
			prepare:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer forged") },
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.prepare(r)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRequireUserType(t *testing.T) {
	h := newTokenHandler(t).TokenHandle(RequireUserType("admin")(http.HandlerFunc(echoUser)))

	r := httptest.NewRequest(http.MethodPut, "/", nil)
	r.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"admin access required"}`, w.Body.String())

	r = httptest.NewRequest(http.MethodPut, "/", nil)
	r.Header.Set("Authorization", "Bearer admin-token")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	RequireUserType("admin")(http.HandlerFunc(echoUser)).ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }
	l.lastCleanup = now
	h := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))

	// one token is refilled every 30 seconds
	now = now.Add(30 * time.Second)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1003"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1004"))

	now = now.Add(10 * time.Minute)
	call("10.0.0.3:1000")
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "10.0.0.1")
	assert.Contains(t, l.visitors, "10.0.0.3")
}
