package handlers

import (
	"errors"
	"net/http"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	storageErrors "github.com/danilovkiri/dk-go-donations/internal/storage/errors"
)

// HandleRegister processes user register requests.
func (h *Handler) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		var req modeldto.RegisterRequest
		if err := decodeBody(r, &req, false); err != nil {
			h.handleError(w, r, "register", err)
			return
		}
		user, cookie, err := h.service.Register(ctx, req)
		if err != nil {
			var alreadyExists *storageErrors.AlreadyExistsError
			if errors.As(err, &alreadyExists) {
				h.log.Info().Str("username", req.Username).Msg("register rejected: duplicate account")
				writeError(w, http.StatusBadRequest, "email or username already registered")
				return
			}
			h.handleError(w, r, "register", err)
			return
		}
		h.log.Info().Str("user_id", user.ID).Msg("user registered")
		http.SetCookie(w, cookie)
		writeJSON(w, http.StatusCreated, modeldto.UserResponse{User: user})
	}
}

// HandleLogin processes user login requests.
func (h *Handler) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		var req modeldto.LoginRequest
		if err := decodeBody(r, &req, false); err != nil {
			h.handleError(w, r, "login", err)
			return
		}
		user, cookie, err := h.service.Login(ctx, req)
		if err != nil {
			h.handleError(w, r, "login", err)
			return
		}
		http.SetCookie(w, cookie)
		writeJSON(w, http.StatusOK, modeldto.UserResponse{User: user})
	}
}

func (h *Handler) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, h.service.Logout())
		writeJSON(w, http.StatusOK, modeldto.OKResponse{OK: true})
	}
}

// HandleMe returns the authenticated user.
func (h *Handler) HandleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		user, err := h.service.GetCurrentUser(ctx, userID(r))
		if err != nil {
			h.handleError(w, r, "get current user", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.UserResponse{User: user})
	}
}
