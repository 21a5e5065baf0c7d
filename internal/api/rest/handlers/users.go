package handlers

import (
	"net/http"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/go-chi/chi"
)

// HandleGetProfile returns the public profile of an active user.
func (h *Handler) HandleGetProfile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		profile, err := h.service.GetProfile(ctx, chi.URLParam(r, "id"))
		if err != nil {
			h.handleError(w, r, "get profile", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.ProfileResponse{User: profile})
	}
}

// HandleSearchProfiles matches the q parameter against usernames and display names.
func (h *Handler) HandleSearchProfiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		results, err := h.service.SearchProfiles(ctx, r.URL.Query().Get("q"))
		if err != nil {
			h.handleError(w, r, "search profiles", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.SearchResponse{Results: results})
	}
}

func (h *Handler) HandleSetVerification() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		var req modeldto.VerificationRequest
		if err := decodeBody(r, &req, false); err != nil {
			h.handleError(w, r, "set verification status", err)
			return
		}
		id := chi.URLParam(r, "id")
		if err := h.service.SetVerificationStatus(ctx, id, req); err != nil {
			h.handleError(w, r, "set verification status", err)
			return
		}
		h.log.Info().Str("user_id", id).Str("status", req.Status).Str("admin_id", userID(r)).Msg("verification status changed")
		writeJSON(w, http.StatusOK, modeldto.OKResponse{OK: true})
	}
}

// HandleListWallets lists the caller's wallets, newest first.
func (h *Handler) HandleListWallets() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		wallets, err := h.service.ListWallets(ctx, userID(r))
		if err != nil {
			h.handleError(w, r, "list wallets", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.WalletsResponse{Wallets: wallets})
	}
}

func (h *Handler) HandleAddWallet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		var req modeldto.AddWalletRequest
		if err := decodeBody(r, &req, false); err != nil {
			h.handleError(w, r, "add wallet", err)
			return
		}
		wallet, err := h.service.AddWallet(ctx, userID(r), req)
		if err != nil {
			h.handleError(w, r, "add wallet", err)
			return
		}
		writeJSON(w, http.StatusCreated, wallet)
	}
}
