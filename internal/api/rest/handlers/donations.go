package handlers

import (
	"net/http"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
	"github.com/go-chi/chi"
)

// HandleWalletInfo returns a wallet with its resolved wallet address document.
func (h *Handler) HandleWalletInfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.authorityContext(r)
		defer cancel()
		info, err := h.donations.WalletInfo(ctx, chi.URLParam(r, "walletId"))
		if err != nil {
			h.handleError(w, r, "get wallet info", err)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

// HandleInitiate starts a donation.
func (h *Handler) HandleInitiate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.authorityContext(r)
		defer cancel()
		var req modeldto.InitiateDonationRequest
		if err := decodeBody(r, &req, false); err != nil {
			h.handleError(w, r, "initiate donation", err)
			return
		}
		resp, err := h.donations.Initiate(ctx, userID(r), req)
		if err != nil {
			h.handleError(w, r, "initiate donation", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) HandleCreateQuote() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.authorityContext(r)
		defer cancel()
		resp, err := h.donations.CreateQuote(ctx, userID(r), chi.URLParam(r, "donationId"))
		if err != nil {
			h.handleError(w, r, "create quote", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *Handler) HandleRequestGrant() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.authorityContext(r)
		defer cancel()
		resp, err := h.donations.RequestGrant(ctx, userID(r), chi.URLParam(r, "donationId"))
		if err != nil {
			h.handleError(w, r, "request grant", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleComplete finishes an authorized donation. The body with the interaction reference is optional.
func (h *Handler) HandleComplete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.authorityContext(r)
		defer cancel()
		var req modeldto.CompleteDonationRequest
		if err := decodeBody(r, &req, true); err != nil {
			h.handleError(w, r, "complete donation", err)
			return
		}
		resp, err := h.donations.Complete(ctx, userID(r), chi.URLParam(r, "donationId"), req.InteractRef)
		if err != nil {
			h.handleError(w, r, "complete donation", err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleHistory lists the caller's donations filtered by the type parameter.
func (h *Handler) HandleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		donations, err := h.service.GetHistory(ctx, userID(r), r.URL.Query().Get("type"))
		if err != nil {
			h.handleError(w, r, "get history", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.HistoryResponse{Donations: donations})
	}
}

func (h *Handler) HandleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		defer cancel()
		stats, err := h.service.GetStats(ctx, userID(r))
		if err != nil {
			h.handleError(w, r, "get stats", err)
			return
		}
		writeJSON(w, http.StatusOK, modeldto.StatsResponse{Stats: stats})
	}
}
