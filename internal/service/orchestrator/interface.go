// Package orchestrator drives donations through the payment authority.
package orchestrator

import (
	"context"

	"github.com/danilovkiri/dk-go-donations/internal/models/modeldto"
)

// Orchestrator defines a set of methods for types implementing Orchestrator.
type Orchestrator interface {
	Initiate(ctx context.Context, donorID string, req modeldto.InitiateDonationRequest) (*modeldto.InitiateDonationResponse, error)
	CreateQuote(ctx context.Context, userID, donationID string) (*modeldto.CreateQuoteResponse, error)
	RequestGrant(ctx context.Context, userID, donationID string) (*modeldto.RequestGrantResponse, error)
	Complete(ctx context.Context, userID, donationID, interactRef string) (*modeldto.CompleteDonationResponse, error)
	WalletInfo(ctx context.Context, walletID string) (*modeldto.WalletInfoResponse, error)
}
