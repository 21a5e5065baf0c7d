// Package modelstate provides the transient state kept between donation steps.
package modelstate

import (
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
)

// Status is a donation flow status.
type Status string

// Donation flow statuses.
const (
	StatusInitiated    Status = "initiated"
	StatusQuoteCreated Status = "quote_created"
	StatusGrantPending Status = "grant_pending"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DonationState is keyed by the donation transaction id. Version is bumped on every write.
type DonationState struct {
	TransactionID   string                         `json:"transaction_id"`
	InitiatorID     string                         `json:"initiator_id"`
	IncomingPayment *modelpayments.IncomingPayment `json:"incoming_payment,omitempty"`
	Quote           *modelpayments.Quote           `json:"quote,omitempty"`
	ContinueURI     string                         `json:"continue_uri,omitempty"`
	ContinueToken   string                         `json:"continue_token,omitempty"`
	InteractionURL  string                         `json:"interaction_url,omitempty"`
	Status          Status                         `json:"status"`
	Version         int64                          `json:"version"`
	UpdatedAt       time.Time                      `json:"updated_at"`
}

// CanQuote reports whether a quote may be (re)created.
func (s *DonationState) CanQuote() bool {
	return s.Status == StatusInitiated || s.Status == StatusQuoteCreated
}

// CanRequestGrant reports whether an outgoing payment grant may be (re)requested.
func (s *DonationState) CanRequestGrant() bool {
	return s.Quote != nil && (s.Status == StatusQuoteCreated || s.Status == StatusGrantPending)
}

// CanComplete reports whether the flow awaits grant continuation.
func (s *DonationState) CanComplete() bool {
	return s.Status == StatusGrantPending && s.ContinueURI != "" && s.Quote != nil
}
