// Package modelqueue provides types for queueing pieces of data.

package modelqueue

import "time"

// Donation lifecycle event types.
const (
	EventInitiated    = "donation.initiated"
	EventQuoted       = "donation.quoted"
	EventGrantPending = "donation.grant_pending"
	EventCompleted    = "donation.completed"
	EventFailed       = "donation.failed"
)

// DonationEvent is the payload published for every donation transition.
type DonationEvent struct {
	Type          string    `json:"type"`
	TransactionID string    `json:"transaction_id"`
	InitiatorID   string    `json:"initiator_id"`
	RecipientID   string    `json:"recipient_id,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	Status        string    `json:"status"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventQueueEntry wraps an event travelling through the broker queue.
type EventQueueEntry struct {
	Event      DonationEvent
	RetryCount int
}
