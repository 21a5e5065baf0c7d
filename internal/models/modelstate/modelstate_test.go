package modelstate

import (
	"testing"

	"github.com/danilovkiri/dk-go-donations/internal/models/modelpayments"
	"github.com/stretchr/testify/assert"
)

func TestTransitionGuards(t *testing.T) {
	quote := &modelpayments.Quote{ID: "q1"}
	tests := []struct {
		name          string
		state         DonationState
		quote, grant  bool
		completeReady bool
	}{
		{name: "initiated", state: DonationState{Status: StatusInitiated}, quote: true},
		{name: "quoted", state: DonationState{Status: StatusQuoteCreated, Quote: quote}, quote: true, grant: true},
		{name: "quoted without quote", state: DonationState{Status: StatusQuoteCreated}, quote: true},
		{name: "pending", state: DonationState{Status: StatusGrantPending, Quote: quote, ContinueURI: "c"}, grant: true, completeReady: true},
		{name: "failed", state: DonationState{Status: StatusFailed, Quote: quote, ContinueURI: "c"}},
		{name: "completed", state: DonationState{Status: StatusCompleted, Quote: quote}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.quote, tt.state.CanQuote())
			assert.Equal(t, tt.grant, tt.state.CanRequestGrant())
			assert.Equal(t, tt.completeReady, tt.state.CanComplete())
		})
	}
}
