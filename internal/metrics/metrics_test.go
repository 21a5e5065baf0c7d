package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := NewDonationMetrics()
	m.Transition("initiated")
	m.Transition("initiated")
	m.Failure("create quote")
	m.EventDropped()
	m.AuthorityCall("quote", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("initiated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FailuresTotal.WithLabelValues("create quote")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDroppedTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.AuthorityDuration))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewDonationMetrics()
	m.Transition("completed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `donation_transitions_total{status="completed"} 1`)
}
