package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelqueue"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	messages []kafka.Message
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

type dropCounter struct {
	mu sync.Mutex
	n  int
}

func (d *dropCounter) EventDropped() {
	d.mu.Lock()
	d.n++
	d.mu.Unlock()
}

func (d *dropCounter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

func startBroker(t *testing.T, cfg *config.QueueConfig, w MessageWriter, drops *dropCounter) (*Broker, context.CancelFunc, *sync.WaitGroup) {
	t.Helper()
	log := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	wg := &sync.WaitGroup{}
	b := InitBroker(ctx, cfg, w, drops, &log, wg)
	b.ListenAndProcess()
	return b, cancel, wg
}

func TestPublishDelivers(t *testing.T) {
	w := &fakeWriter{}
	b, cancel, wg := startBroker(t, &config.QueueConfig{WorkerNumber: 2, RetryNumber: 3, QueueSize: 8}, w, &dropCounter{})

	b.Publish(modelqueue.DonationEvent{Type: modelqueue.EventInitiated, TransactionID: "tx-1", Status: "initiated"})
	require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
	assert.True(t, w.closed)

	var got modelqueue.DonationEvent
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &got))
	assert.Equal(t, "tx-1", string(w.messages[0].Key))
	assert.Equal(t, modelqueue.EventInitiated, got.Type)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestRetriesThenDrops(t *testing.T) {
	t.Run("recovers before retries run out", func(t *testing.T) {
		w := &fakeWriter{failures: 2}
		drops := &dropCounter{}
		b, cancel, wg := startBroker(t, &config.QueueConfig{WorkerNumber: 1, RetryNumber: 3, QueueSize: 8}, w, drops)
		b.Publish(modelqueue.DonationEvent{TransactionID: "tx-1"})
		require.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 10*time.Millisecond)
		cancel()
		wg.Wait()
		assert.Zero(t, drops.count())
	})

	t.Run("gives up once retries run out", func(t *testing.T) {
		w := &fakeWriter{failures: 100}
		drops := &dropCounter{}
		b, cancel, wg := startBroker(t, &config.QueueConfig{WorkerNumber: 1, RetryNumber: 1, QueueSize: 8}, w, drops)
		b.Publish(modelqueue.DonationEvent{TransactionID: "tx-1"})
		require.Eventually(t, func() bool { return drops.count() == 1 }, time.Second, 10*time.Millisecond)
		cancel()
		wg.Wait()
		assert.Zero(t, w.count())
	})
}

func TestFullQueueDrops(t *testing.T) {
	log := zerolog.Nop()
	drops := &dropCounter{}
	b := InitBroker(context.Background(), &config.QueueConfig{WorkerNumber: 1, QueueSize: 1}, &fakeWriter{}, drops, &log, &sync.WaitGroup{})
	b.Publish(modelqueue.DonationEvent{TransactionID: "tx-1"})
	b.Publish(modelqueue.DonationEvent{TransactionID: "tx-2"})
	assert.Equal(t, 1, drops.count())
}

func TestNewWriterWithoutBrokersLogs(t *testing.T) {
	log := zerolog.Nop()
	w := NewWriter(&config.QueueConfig{}, &log)
	_, ok := w.(*logWriter)
	assert.True(t, ok)
	assert.NoError(t, w.WriteMessages(context.Background(), kafka.Message{Key: []byte("k"), Value: []byte(`{}`)}))
}
