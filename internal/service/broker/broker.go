// Package broker publishes donation lifecycle events through a pool of workers.
package broker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/danilovkiri/dk-go-donations/internal/config"
	"github.com/danilovkiri/dk-go-donations/internal/models/modelqueue"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 5 * time.Second

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DropRecorder counts events that were given up on.
type DropRecorder interface {
	EventDropped()
}

type Broker struct {
	ctx     context.Context
	log     *zerolog.Logger
	queue   chan modelqueue.EventQueueEntry
	writer  MessageWriter
	dropped DropRecorder
	workers int
	retries int
	wg      *sync.WaitGroup
}

type publishWorker struct {
	ID int
	b  *Broker
}

// NewWriter returns a Kafka writer, or a writer that only logs when no brokers are configured.
func NewWriter(cfg *config.QueueConfig, log *zerolog.Logger) MessageWriter {
	if len(cfg.KafkaBrokers) == 0 {
		log.Warn().Msg("no kafka brokers configured, donation events will only be logged")
		return &logWriter{log: log}
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
}

func InitBroker(ctx context.Context, cfg *config.QueueConfig, writer MessageWriter, dropped DropRecorder, log *zerolog.Logger, wg *sync.WaitGroup) *Broker {
	workers := cfg.WorkerNumber
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &Broker{
		ctx:     ctx,
		log:     log,
		queue:   make(chan modelqueue.EventQueueEntry, size),
		writer:  writer,
		dropped: dropped,
		workers: workers,
		retries: cfg.RetryNumber,
		wg:      wg,
	}
}

// Publish enqueues an event without blocking. A full queue drops the event.
func (b *Broker) Publish(event modelqueue.DonationEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	b.enqueue(modelqueue.EventQueueEntry{Event: event})
}

func (b *Broker) enqueue(entry modelqueue.EventQueueEntry) {
	select {
	case b.queue <- entry:
	default:
		b.drop(entry, "queue is full")
	}
}

func (b *Broker) drop(entry modelqueue.EventQueueEntry, reason string) {
	b.log.Warn().Str("type", entry.Event.Type).Str("transaction_id", entry.Event.TransactionID).
		Int("retries", entry.RetryCount).Msg("dropping donation event: " + reason)
	if b.dropped != nil {
		b.dropped.EventDropped()
	}
}

// ListenAndProcess starts the workers. They drain the queue and stop once the context is done.
func (b *Broker) ListenAndProcess() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.log.Info().Int("workers", b.workers).Msg("started publishing donation events")
		g := new(errgroup.Group)
		for i := 0; i < b.workers; i++ {
			w := &publishWorker{ID: i, b: b}
			g.Go(w.processAsync)
		}
		if err := g.Wait(); err != nil {
			b.log.Error().Err(err).Msg("event worker stopped with error")
		}
		if err := b.writer.Close(); err != nil {
			b.log.Error().Err(err).Msg("closing event writer failed")
		}
		b.log.Info().Msg("stopped publishing donation events")
	}()
}

func (w *publishWorker) processAsync() error {
	for {
		select {
		case <-w.b.ctx.Done():
			w.drain()
			return nil
		case entry := <-w.b.queue:
			w.handle(context.Background(), entry)
		}
	}
}

// drain flushes whatever is still queued at shutdown, once and without retries.
func (w *publishWorker) drain() {
	for {
		select {
		case entry := <-w.b.queue:
			if err := w.write(context.Background(), entry); err != nil {
				w.b.drop(entry, err.Error())
			}
		default:
			return
		}
	}
}

func (w *publishWorker) handle(ctx context.Context, entry modelqueue.EventQueueEntry) {
	err := w.write(ctx, entry)
	if err == nil {
		return
	}
	if entry.RetryCount >= w.b.retries {
		w.b.drop(entry, "retry limit exceeded")
		return
	}
	w.b.log.Warn().Err(err).Int("worker", w.ID).Str("transaction_id", entry.Event.TransactionID).
		Msg("could not publish donation event, sending back to queue")
	entry.RetryCount++
	w.b.enqueue(entry)
}

func (w *publishWorker) write(ctx context.Context, entry modelqueue.EventQueueEntry) error {
	value, err := json.Marshal(entry.Event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return w.b.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(entry.Event.TransactionID),
		Value: value,
		Time:  entry.Event.OccurredAt,
	})
}

type logWriter struct {
	log *zerolog.Logger
}

func (l *logWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		l.log.Info().Str("key", string(m.Key)).RawJSON("event", m.Value).Msg("donation event")
	}
	return nil
}

func (l *logWriter) Close() error {
	return nil
}
