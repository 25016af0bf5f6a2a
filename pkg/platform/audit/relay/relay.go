// Package relay moves lifecycle events from the transactional outbox to Kafka.
//
// Each pass locks a batch of unpublished rows, produces them synchronously and
// marks them published in the same transaction. A failed produce rolls the
// transaction back, so rows are retried on the next pass (at-least-once).
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "consentledger/pkg/platform/audit"
	"consentledger/pkg/platform/tx"
)

// Outbox is the relay's view of the outbox store.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Producer is satisfied by *kgo.Client.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Relay publishes outbox rows to a Kafka topic.
type Relay struct {
	outbox   Outbox
	producer Producer
	tx       tx.Runner
	topic    string
	interval time.Duration
	batch    int
	logger   *slog.Logger
	metrics  *Metrics
}

// Config tunes a Relay.
type Config struct {
	Topic    string
	Interval time.Duration
	Batch    int
}

// New builds a relay. Zero interval and batch fall back to 2s and 100.
func New(outbox Outbox, producer Producer, runner tx.Runner, cfg Config, logger *slog.Logger, metrics *Metrics) *Relay {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	return &Relay{
		outbox:   outbox,
		producer: producer,
		tx:       runner,
		topic:    cfg.Topic,
		interval: cfg.Interval,
		batch:    cfg.Batch,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run polls the outbox until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for {
				n, err := r.RelayOnce(ctx)
				if err != nil {
					r.metrics.IncFailures()
					r.logger.WarnContext(ctx, "outbox relay pass failed", "error", err)
					break
				}
				// A full batch means more rows are likely waiting.
				if n < r.batch {
					break
				}
			}
		}
	}
}

// RelayOnce publishes at most one batch and returns how many rows it handled.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var published int
	err := r.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := r.outbox.FetchPending(ctx, r.batch)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		records := make([]*kgo.Record, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			records[i] = toRecord(r.topic, e)
			ids[i] = e.ID
		}

		if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			return fmt.Errorf("produce outbox batch: %w", err)
		}
		if err := r.outbox.MarkPublished(ctx, ids, time.Now()); err != nil {
			return err
		}
		published = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.metrics.AddPublished(published)
		r.logger.DebugContext(ctx, "relayed outbox batch", "count", published)
	}
	return published, nil
}

func toRecord(topic string, e audit.OutboxEntry) *kgo.Record {
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: []kgo.RecordHeader{
			{Key: "event_id", Value: []byte(e.ID.String())},
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "aggregate_type", Value: []byte(e.AggregateType)},
		},
		Timestamp: e.CreatedAt,
	}
}

// NewKafkaClient builds the producer client the relay publishes with.
func NewKafkaClient(brokers []string, topic string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic with the broker's default partition count and
// replication factor. An existing topic is not an error.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	_, err := kadm.NewClient(client).CreateTopic(ctx, -1, -1, nil, topic)
	if err == nil || errors.Is(err, kerr.TopicAlreadyExists) {
		return nil
	}
	return fmt.Errorf("ensure topic %s: %w", topic, err)
}
