package redpanda

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConsumerConfig holds configuration for the Redpanda consumer
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string

	SessionTimeout    time.Duration
	HeartbeatInterval time.Duration
	// MaxPollRecords bounds the records handled between offset commits.
	MaxPollRecords int
	FetchMaxBytes  int32
	// FromLatest starts a new group at the end of its topics instead of the beginning.
	FromLatest bool
}

// DefaultConsumerConfig returns defaults for the submission consumer
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Brokers:           []string{"localhost:9092"},
		GroupID:           "vrdr-submission",
		Topics:            []string{TopicSubmissionRequests},
		SessionTimeout:    45 * time.Second,
		HeartbeatInterval: 3 * time.Second,
		MaxPollRecords:    100,
		FetchMaxBytes:     16 * 1024 * 1024,
	}
}

// MessageHandler is called for each consumed message. A returned error leaves
// the message and the rest of its partition's poll uncommitted.
type MessageHandler func(ctx context.Context, msg *ConsumedMessage) error

// ConsumedMessage is one record read from a death record topic.
type ConsumedMessage struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// EventType returns the death record event type header, if set.
func (m *ConsumedMessage) EventType() string { return m.Headers[HeaderEventType] }

// DocumentID returns the document id header, if set.
func (m *ConsumedMessage) DocumentID() string { return m.Headers[HeaderDocumentID] }

func newConsumedMessage(record *kgo.Record) *ConsumedMessage {
	msg := &ConsumedMessage{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Key:       record.Key,
		Value:     record.Value,
		Headers:   make(map[string]string, len(record.Headers)),
		Timestamp: record.Timestamp,
	}
	for _, h := range record.Headers {
		msg.Headers[h.Key] = string(h.Value)
	}
	return msg
}

// Consumer reads a consumer group's topics. Partitions of one poll are handled
// concurrently, records within a partition in order, and offsets are committed
// once the whole poll has been handled.
type Consumer struct {
	client     *kgo.Client
	maxRecords int
	logger     *zap.Logger
	tracer     trace.Tracer
	handler    MessageHandler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	handled    atomic.Int64
	failed     atomic.Int64
	lastCommit atomic.Int64
}

// NewConsumer creates a new Redpanda consumer
func NewConsumer(cfg ConsumerConfig, handler MessageHandler, logger *zap.Logger) (*Consumer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if cfg.GroupID == "" || len(cfg.Topics) == 0 {
		return nil, errors.New("consumer group and topics are required")
	}

	reset := kgo.NewOffset().AtStart()
	if cfg.FromLatest {
		reset = kgo.NewOffset().AtEnd()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.SessionTimeout(cfg.SessionTimeout),
		kgo.HeartbeatInterval(cfg.HeartbeatInterval),
		kgo.FetchMaxBytes(cfg.FetchMaxBytes),
		kgo.ConsumeResetOffset(reset),
		kgo.DisableAutoCommit(),
		kgo.OnPartitionsAssigned(func(_ context.Context, _ *kgo.Client, assigned map[string][]int32) {
			logger.Info("partitions assigned", zap.Any("partitions", assigned))
		}),
		kgo.OnPartitionsRevoked(func(ctx context.Context, cl *kgo.Client, revoked map[string][]int32) {
			logger.Info("partitions revoked", zap.Any("partitions", revoked))
			if err := cl.CommitMarkedOffsets(ctx); err != nil {
				logger.Warn("commit on revoke failed", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		client:     client,
		maxRecords: cfg.MaxPollRecords,
		logger:     logger.With(zap.String("group", cfg.GroupID)),
		tracer:     otel.Tracer("redpanda-consumer"),
		handler:    handler,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// Start begins consuming messages
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for c.poll() {
		}
	}()
}

// Stop waits for the in-flight poll, commits what it handled and closes the client
func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.client.CommitMarkedOffsets(ctx); err != nil {
		c.logger.Warn("error committing offsets on stop", zap.Error(err))
	}
	c.client.Close()
}

// poll handles one batch of records and reports whether to keep polling.
func (c *Consumer) poll() bool {
	fetches := c.client.PollRecords(c.ctx, c.maxRecords)
	if fetches.IsClientClosed() || c.ctx.Err() != nil {
		return false
	}

	fetches.EachError(func(topic string, partition int32, err error) {
		c.logger.Error("fetch error",
			zap.String("topic", topic),
			zap.Int32("partition", partition),
			zap.Error(err))
		c.failed.Add(1)
	})

	var wg sync.WaitGroup
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		if len(p.Records) == 0 {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, record := range p.Records {
				if err := c.handle(record); err != nil {
					// the rest of the partition stays unmarked and is redelivered
					return
				}
			}
		}()
	})
	wg.Wait()

	if err := c.client.CommitMarkedOffsets(c.ctx); err != nil {
		if c.ctx.Err() == nil {
			c.logger.Error("failed to commit offsets", zap.Error(err))
		}
		return true
	}
	c.lastCommit.Store(time.Now().UnixNano())
	return true
}

// handle passes one record to the handler and marks it for commit on success.
func (c *Consumer) handle(record *kgo.Record) error {
	msg := newConsumedMessage(record)

	ctx := extractTraceContext(c.ctx, record)
	ctx, span := c.tracer.Start(ctx, "redpanda.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("topic", record.Topic),
			attribute.Int64("partition", int64(record.Partition)),
			attribute.Int64("offset", record.Offset),
			attribute.String("event_type", msg.EventType()),
		))
	defer span.End()

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("message handler failed",
			zap.String("topic", record.Topic),
			zap.Int32("partition", record.Partition),
			zap.Int64("offset", record.Offset),
			zap.String("key", string(record.Key)),
			zap.Error(err))
		span.RecordError(err)
		c.failed.Add(1)
		return err
	}

	c.client.MarkCommitRecords(record)
	c.handled.Add(1)
	return nil
}

// ConsumerStats holds consumer statistics
type ConsumerStats struct {
	MessagesHandled int64     `json:"messages_handled"`
	ErrorCount      int64     `json:"error_count"`
	LastCommitTime  time.Time `json:"last_commit_time,omitempty"`
}

// Stats returns current consumer statistics
func (c *Consumer) Stats() ConsumerStats {
	s := ConsumerStats{MessagesHandled: c.handled.Load(), ErrorCount: c.failed.Load()}
	if ns := c.lastCommit.Load(); ns > 0 {
		s.LastCommitTime = time.Unix(0, ns)
	}
	return s
}
