// Package postgres provides PostgreSQL infrastructure components.
// Death record events are written to an outbox table in the same transaction
// as the event store and relayed to Redpanda by the outbox relay.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
)

// OutboxEntry is one message waiting to be published for a death record.
// Messages are keyed by record id.
type OutboxEntry struct {
	ID          int64
	RecordID    string
	DocumentID  string
	EventType   string
	Topic       string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
	RetryCount  int
	LastError   *string
}

// OutboxConfig holds configuration for the outbox relay
type OutboxConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries is the number of failed publishes before an entry is dead-lettered
	MaxRetries      int
	DeadLetterTopic string
	// LockID is the advisory lock key shared by every relay instance
	LockID int64
}

// DefaultOutboxConfig returns sensible defaults
func DefaultOutboxConfig() OutboxConfig {
	return OutboxConfig{
		BatchSize:       100,
		PollInterval:    250 * time.Millisecond,
		MaxRetries:      5,
		DeadLetterTopic: "vrdr.outbox.dlq",
		LockID:          0x76726472, // "vrdr"
	}
}

// OutboxPublisher publishes one message with headers.
type OutboxPublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// DeadLetter is the message published for an entry that could not be delivered.
type DeadLetter struct {
	OriginalTopic string          `json:"original_topic"`
	EventType     string          `json:"event_type"`
	RecordID      string          `json:"record_id"`
	DocumentID    string          `json:"document_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	RetryCount    int             `json:"retry_count"`
	LastError     string          `json:"last_error,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewDeadLetter wraps an entry for the dead letter topic.
func NewDeadLetter(entry *OutboxEntry) *DeadLetter {
	dl := &DeadLetter{
		OriginalTopic: entry.Topic,
		EventType:     entry.EventType,
		RecordID:      entry.RecordID,
		DocumentID:    entry.DocumentID,
		Payload:       entry.Payload,
		RetryCount:    entry.RetryCount,
		CreatedAt:     entry.CreatedAt,
	}
	if entry.LastError != nil {
		dl.LastError = *entry.LastError
	}
	return dl
}

// delivery is where and how one entry is published.
type delivery struct {
	topic      string
	payload    []byte
	headers    map[string]string
	deadLetter bool
}

// route decides the delivery for entry: its own topic, or the dead letter
// topic once its retries are used up.
func (o *Outbox) route(entry *OutboxEntry) (*delivery, error) {
	d := &delivery{
		topic:   entry.Topic,
		payload: entry.Payload,
		headers: map[string]string{
			redpanda.HeaderEventType:  entry.EventType,
			redpanda.HeaderDocumentID: entry.DocumentID,
		},
	}
	if entry.RetryCount < o.config.MaxRetries {
		return d, nil
	}

	dl, err := json.Marshal(NewDeadLetter(entry))
	if err != nil {
		return nil, fmt.Errorf("encode dead letter: %w", err)
	}
	d.topic, d.payload, d.deadLetter = o.config.DeadLetterTopic, dl, true
	d.headers[redpanda.HeaderDeadLetterReason] = fmt.Sprintf("publish failed %d times", entry.RetryCount)
	return d, nil
}

// Outbox relays outbox rows to Redpanda.
type Outbox struct {
	pool      *pgxpool.Pool
	config    OutboxConfig
	publisher OutboxPublisher
	logger    *zap.Logger
	tracer    trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOutbox creates a new outbox relay
func NewOutbox(pool *pgxpool.Pool, publisher OutboxPublisher, cfg OutboxConfig, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultOutboxConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = def.DeadLetterTopic
	}
	if cfg.LockID == 0 {
		cfg.LockID = def.LockID
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Outbox{
		pool:      pool,
		config:    cfg,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer("outbox"),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// WriteEntry inserts entry inside tx, the transaction that appends the event it carries.
func WriteEntry(ctx context.Context, tx pgx.Tx, entry *OutboxEntry) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO outbox (record_id, document_id, event_type, topic, payload)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		entry.RecordID, entry.DocumentID, entry.EventType, entry.Topic, entry.Payload,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write outbox entry: %w", err)
	}
	return nil
}

// Start begins polling and publishing outbox entries
func (o *Outbox) Start() {
	go func() {
		defer close(o.done)
		ticker := time.NewTicker(o.config.PollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-o.ctx.Done():
				return
			case <-ticker.C:
				if err := o.relayBatch(o.ctx); err != nil {
					o.logger.Error("outbox batch failed", zap.Error(err))
				}
			}
		}
	}()
	o.logger.Info("outbox relay started",
		zap.Int("batch_size", o.config.BatchSize),
		zap.Duration("poll_interval", o.config.PollInterval))
}

// Stop finishes the batch in flight and stops polling
func (o *Outbox) Stop() {
	o.cancel()
	<-o.done
	o.logger.Info("outbox relay stopped")
}

// relayBatch publishes one batch in a single transaction. Rows stay locked
// until commit, and entries are published in creation order so a record's
// events reach the topic in the order they were appended. After a failure the
// record's later entries wait for the next batch.
func (o *Outbox) relayBatch(ctx context.Context) error {
	ctx, span := o.tracer.Start(ctx, "outbox.relay_batch")
	defer span.End()

	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var acquired bool
	if err := tx.QueryRow(ctx, "SELECT pg_try_advisory_xact_lock($1)", o.config.LockID).Scan(&acquired); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	if !acquired {
		return nil
	}

	entries, err := o.pending(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	span.SetAttributes(attribute.Int("batch_size", len(entries)))

	blocked := make(map[string]bool)
	for _, entry := range entries {
		if blocked[entry.RecordID] {
			continue
		}
		if err := o.relay(ctx, tx, entry); err != nil {
			blocked[entry.RecordID] = true
			o.logger.Error("failed to relay outbox entry",
				zap.Int64("id", entry.ID),
				zap.String("event_type", entry.EventType),
				zap.String("record_id", entry.RecordID),
				zap.Int("retries", entry.RetryCount),
				zap.Error(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (o *Outbox) pending(ctx context.Context, tx pgx.Tx) ([]*OutboxEntry, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, record_id, document_id, event_type, topic, payload, created_at, retry_count, last_error
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, o.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		if err := rows.Scan(&e.ID, &e.RecordID, &e.DocumentID, &e.EventType, &e.Topic,
			&e.Payload, &e.CreatedAt, &e.RetryCount, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// relay publishes one entry and marks it processed.
func (o *Outbox) relay(ctx context.Context, tx pgx.Tx, entry *OutboxEntry) error {
	ctx, span := o.tracer.Start(ctx, "outbox.relay",
		trace.WithAttributes(
			attribute.Int64("entry_id", entry.ID),
			attribute.String("event_type", entry.EventType),
			attribute.String("vrdr.record_id", entry.RecordID),
		))
	defer span.End()

	d, err := o.route(entry)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Bool("dead_letter", d.deadLetter))

	if err := o.publisher.Publish(ctx, d.topic, entry.RecordID, d.payload, d.headers); err != nil {
		if _, updateErr := tx.Exec(ctx,
			`UPDATE outbox SET retry_count = retry_count + 1, last_error = $1, updated_at = NOW() WHERE id = $2`,
			err.Error(), entry.ID); updateErr != nil {
			o.logger.Error("failed to update retry count", zap.Error(updateErr))
		}
		span.RecordError(err)
		return fmt.Errorf("publish: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE outbox SET processed_at = NOW(), dead_lettered = $2, updated_at = NOW() WHERE id = $1`,
		entry.ID, d.deadLetter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("mark processed: %w", err)
	}

	if d.deadLetter {
		o.logger.Warn("outbox entry dead-lettered",
			zap.Int64("id", entry.ID),
			zap.String("record_id", entry.RecordID),
			zap.String("topic", entry.Topic),
			zap.Int("retries", entry.RetryCount))
	}
	return nil
}

// Prune deletes entries published more than olderThan ago.
func (o *Outbox) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := o.pool.Exec(ctx,
		`DELETE FROM outbox WHERE processed_at < NOW() - $1::interval`, olderThan.String())
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

// OutboxStats holds outbox entry counts
type OutboxStats struct {
	Pending       int64      `json:"pending"`
	Retrying      int64      `json:"retrying"`
	Published     int64      `json:"published_24h"`
	DeadLettered  int64      `json:"dead_lettered_24h"`
	OldestPending *time.Time `json:"oldest_pending,omitempty"`
}

// Stats returns current outbox counts
func (o *Outbox) Stats(ctx context.Context) (*OutboxStats, error) {
	stats := &OutboxStats{}
	err := o.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE processed_at IS NULL),
			COUNT(*) FILTER (WHERE processed_at IS NULL AND retry_count > 0),
			COUNT(*) FILTER (WHERE processed_at > NOW() - INTERVAL '24 hours' AND NOT dead_lettered),
			COUNT(*) FILTER (WHERE processed_at > NOW() - INTERVAL '24 hours' AND dead_lettered),
			MIN(created_at) FILTER (WHERE processed_at IS NULL)
		FROM outbox`,
	).Scan(&stats.Pending, &stats.Retrying, &stats.Published, &stats.DeadLettered, &stats.OldestPending)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
