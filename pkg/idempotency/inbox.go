// Package idempotency records which messages a handler has already acted on.
// Keys are deterministic hashes of the business identity of a message, so a
// redelivered message maps to the claim its first delivery created.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Status is the state of a claim.
type Status string

const (
	StatusClaimed Status = "claimed"
	StatusDone    Status = "done"
	StatusRetry   Status = "retry"
	StatusFailed  Status = "failed"
)

// Outcome says how Process produced its result.
type Outcome int

const (
	// Processed means the handler ran for the first time.
	Processed Outcome = iota
	// Recovered means the handler ran again after an earlier attempt failed
	// or was abandoned.
	Recovered
	// Replayed means an earlier attempt finished and its result was returned
	// without running the handler.
	Replayed
)

func (o Outcome) String() string {
	switch o {
	case Processed:
		return "processed"
	case Recovered:
		return "recovered"
	case Replayed:
		return "replayed"
	}
	return "unknown"
}

// InboxConfig holds configuration for the inbox
type InboxConfig struct {
	Table string
	// TTL is how long a claim is remembered after it was first made.
	TTL time.Duration
	// SweepInterval is how often abandoned claims are released and expired ones deleted.
	SweepInterval time.Duration
	// ClaimTimeout is how long a claim may stay claimed before another delivery may take it over.
	ClaimTimeout time.Duration
}

// DefaultInboxConfig returns sensible defaults
func DefaultInboxConfig() InboxConfig {
	return InboxConfig{
		Table:         "submission_inbox",
		TTL:           30 * 24 * time.Hour,
		SweepInterval: time.Hour,
		ClaimTimeout:  5 * time.Minute,
	}
}

// Inbox claims message keys in PostgreSQL before a handler runs.
type Inbox struct {
	pool   *pgxpool.Pool
	config InboxConfig
	logger *zap.Logger
	tracer trace.Tracer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewInbox creates a new inbox
func NewInbox(pool *pgxpool.Pool, cfg InboxConfig, logger *zap.Logger) *Inbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultInboxConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.ClaimTimeout <= 0 {
		cfg.ClaimTimeout = def.ClaimTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Inbox{
		pool:   pool,
		config: cfg,
		logger: logger,
		tracer: otel.Tracer("inbox"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

var (
	// ErrDuplicateMessage is returned when the key is claimed by a live attempt.
	ErrDuplicateMessage = errors.New("message is being processed by another delivery")
	// ErrPreviouslyFailed is returned when an earlier attempt failed terminally.
	ErrPreviouslyFailed = errors.New("message previously failed permanently")
)

// terminalError marks a handler failure that must not be retried.
type terminalError struct{ err error }

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// Terminal wraps err so the claim is closed as failed and later deliveries
// get ErrPreviouslyFailed.
func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &terminalError{err: err}
}

// IsTerminal reports whether err was wrapped with Terminal.
func IsTerminal(err error) bool {
	var t *terminalError
	return errors.As(err, &t)
}

// ProcessResult is what Process returns on success.
type ProcessResult struct {
	Outcome Outcome
	// Attempt counts the times the handler has been started for this key.
	Attempt int
	Result  json.RawMessage
}

// ProcessFunc is the function signature for idempotent handlers
type ProcessFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// claim is the row state seen while taking a key.
type claim struct {
	prior   Status
	exists  bool
	attempt int
	result  json.RawMessage
}

// Process claims key for handlerName and runs fn unless an earlier delivery
// already finished it.
func (i *Inbox) Process(ctx context.Context, key, handlerName string, payload json.RawMessage, fn ProcessFunc) (*ProcessResult, error) {
	ctx, span := i.tracer.Start(ctx, "inbox.process",
		trace.WithAttributes(
			attribute.String("idempotency_key", key),
			attribute.String("handler", handlerName),
		))
	defer span.End()

	c, err := i.claim(ctx, key, handlerName, payload)
	if err != nil {
		return nil, err
	}
	if c.prior == StatusDone {
		span.SetAttributes(attribute.String("outcome", Replayed.String()))
		return &ProcessResult{Outcome: Replayed, Attempt: c.attempt, Result: c.result}, nil
	}

	outcome := Processed
	if c.exists {
		outcome = Recovered
	}
	span.SetAttributes(
		attribute.String("outcome", outcome.String()),
		attribute.Int("attempt", c.attempt),
	)

	result, handlerErr := fn(ctx, payload)
	if handlerErr != nil {
		status := StatusRetry
		if IsTerminal(handlerErr) {
			status = StatusFailed
		}
		if err := i.release(ctx, key, status, nil, handlerErr.Error()); err != nil {
			i.logger.Error("failed to release claim",
				zap.String("key", key), zap.String("status", string(status)), zap.Error(err))
		}
		span.RecordError(handlerErr)
		return nil, handlerErr
	}

	if err := i.release(ctx, key, StatusDone, result, ""); err != nil {
		// a redelivery waits out ClaimTimeout and runs the handler again
		i.logger.Error("failed to record result", zap.String("key", key), zap.Error(err))
	}
	return &ProcessResult{Outcome: outcome, Attempt: c.attempt, Result: result}, nil
}

// claim locks the row for key and takes it unless it is done, failed, or
// held by a live attempt.
func (i *Inbox) claim(ctx context.Context, key, handlerName string, payload json.RawMessage) (*claim, error) {
	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim: %w", err)
	}
	defer tx.Rollback(ctx)

	c := &claim{}
	var claimedAt time.Time
	err = tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT status, attempts, result, claimed_at FROM %s WHERE key = $1 FOR UPDATE`, i.config.Table),
		key).Scan(&c.prior, &c.attempt, &c.result, &claimedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("read claim: %w", err)
	default:
		c.exists = true
	}

	if c.exists {
		switch c.prior {
		case StatusDone:
			return c, nil
		case StatusFailed:
			return nil, fmt.Errorf("%w: %s", ErrPreviouslyFailed, key)
		case StatusClaimed:
			if time.Since(claimedAt) <= i.config.ClaimTimeout {
				return nil, ErrDuplicateMessage
			}
			i.logger.Warn("taking over abandoned claim", zap.String("key", key), zap.Int("attempts", c.attempt))
		}
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			UPDATE %s SET status = $2, handler = $3, attempts = attempts + 1,
				claimed_at = NOW(), updated_at = NOW()
			WHERE key = $1`, i.config.Table),
			key, StatusClaimed, handlerName)
	} else {
		_, err = tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (key, handler, status, payload, attempts, claimed_at, updated_at, expires_at)
			VALUES ($1, $2, $3, $4, 1, NOW(), NOW(), $5)`, i.config.Table),
			key, handlerName, StatusClaimed, payload, time.Now().Add(i.config.TTL))
	}
	if err != nil {
		return nil, fmt.Errorf("write claim: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	c.attempt++
	return c, nil
}

func (i *Inbox) release(ctx context.Context, key string, status Status, result json.RawMessage, lastErr string) error {
	_, err := i.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s
		SET status = $2, result = COALESCE($3, result), last_error = NULLIF($4, ''), updated_at = NOW()
		WHERE key = $1`, i.config.Table),
		key, status, result, lastErr)
	return err
}

// GenerateKey creates a deterministic idempotency key from the parts that
// identify a message, such as a record id and a document id.
func GenerateKey(parts ...string) string {
	trimmed := make([]string, len(parts))
	for n, p := range parts {
		trimmed[n] = strings.TrimSpace(p)
	}
	hash := sha256.Sum256([]byte(strings.Join(trimmed, "|")))
	return hex.EncodeToString(hash[:])
}

// Start runs the background sweep until Stop is called.
func (i *Inbox) Start() {
	go func() {
		defer close(i.done)
		ticker := time.NewTicker(i.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-i.ctx.Done():
				return
			case <-ticker.C:
				released, deleted, err := i.Sweep(i.ctx)
				if err != nil {
					i.logger.Error("inbox sweep failed", zap.Error(err))
					continue
				}
				if released > 0 || deleted > 0 {
					i.logger.Info("inbox swept",
						zap.Int64("released", released), zap.Int64("deleted", deleted))
				}
			}
		}
	}()
	i.logger.Info("inbox sweep started", zap.Duration("interval", i.config.SweepInterval))
}

// Stop ends the sweep. It must only be called after Start.
func (i *Inbox) Stop() {
	i.cancel()
	<-i.done
	i.logger.Info("inbox stopped")
}

// Sweep hands abandoned claims back for retry and deletes expired ones.
func (i *Inbox) Sweep(ctx context.Context) (released, deleted int64, err error) {
	tx, err := i.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = $1, last_error = 'claim abandoned', updated_at = NOW()
		WHERE status = $2 AND claimed_at < NOW() - $3::interval`, i.config.Table),
		StatusRetry, StatusClaimed, i.config.ClaimTimeout.String())
	if err != nil {
		return 0, 0, fmt.Errorf("release abandoned claims: %w", err)
	}
	released = tag.RowsAffected()

	tag, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at < NOW()`, i.config.Table))
	if err != nil {
		return 0, 0, fmt.Errorf("delete expired claims: %w", err)
	}
	deleted = tag.RowsAffected()

	return released, deleted, tx.Commit(ctx)
}

// Stats counts claims by status.
func (i *Inbox) Stats(ctx context.Context) (map[Status]int64, error) {
	rows, err := i.pool.Query(ctx, fmt.Sprintf(`SELECT status, COUNT(*) FROM %s GROUP BY status`, i.config.Table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[Status]int64{StatusClaimed: 0, StatusDone: 0, StatusRetry: 0, StatusFailed: 0}
	for rows.Next() {
		var s Status
		var n int64
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		stats[s] = n
	}
	return stats, rows.Err()
}
