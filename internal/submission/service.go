package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/infrastructure/redpanda"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/observability/tracing"
	"github.com/nightingaleproject/go-vrdr/pkg/circuitbreaker"
	"github.com/nightingaleproject/go-vrdr/pkg/idempotency"
	"github.com/nightingaleproject/go-vrdr/pkg/workerpool"
)

// HandlerName identifies this service's entries in the idempotency inbox.
const HandlerName = "edrs-submission"

// Records loads and saves death record aggregates.
type Records interface {
	Load(ctx context.Context, id string) (*deathrecord.DeathRecord, error)
	Save(ctx context.Context, agg *deathrecord.DeathRecord) error
}

// Deduplicator runs a handler at most once per key.
type Deduplicator interface {
	Process(ctx context.Context, key, handlerName string, payload json.RawMessage, fn idempotency.ProcessFunc) (*idempotency.ProcessResult, error)
}

// Publisher publishes dead letters.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

// Registry delivers a document to a jurisdiction.
type Registry interface {
	Submit(ctx context.Context, jurisdiction string, bundle json.RawMessage) (*Response, error)
}

// Config holds submission service settings
type Config struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	RetryDelay time.Duration
	// DeadLetterTopic receives requests that could not be delivered.
	DeadLetterTopic string
}

// DefaultConfig returns defaults
func DefaultConfig() Config {
	return Config{
		Workers:         8,
		QueueSize:       256,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
		DeadLetterTopic: redpanda.TopicSubmissionDLQ,
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Records  Records
	Inbox    Deduplicator
	Registry Registry
	Breakers *circuitbreaker.Manager
	DLQ      Publisher
	Metrics  *metrics.Metrics
}

// DeadLetter is published for a request that could not be delivered.
type DeadLetter struct {
	RecordID     string    `json:"record_id,omitempty"`
	DocumentID   string    `json:"document_id,omitempty"`
	Jurisdiction string    `json:"jurisdiction,omitempty"`
	Error        string    `json:"error"`
	Attempts     int       `json:"attempts"`
	Payload      string    `json:"payload"`
	FailedAt     time.Time `json:"failed_at"`
}

// job is one consumed request travelling through the worker pool.
type job struct {
	req     *deathrecord.SubmissionRequest
	raw     []byte
	start   time.Time
	outcome string
	done    chan error
}

// Service consumes submission requests, delivers each document to its
// jurisdiction and records the outcome on the death record.
type Service struct {
	cfg     Config
	deps    Deps
	pool    *workerpool.Pool[*job]
	logger  *zap.Logger
	tracer  trace.Tracer
	drained chan struct{}
}

// NewService creates a submission service
func NewService(cfg Config, deps Deps, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Records == nil || deps.Inbox == nil || deps.Registry == nil || deps.Breakers == nil || deps.DLQ == nil {
		return nil, errors.New("submission service requires records, inbox, registry, breakers and a dead letter publisher")
	}
	if cfg.DeadLetterTopic == "" {
		cfg.DeadLetterTopic = redpanda.TopicSubmissionDLQ
	}

	s := &Service{
		cfg:     cfg,
		deps:    deps,
		logger:  logger,
		tracer:  otel.Tracer("edrs-submission"),
		drained: make(chan struct{}),
	}

	poolCfg := workerpool.DefaultConfig()
	if cfg.Workers > 0 {
		poolCfg.Workers = cfg.Workers
	}
	if cfg.QueueSize > 0 {
		poolCfg.QueueSize = cfg.QueueSize
	}
	poolCfg.MaxRetries = cfg.MaxRetries
	poolCfg.RetryDelay = cfg.RetryDelay
	poolCfg.Retryable = func(err error) bool { return !idempotency.IsTerminal(err) }

	pool, err := workerpool.New(poolCfg, s.attempt, logger)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Start launches the workers.
func (s *Service) Start() {
	s.pool.Start()
	go s.drain()
}

// Stop finishes queued requests and stops the workers.
func (s *Service) Stop() {
	s.pool.Stop()
	select {
	case <-s.drained:
	case <-time.After(5 * time.Second):
	}
}

// Stats returns worker pool counters.
func (s *Service) Stats() workerpool.Stats {
	return s.pool.Stats()
}

// Handle processes one consumed message. It returns once the request has
// reached an outcome: recorded, skipped, or dead lettered. A returned error
// leaves the message uncommitted.
func (s *Service) Handle(ctx context.Context, msg *redpanda.ConsumedMessage) error {
	if s.deps.Metrics != nil {
		s.deps.Metrics.MessagesConsumed.Inc()
	}

	var req deathrecord.SubmissionRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil || req.RecordID == "" || req.DocumentID == "" {
		if err == nil {
			err = errors.New("request missing record or document id")
		}
		s.logger.Warn("malformed submission request",
			zap.String("key", string(msg.Key)),
			zap.Int64("offset", msg.Offset),
			zap.Error(err))
		return s.deadLetter(ctx, &DeadLetter{
			Error:    err.Error(),
			Attempts: 0,
			Payload:  string(msg.Value),
		}, string(msg.Key))
	}

	j := &job{
		req:   &req,
		raw:   msg.Value,
		start: time.Now(),
		done:  make(chan error, 1),
	}
	task := &workerpool.Task[*job]{
		ID:      req.RecordID + "/" + req.DocumentID,
		Payload: j,
		Context: ctx,
	}
	if err := s.pool.Submit(ctx, task); err != nil {
		return fmt.Errorf("queue submission: %w", err)
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain settles every finished task: failures go to the dead letter topic.
func (s *Service) drain() {
	defer close(s.drained)

	for res := range s.pool.Results() {
		j := res.Task.Payload
		ctx := res.Task.Context
		if ctx == nil {
			ctx = context.Background()
		}

		if res.Success() {
			s.deps.Metrics.ObserveSubmission(j.start, j.req.Jurisdiction, j.outcome)
			j.done <- nil
			continue
		}

		// shutdown interrupted the task; it will be redelivered
		if errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded) {
			j.done <- res.Err
			continue
		}

		err := s.deadLetter(ctx, &DeadLetter{
			RecordID:     j.req.RecordID,
			DocumentID:   j.req.DocumentID,
			Jurisdiction: j.req.Jurisdiction,
			Error:        res.Err.Error(),
			Attempts:     res.Attempts,
			Payload:      string(j.raw),
		}, j.req.RecordID)
		if err == nil {
			s.deps.Metrics.ObserveSubmission(j.start, j.req.Jurisdiction, metrics.OutcomeDeadLettered)
		}
		j.done <- err
	}
}

func (s *Service) deadLetter(ctx context.Context, dl *DeadLetter, key string) error {
	dl.FailedAt = time.Now().UTC()
	value, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}
	headers := map[string]string{
		redpanda.HeaderDocumentID:       dl.DocumentID,
		redpanda.HeaderDeadLetterReason: dl.Error,
	}
	if err := s.deps.DLQ.Publish(ctx, s.cfg.DeadLetterTopic, key, value, headers); err != nil {
		return fmt.Errorf("publish dead letter: %w", err)
	}
	s.logger.Warn("submission dead lettered",
		zap.String("record_id", dl.RecordID),
		zap.String("document_id", dl.DocumentID),
		zap.Int("attempts", dl.Attempts),
		zap.String("error", dl.Error))
	return nil
}

// attempt is one delivery try for a queued request.
func (s *Service) attempt(ctx context.Context, task *workerpool.Task[*job]) error {
	j := task.Payload
	req := j.req

	ctx, span := s.tracer.Start(ctx, "submission.attempt",
		trace.WithAttributes(tracing.RecordAttributes(req.RecordID, req.DocumentID, req.Jurisdiction)...))
	defer span.End()

	agg, err := s.deps.Records.Load(ctx, req.RecordID)
	if errors.Is(err, deathrecord.ErrNotFound) {
		s.skip(j, "record not found")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("load record: %w", err)
	}
	if agg.Status() != deathrecord.StatusSubmitted || agg.DocumentID() != req.DocumentID {
		s.skip(j, fmt.Sprintf("record is %s with document %s", agg.Status(), agg.DocumentID()))
		return nil
	}

	key := idempotency.GenerateKey(req.RecordID, req.DocumentID)
	res, err := s.deps.Inbox.Process(ctx, key, HandlerName, j.raw, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return s.deliver(ctx, agg, req, j)
	})
	switch {
	case errors.Is(err, idempotency.ErrPreviouslyFailed), errors.Is(err, idempotency.ErrDuplicateMessage):
		j.outcome = metrics.OutcomeDuplicate
		return nil
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		return err
	case res.Outcome == idempotency.Replayed:
		j.outcome = metrics.OutcomeDuplicate
		s.logger.Info("duplicate submission request",
			zap.String("record_id", req.RecordID),
			zap.String("document_id", req.DocumentID))
	case res.Outcome == idempotency.Recovered:
		s.logger.Info("submission delivered after earlier attempts",
			zap.String("record_id", req.RecordID),
			zap.Int("attempt", res.Attempt))
	}
	return nil
}

func (s *Service) skip(j *job, why string) {
	j.outcome = metrics.OutcomeStale
	s.logger.Info("skipping stale submission request",
		zap.String("record_id", j.req.RecordID),
		zap.String("document_id", j.req.DocumentID),
		zap.String("reason", why))
}

type deliveryResult struct {
	StatusCode int    `json:"status_code"`
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
}

// deliver posts the document through the jurisdiction's breaker and appends
// the outcome event.
func (s *Service) deliver(ctx context.Context, agg *deathrecord.DeathRecord, req *deathrecord.SubmissionRequest, j *job) (json.RawMessage, error) {
	cb, err := s.deps.Breakers.Get(breakerName(req.Jurisdiction))
	if err != nil {
		return nil, err
	}

	bundle := req.Bundle
	if len(bundle) == 0 {
		bundle = agg.Bundle()
	}

	var resp *Response
	err = cb.Do(ctx, func(ctx context.Context) error {
		r, err := s.deps.Registry.Submit(ctx, req.Jurisdiction, bundle)
		resp = r
		return err
	})
	if errors.Is(err, ErrNoEndpoint) {
		return nil, idempotency.Terminal(err)
	}
	if err != nil {
		return nil, err
	}

	if resp.Accepted {
		err = agg.Accept(req.DocumentID, resp.StatusCode)
		j.outcome = metrics.OutcomeAccepted
	} else {
		err = agg.Reject(req.DocumentID, resp.StatusCode, resp.Reason)
		j.outcome = metrics.OutcomeRejected
	}
	if err != nil {
		return nil, idempotency.Terminal(err)
	}

	if err := s.deps.Records.Save(ctx, agg); err != nil {
		return nil, fmt.Errorf("save outcome: %w", err)
	}

	s.logger.Info("submission outcome recorded",
		zap.String("record_id", req.RecordID),
		zap.String("document_id", req.DocumentID),
		zap.String("jurisdiction", req.Jurisdiction),
		zap.Int("status", resp.StatusCode),
		zap.Bool("accepted", resp.Accepted))

	return json.Marshal(deliveryResult{
		StatusCode: resp.StatusCode,
		Accepted:   resp.Accepted,
		Reason:     resp.Reason,
	})
}

func breakerName(jurisdiction string) string {
	j := strings.ToUpper(strings.TrimSpace(jurisdiction))
	if j == "" {
		j = "DEFAULT"
	}
	return "edrs-" + j
}
