// Package submission delivers drafted death certificate documents to the
// jurisdiction's electronic death registration system (EDRS) and records the
// outcome on the death record.
package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
)

// ErrNoEndpoint is returned for a jurisdiction with no configured endpoint.
var ErrNoEndpoint = errors.New("no EDRS endpoint configured")

const fhirJSON = "application/fhir+json"

// maxReasonLength bounds the rejection reason kept from a response body.
const maxReasonLength = 1024

// ClientConfig configures the EDRS client.
type ClientConfig struct {
	// Endpoint receives documents for jurisdictions without their own entry.
	Endpoint string
	// Endpoints maps an upper-case jurisdiction code to its FHIR endpoint.
	Endpoints    map[string]string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// DefaultClientConfig returns defaults
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:      30 * time.Second,
		MaxRetries:   3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 10 * time.Second,
	}
}

// Response is the registry's answer to one submission.
type Response struct {
	StatusCode int
	Accepted   bool
	// Reason explains a rejection.
	Reason string
}

// Client posts document bundles to EDRS FHIR endpoints. Connection errors,
// 429 and 5xx responses are retried; any other response is final.
type Client struct {
	http      *retryablehttp.Client
	endpoint  string
	endpoints map[string]string
	logger    *zap.Logger
}

// NewClient creates an EDRS client
func NewClient(cfg ClientConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = cfg.Timeout
	rc.RetryMax = cfg.MaxRetries
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.Logger = leveledLogger{logger.Named("edrs").Sugar()}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for j, u := range cfg.Endpoints {
		endpoints[strings.ToUpper(j)] = u
	}

	return &Client{
		http:      rc,
		endpoint:  cfg.Endpoint,
		endpoints: endpoints,
		logger:    logger,
	}
}

// EndpointFor returns the endpoint documents for jurisdiction are posted to.
func (c *Client) EndpointFor(jurisdiction string) (string, error) {
	if u, ok := c.endpoints[strings.ToUpper(jurisdiction)]; ok {
		return u, nil
	}
	if c.endpoint != "" {
		return c.endpoint, nil
	}
	return "", fmt.Errorf("%w: jurisdiction %q", ErrNoEndpoint, jurisdiction)
}

// Submit posts bundle to the jurisdiction's endpoint. 200 and 201 accept the
// document; every other final status rejects it. An error means no final
// answer was received.
func (c *Client) Submit(ctx context.Context, jurisdiction string, bundle json.RawMessage) (*Response, error) {
	endpoint, err := c.EndpointFor(jurisdiction)
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, endpoint, []byte(bundle))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", fhirJSON)
	req.Header.Set("Accept", fhirJSON)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	out := &Response{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		out.Accepted = true
	default:
		out.Reason = rejectionReason(resp.StatusCode, body)
	}

	c.logger.Debug("edrs response",
		zap.String("jurisdiction", jurisdiction),
		zap.Int("status", resp.StatusCode),
		zap.Bool("accepted", out.Accepted),
	)
	return out, nil
}

// rejectionReason prefers OperationOutcome diagnostics over the raw body.
func rejectionReason(status int, body []byte) string {
	var outcome r4.OperationOutcome
	if err := json.Unmarshal(body, &outcome); err == nil && outcome.ResourceType == "OperationOutcome" {
		var msgs []string
		for _, issue := range outcome.Issue {
			switch {
			case issue.Diagnostics != "":
				msgs = append(msgs, issue.Diagnostics)
			case issue.Details != nil && issue.Details.Text != "":
				msgs = append(msgs, issue.Details.Text)
			case issue.Code != "":
				msgs = append(msgs, issue.Code)
			}
		}
		if len(msgs) > 0 {
			return truncate(strings.Join(msgs, "; "))
		}
	}

	if text := string(bytes.TrimSpace(body)); text != "" {
		return truncate(text)
	}
	return fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
}

func truncate(s string) string {
	if len(s) > maxReasonLength {
		return s[:maxReasonLength]
	}
	return s
}

// leveledLogger adapts a zap logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
