package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testClient(endpoint string, retries int) *Client {
	cfg := DefaultClientConfig()
	cfg.Endpoint = endpoint
	cfg.MaxRetries = retries
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = 5 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	return NewClient(cfg, nil)
}

func TestClientSubmit(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		accepted   bool
		wantReason string
	}{
		{"created", http.StatusCreated, `{"resourceType":"Bundle"}`, true, ""},
		{"ok", http.StatusOK, "", true, ""},
		{"accepted for later is not final", http.StatusAccepted, "", false, "HTTP 202 Accepted"},
		{
			"operation outcome",
			http.StatusUnprocessableEntity,
			`{"resourceType":"OperationOutcome","issue":[{"severity":"error","code":"invalid","diagnostics":"missing decedent"},{"severity":"error","code":"required"}]}`,
			false,
			"missing decedent; required",
		},
		{"plain body", http.StatusBadRequest, "  bad bundle\n", false, "bad bundle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ct := r.Header.Get("Content-Type"); ct != "application/fhir+json" {
					t.Errorf("Content-Type = %q", ct)
				}
				body, _ := io.ReadAll(r.Body)
				if !json.Valid(body) {
					t.Errorf("posted body is not JSON: %s", body)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			resp, err := testClient(srv.URL, 0).Submit(context.Background(), "MA", json.RawMessage(`{"resourceType":"Bundle"}`))
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if resp.StatusCode != tt.status || resp.Accepted != tt.accepted {
				t.Errorf("got status %d accepted %v", resp.StatusCode, resp.Accepted)
			}
			if resp.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", resp.Reason, tt.wantReason)
			}
		})
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL, 3).Submit(context.Background(), "MA", json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !resp.Accepted {
		t.Errorf("not accepted: %+v", resp)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClientGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := testClient(srv.URL, 1).Submit(context.Background(), "MA", json.RawMessage(`{}`)); err == nil {
		t.Error("expected error after exhausted retries")
	}
}

func TestEndpointFor(t *testing.T) {
	c := NewClient(ClientConfig{
		Endpoints: map[string]string{"ma": "https://ma.example/fhir"},
	}, nil)

	if u, err := c.EndpointFor("MA"); err != nil || u != "https://ma.example/fhir" {
		t.Errorf("MA = %q, %v", u, err)
	}
	if _, err := c.EndpointFor("NY"); !errors.Is(err, ErrNoEndpoint) {
		t.Errorf("NY err = %v", err)
	}

	c = NewClient(ClientConfig{Endpoint: "https://edrs.example/fhir"}, nil)
	if u, _ := c.EndpointFor("NY"); u != "https://edrs.example/fhir" {
		t.Errorf("fallback = %q", u)
	}
}
