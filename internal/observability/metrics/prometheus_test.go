package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveBuildAndSubmission(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	start := time.Now()
	m.ObserveBuild(start, "")
	m.ObserveBuild(start, "UNRECOGNIZED_VALUE")
	m.ObserveSubmission(start, "MA", OutcomeAccepted)

	srv := httptest.NewServer(HandlerFor(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	for _, want := range []string{
		"vrdr_documents_built_total 1",
		`vrdr_document_build_failures_total{reason="UNRECOGNIZED_VALUE"} 1`,
		`vrdr_submissions_total{jurisdiction="MA",outcome="accepted"} 1`,
		"vrdr_document_build_duration_seconds_count 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestNilMetricsIgnoresObservations(t *testing.T) {
	var m *Metrics
	m.ObserveBuild(time.Now(), "")
	m.ObserveSubmission(time.Now(), "MA", OutcomeRejected)
}
