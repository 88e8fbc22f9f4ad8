package redpanda

import (
	"context"
	"sort"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Record headers set on death record messages.
const (
	HeaderContentType = "content-type"
	// HeaderEventType names the death record event carried in the value.
	HeaderEventType = "vrdr-event-type"
	// HeaderDocumentID is the id of the document bundle the message concerns.
	HeaderDocumentID = "vrdr-document-id"
	// HeaderDeadLetterReason is set on messages published to a dead letter topic.
	HeaderDeadLetterReason = "vrdr-dead-letter-reason"
)

// newRecord builds a JSON record. Headers are written in key order so equal
// messages produce equal records.
func newRecord(topic, key string, value []byte, headers map[string]string) *kgo.Record {
	record := &kgo.Record{Topic: topic, Key: []byte(key), Value: value}
	record.Headers = append(record.Headers, kgo.RecordHeader{Key: HeaderContentType, Value: []byte("application/json")})

	keys := make([]string, 0, len(headers))
	for k := range headers {
		if k != HeaderContentType && headers[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		record.Headers = append(record.Headers, kgo.RecordHeader{Key: k, Value: []byte(headers[k])})
	}
	return record
}

// headerCarrier adapts record headers to the OpenTelemetry propagator.
type headerCarrier struct {
	record *kgo.Record
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.record.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.record.Headers {
		if h.Key == key {
			c.record.Headers[i].Value = []byte(value)
			return
		}
	}
	c.record.Headers = append(c.record.Headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c.record.Headers))
	for i, h := range c.record.Headers {
		keys[i] = h.Key
	}
	return keys
}

// injectTraceHeaders writes the span context of ctx into the record headers.
func injectTraceHeaders(ctx context.Context, record *kgo.Record) {
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{record: record})
}

// extractTraceContext continues the producer's trace from the record headers.
func extractTraceContext(ctx context.Context, record *kgo.Record) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, headerCarrier{record: record})
}
