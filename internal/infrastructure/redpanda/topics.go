package redpanda

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Topic names for death record processing
const (
	TopicDeathRecordEvents  = "vrdr.deathrecord.events"
	TopicSubmissionRequests = "vrdr.submission.requests"
	TopicSubmissionDLQ      = "vrdr.submission.dlq"
	TopicOutboxDeadLetter   = "vrdr.outbox.dlq"
)

const (
	retentionSevenDays       = "604800000"
	retentionThirtyDays      = "2592000000"
	defaultReplicationFactor = 1
)

// TopicConfig holds configuration for a Kafka topic
type TopicConfig struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Configs           map[string]*string
}

// DefaultTopicConfigs returns the topics the services need. Records are keyed
// by death record id, so each record's events stay in order on one partition.
func DefaultTopicConfigs(replicationFactor int16) []TopicConfig {
	if replicationFactor <= 0 {
		replicationFactor = defaultReplicationFactor
	}
	ptr := func(s string) *string { return &s }
	topic := func(name string, partitions int32, retention string) TopicConfig {
		return TopicConfig{
			Name:              name,
			Partitions:        partitions,
			ReplicationFactor: replicationFactor,
			Configs: map[string]*string{
				"retention.ms":     ptr(retention),
				"cleanup.policy":   ptr("delete"),
				"compression.type": ptr("lz4"),
			},
		}
	}

	return []TopicConfig{
		// event history is also kept in PostgreSQL, the topic is a feed
		topic(TopicDeathRecordEvents, 6, retentionSevenDays),
		topic(TopicSubmissionRequests, 6, retentionSevenDays),
		// dead letters wait for an operator
		topic(TopicSubmissionDLQ, 1, retentionThirtyDays),
		topic(TopicOutboxDeadLetter, 1, retentionThirtyDays),
	}
}

// Admin provides administrative operations for Redpanda
type Admin struct {
	client *kadm.Client
	logger *zap.Logger
}

// NewAdmin creates a new admin client
func NewAdmin(brokers []string, logger *zap.Logger) (*Admin, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	kgoClient, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Admin{
		client: kadm.NewClient(kgoClient),
		logger: logger,
	}, nil
}

// CreateTopics creates the specified topics, leaving existing ones untouched.
// It returns the names of the topics it created.
func (a *Admin) CreateTopics(ctx context.Context, configs []TopicConfig) ([]string, error) {
	var created []string
	for _, cfg := range configs {
		resp, err := a.client.CreateTopics(ctx, cfg.Partitions, cfg.ReplicationFactor, cfg.Configs, cfg.Name)
		if err != nil {
			return created, fmt.Errorf("failed to create topic %s: %w", cfg.Name, err)
		}

		for _, r := range resp {
			if r.Err != nil {
				if errors.Is(r.Err, kerr.TopicAlreadyExists) {
					a.logger.Debug("topic already exists", zap.String("topic", r.Topic))
					continue
				}
				return created, fmt.Errorf("failed to create topic %s: %w", r.Topic, r.Err)
			}
			created = append(created, r.Topic)
			a.logger.Info("topic created",
				zap.String("topic", r.Topic),
				zap.Int32("partitions", cfg.Partitions))
		}
	}
	return created, nil
}

// EnsureTopics ensures all required topics exist
func (a *Admin) EnsureTopics(ctx context.Context, replicationFactor int16) ([]string, error) {
	return a.CreateTopics(ctx, DefaultTopicConfigs(replicationFactor))
}

// ListTopics lists all non-internal topics, sorted by name
func (a *Admin) ListTopics(ctx context.Context) ([]string, error) {
	topics, err := a.client.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	names := topics.Names()
	sort.Strings(names)
	return names, nil
}

// PartitionLag is how far a consumer group trails one partition.
type PartitionLag struct {
	Topic     string `json:"topic"`
	Partition int32  `json:"partition"`
	Committed int64  `json:"committed"`
	End       int64  `json:"end"`
	Lag       int64  `json:"lag"`
}

// GroupLag returns the group's lag per partition, ordered by topic and partition.
func (a *Admin) GroupLag(ctx context.Context, groupID string) ([]PartitionLag, error) {
	described, err := a.client.Lag(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get consumer group lag: %w", err)
	}

	var out []PartitionLag
	var groupErr error
	described.Each(func(l kadm.DescribedGroupLag) {
		if err := l.Error(); err != nil {
			groupErr = fmt.Errorf("group %s: %w", l.Group, err)
			return
		}
		for _, member := range l.Lag.Sorted() {
			out = append(out, PartitionLag{
				Topic:     member.Topic,
				Partition: member.Partition,
				Committed: member.Commit.At,
				End:       member.End.Offset,
				Lag:       member.Lag,
			})
		}
	})
	if groupErr != nil {
		return nil, groupErr
	}
	return out, nil
}

// Close closes the admin client
func (a *Admin) Close() {
	a.client.Close()
}
