// Package kafka publishes audit events to Kafka for the notification
// pipeline. One topic per event category; records are keyed by subject so
// a profile's events stay ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "lifeline/pkg/platform/audit"
)

// Config names the brokers and topics.
type Config struct {
	Brokers     []string
	TopicPrefix string
	Partitions  int32
	Replication int16
}

// Topic returns the topic for a category.
func (c Config) Topic(category audit.EventCategory) string {
	prefix := c.TopicPrefix
	if prefix == "" {
		prefix = "lifeline.audit"
	}
	return prefix + "." + string(category)
}

// Topics lists every topic the store writes to.
func (c Config) Topics() []string {
	return []string{
		c.Topic(audit.CategoryCompliance),
		c.Topic(audit.CategorySecurity),
		c.Topic(audit.CategoryOperations),
	}
}

// Store is an audit.Store backed by a franz-go client.
type Store struct {
	client *kgo.Client
	cfg    Config
}

// New connects a producer client.
func New(cfg Config, opts ...kgo.Opt) (*Store, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	opts = append([]kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5 * time.Millisecond),
	}, opts...)
	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, cfg: cfg}, nil
}

// EnsureTopics creates the category topics, ignoring ones that exist.
func (s *Store) EnsureTopics(ctx context.Context) error {
	admin := kadm.NewClient(s.client)
	partitions := s.cfg.Partitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := s.cfg.Replication
	if replication <= 0 {
		replication = 1
	}

	resp, err := admin.CreateTopics(ctx, partitions, replication, nil, s.cfg.Topics()...)
	if err != nil {
		return fmt.Errorf("create audit topics: %w", err)
	}
	for _, r := range resp.Sorted() {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// message is the JSON wire shape consumed by the notification service.
type message struct {
	ID          string   `json:"id"`
	Category    string   `json:"category"`
	Timestamp   string   `json:"timestamp"`
	Subject     string   `json:"subject"`
	Action      string   `json:"action"`
	Decision    string   `json:"decision,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Severity    string   `json:"severity"`
	AccessLevel string   `json:"access_level,omitempty"`
	Method      string   `json:"method,omitempty"`
	RequestID   string   `json:"request_id,omitempty"`
	ActorID     string   `json:"actor_id,omitempty"`
	ClientIP    string   `json:"client_ip,omitempty"`
	Recipients  []string `json:"recipients,omitempty"`
	Test        bool     `json:"test,omitempty"`
}

// Encode renders an event as its wire payload.
func Encode(event audit.Event) ([]byte, error) {
	return json.Marshal(message{
		ID:          event.ID,
		Category:    string(event.Category),
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339Nano),
		Subject:     event.Subject,
		Action:      string(event.Action),
		Decision:    event.Decision,
		Reason:      event.Reason,
		Severity:    string(event.Severity),
		AccessLevel: event.AccessLevel,
		Method:      event.Method,
		RequestID:   event.RequestID,
		ActorID:     event.ActorID,
		ClientIP:    event.ClientIP,
		Recipients:  event.Recipients,
		Test:        event.Test,
	})
}

// Append produces the event synchronously.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	category := event.Category
	if category == "" {
		category = event.Action.Category()
	}
	record := &kgo.Record{
		Topic: s.cfg.Topic(category),
		Key:   []byte(event.Subject),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "severity", Value: []byte(event.Severity)},
		},
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() {
	s.client.Close()
}
