//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "lifeline/pkg/platform/audit"
)

func TestStore_ProducesToCategoryTopic(t *testing.T) {
	ctx := context.Background()
	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.2.4")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	cfg := Config{Brokers: []string{broker}, TopicPrefix: "it"}
	store, err := New(cfg)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.EnsureTopics(ctx))
	require.NoError(t, store.EnsureTopics(ctx), "second call is idempotent")

	event := audit.Event{
		ID:        "evt-1",
		Category:  audit.CategorySecurity,
		Timestamp: time.Now(),
		Subject:   "profile-1",
		Action:    audit.EventLockoutTriggered,
		Severity:  audit.SeverityCritical,
	}
	require.NoError(t, store.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(cfg.Topic(audit.CategorySecurity)),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.NotEmpty(t, records)
	require.Equal(t, "profile-1", string(records[0].Key))

	var msg map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &msg))
	require.Equal(t, "lockout_triggered", msg["action"])
}
