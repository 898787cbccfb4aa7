package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "lifeline/pkg/platform/audit"
)

func TestConfigTopics(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, "lifeline.audit.security", cfg.Topic(audit.CategorySecurity))

	cfg.TopicPrefix = "prod.events"
	assert.Equal(t, []string{
		"prod.events.compliance",
		"prod.events.security",
		"prod.events.operations",
	}, cfg.Topics())
}

func TestEncode(t *testing.T) {
	ts := time.Date(2026, 5, 1, 8, 30, 0, 0, time.FixedZone("X", 3600))
	payload, err := Encode(audit.Event{
		ID:        "evt-1",
		Category:  audit.CategorySecurity,
		Timestamp: ts,
		Subject:   "profile-1",
		Action:    audit.EventAccessDenied,
		Reason:    "invalid_credential",
		Severity:  audit.SeverityCritical,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "access_denied", got["action"])
	assert.Equal(t, "critical", got["severity"])
	assert.Equal(t, "2026-05-01T07:30:00Z", got["timestamp"])
	assert.NotContains(t, got, "test")
}

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
