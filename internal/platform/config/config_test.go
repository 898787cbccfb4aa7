package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10, cfg.Engine.MaxDailyAccess)
	assert.Equal(t, 3, cfg.Engine.AutoLockAfterFailures)
	assert.Equal(t, time.Hour, cfg.Engine.LockDuration)
	assert.Equal(t, 15*time.Minute, cfg.Engine.FailureWindow)
	assert.Equal(t, "UTC", cfg.Engine.QuotaTimezone)
	assert.Equal(t, 1.0, cfg.Kafka.OpsSampleRate)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LIFELINE_SERVER_ADDR", ":9090")
	t.Setenv("LIFELINE_POSTGRES_URL", "postgres://lifeline@localhost/lifeline")
	t.Setenv("LIFELINE_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("LIFELINE_ENGINE_LOCK_DURATION", "30m")
	t.Setenv("LIFELINE_ENGINE_MAX_DAILY_ACCESS", "25")
	t.Setenv("LIFELINE_GRANT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("LIFELINE_KAFKA_OPS_SAMPLE_RATE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "postgres://lifeline@localhost/lifeline", cfg.Postgres.URL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Engine.LockDuration)
	assert.Equal(t, 25, cfg.Engine.MaxDailyAccess)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cfg.Grant.SigningKey)
	assert.Equal(t, 0.25, cfg.Kafka.OpsSampleRate)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "short grant key", env: map[string]string{"LIFELINE_GRANT_SIGNING_KEY": "short"}},
		{name: "production without postgres", env: map[string]string{"LIFELINE_ENV": "production"}},
		{name: "zero quota", env: map[string]string{"LIFELINE_ENGINE_MAX_DAILY_ACCESS": "0"}},
		{name: "sample rate above one", env: map[string]string{"LIFELINE_KAFKA_OPS_SAMPLE_RATE": "1.5"}},
		{name: "unknown timezone", env: map[string]string{"LIFELINE_ENGINE_QUOTA_TIMEZONE": "Mars/Olympus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
