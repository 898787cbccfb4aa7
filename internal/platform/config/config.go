// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces every variable, e.g. LIFELINE_SERVER_ADDR.
const EnvPrefix = "LIFELINE"

// Config is the full process configuration.
type Config struct {
	Env      string         `mapstructure:"env"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Grant    GrantConfig    `mapstructure:"grant"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig captures HTTP server settings.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// AdminToken guards profile-management routes when set.
	AdminToken string `mapstructure:"admin_token"`
	// RateLimit caps emergency API requests per client IP in each
	// RateLimitWindow. Zero disables throttling.
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

// PostgresConfig selects durable storage. An empty URL runs in memory.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig configures the lock-state cache. An empty URL disables it.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	LockCacheTTL time.Duration `mapstructure:"lock_cache_ttl"`
}

// KafkaConfig configures the notification event sink. No brokers means
// events are kept in memory.
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Partitions  int32    `mapstructure:"partitions"`
	Replication int16    `mapstructure:"replication"`
	BufferSize  int      `mapstructure:"buffer_size"`
	// OpsSampleRate is the share of operations events kept; security and
	// compliance events are always published.
	OpsSampleRate float64 `mapstructure:"ops_sample_rate"`
}

// GrantConfig configures signed access grants. No key disables grants.
type GrantConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	Issuer     string        `mapstructure:"issuer"`
	Audience   string        `mapstructure:"audience"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// EngineConfig overrides the emergency engine defaults.
type EngineConfig struct {
	QRTokenTTL            time.Duration `mapstructure:"qr_token_ttl"`
	OTPTTL                time.Duration `mapstructure:"otp_ttl"`
	QuotaTimezone         string        `mapstructure:"quota_timezone"`
	MaxDailyAccess        int           `mapstructure:"max_daily_access"`
	AutoLockAfterFailures int           `mapstructure:"auto_lock_after_failures"`
	LockDuration          time.Duration `mapstructure:"lock_duration"`
	FailureWindow         time.Duration `mapstructure:"failure_window"`
	BcryptCost            int           `mapstructure:"bcrypt_cost"`
}

var defaults = map[string]any{
	"env":                             "development",
	"log.level":                       "info",
	"log.format":                      "json",
	"server.addr":                     ":8080",
	"server.read_header_timeout":      5 * time.Second,
	"server.request_timeout":          10 * time.Second,
	"server.shutdown_timeout":         15 * time.Second,
	"server.admin_token":              "",
	"server.rate_limit":               120,
	"server.rate_limit_window":        time.Minute,
	"postgres.url":                    "",
	"postgres.max_conns":              10,
	"postgres.min_conns":              2,
	"redis.url":                       "",
	"redis.pool_size":                 10,
	"redis.min_idle_conns":            2,
	"redis.dial_timeout":              2 * time.Second,
	"redis.read_timeout":              500 * time.Millisecond,
	"redis.write_timeout":             500 * time.Millisecond,
	"redis.lock_cache_ttl":            0,
	"kafka.brokers":                   []string{},
	"kafka.topic_prefix":              "lifeline.audit",
	"kafka.partitions":                3,
	"kafka.replication":               1,
	"kafka.buffer_size":               10000,
	"kafka.ops_sample_rate":           1.0,
	"grant.signing_key":               "",
	"grant.issuer":                    "lifeline",
	"grant.audience":                  "emergency-responders",
	"grant.ttl":                       15 * time.Minute,
	"engine.qr_token_ttl":             24 * time.Hour,
	"engine.otp_ttl":                  10 * time.Minute,
	"engine.quota_timezone":           "UTC",
	"engine.max_daily_access":         10,
	"engine.auto_lock_after_failures": 3,
	"engine.lock_duration":            time.Hour,
	"engine.failure_window":           15 * time.Minute,
	"engine.bcrypt_cost":              12,
}

// Load reads LIFELINE_* environment variables over the defaults. A .env file
// in the working directory is read when present.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Missing .env is fine; a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, fmt.Errorf("read .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	if c.Grant.SigningKey != "" && len(c.Grant.SigningKey) < 32 {
		return errors.New("grant signing key must be at least 32 bytes")
	}
	if c.IsProduction() && c.Postgres.URL == "" {
		return errors.New("postgres url is required in production")
	}
	if c.Engine.MaxDailyAccess <= 0 || c.Engine.AutoLockAfterFailures <= 0 {
		return errors.New("engine thresholds must be positive")
	}
	if c.Engine.LockDuration <= 0 || c.Engine.FailureWindow <= 0 {
		return errors.New("engine lock duration and failure window must be positive")
	}
	if c.Kafka.OpsSampleRate < 0 || c.Kafka.OpsSampleRate > 1 {
		return errors.New("kafka ops sample rate must be between 0 and 1")
	}
	if _, err := time.LoadLocation(c.Engine.QuotaTimezone); err != nil {
		return fmt.Errorf("engine quota timezone: %w", err)
	}
	return nil
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// splitList accepts both repeated values and one comma-separated value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// isMissingFile reports whether viper failed because the file is absent.
// SetConfigFile bypasses viper's own not-found error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
