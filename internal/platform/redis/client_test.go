package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifeline/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c, err := New(context.Background(), config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("connects and pings", func(t *testing.T) {
		mr := miniredis.RunT(t)
		c, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr(), PoolSize: 2})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		assert.NoError(t, c.Health(context.Background()))
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "://nope"})
		assert.Error(t, err)
	})

	t.Run("unreachable server", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, err := New(context.Background(), config.RedisConfig{URL: "redis://" + addr})
		assert.Error(t, err)
	})
}
