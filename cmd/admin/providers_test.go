package main

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-admin/internal/infrastructure/auth"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-admin/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-admin/pkg/retry"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestProvidersWithoutRedis(t *testing.T) {
	cfg := &config.Config{}

	client, cleanup, err := provideRedisClient(cfg, quietLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, client)
	assert.IsType(t, &auth.MemoryBlacklist{}, provideBlacklist(client))
	assert.Nil(t, provideCursorRepository(client))
}

func TestProvidersWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{Redis: config.RedisConfig{Enabled: true, Host: mr.Host(), Port: port}}
	client, cleanup, err := provideRedisClient(cfg, quietLogger())
	require.NoError(t, err)
	defer cleanup()

	require.NotNil(t, client)
	assert.IsType(t, &redis.TokenBlacklist{}, provideBlacklist(client))
	assert.NotNil(t, provideCursorRepository(client))
}

func TestProvideRetryPolicy(t *testing.T) {
	def := retry.DefaultPolicy()

	p := provideRetryPolicy(config.APIConfig{RetryMax: 2, RetryInitialInterval: 200 * time.Millisecond})
	assert.Equal(t, uint64(2), p.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, p.InitialInterval)
	assert.Equal(t, def.MaxInterval, p.MaxInterval)
	assert.Equal(t, def.MaxElapsedTime, p.MaxElapsedTime)

	p = provideRetryPolicy(config.APIConfig{})
	assert.Zero(t, p.MaxRetries, "retry_max为0表示不重试")
	assert.Equal(t, def.InitialInterval, p.InitialInterval)
}

func TestProvideInvalidator(t *testing.T) {
	cfg := &config.Config{Auth: config.AuthConfig{BlacklistTTL: time.Hour}}
	blacklist := auth.NewMemoryBlacklist()
	inv := provideInvalidator(cfg, blacklist, provideInspector(cfg), quietLogger())

	t.Run("无exp的令牌按配置时长拉黑", func(t *testing.T) {
		ctx := auth.WithToken(context.Background(), "opaque-token")
		require.NoError(t, inv.Invalidate(ctx))

		ok, err := blacklist.Contains(ctx, "opaque-token")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("已过期的令牌不再拉黑", func(t *testing.T) {
		expired, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}).SignedString([]byte("secret"))
		require.NoError(t, err)

		ctx := auth.WithToken(context.Background(), expired)
		require.NoError(t, inv.Invalidate(ctx))

		ok, err := blacklist.Contains(ctx, expired)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
