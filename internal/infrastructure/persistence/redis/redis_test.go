package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookstore-admin/pkg/pagination"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTokenBlacklist(t *testing.T) {
	mr, client := newTestRedis(t)
	bl := NewTokenBlacklist(client)
	ctx := context.Background()

	ok, err := bl.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bl.Add(ctx, "tok-1", time.Minute))
	ok, err = bl.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.True(t, ok)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.NotContains(t, keys[0], "tok-1", "不应保存明文令牌")

	mr.FastForward(2 * time.Minute)
	ok, err = bl.Contains(ctx, "tok-1")
	require.NoError(t, err)
	assert.False(t, ok, "TTL到期后自动移出黑名单")
}

func TestTokenBlacklist_ExpiredTokenSkipped(t *testing.T) {
	mr, client := newTestRedis(t)
	require.NoError(t, NewTokenBlacklist(client).Add(context.Background(), "old", 0))
	assert.Empty(t, mr.Keys())
}

func TestPaginationRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewPaginationRepository(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "u1", "books", pagination.EntityParams{Page: 3, Limit: 20, SortBy: "title", SortOrder: pagination.SortAsc}))
	require.NoError(t, repo.Save(ctx, "u1", "authors", pagination.EntityParams{Page: 1, Limit: 10}))
	mr.HSet(paginationPrefix+"u1", "broken", "{not json")

	got, err := repo.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]pagination.EntityParams{
		"books":   {Page: 3, Limit: 20, SortBy: "title", SortOrder: pagination.SortAsc},
		"authors": {Page: 1, Limit: 10},
	}, got)
	assert.True(t, mr.TTL(paginationPrefix+"u1") > 0)

	other, err := repo.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}
