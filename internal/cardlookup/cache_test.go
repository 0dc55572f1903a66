package cardlookup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/storage"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisCache_SaveAndGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisCache(client, time.Hour)
	ctx := context.Background()

	updated := time.Now().UTC().Truncate(time.Second)
	err := cache.SaveIdentities(ctx, []*storage.CardIdentity{
		{NormalizedName: "lightning bolt", Name: "Lightning Bolt", ColorIdentity: []string{"R"}, ScryfallID: "1", LastUpdated: updated},
		{NormalizedName: "sol ring", Name: "Sol Ring", ColorIdentity: []string{"C"}},
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("mtg:identity:lightning bolt"))
	assert.Equal(t, time.Hour, mr.TTL("mtg:identity:lightning bolt"))

	got, err := cache.GetIdentities(ctx, []string{"lightning bolt", "sol ring", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"R"}, got["lightning bolt"].ColorIdentity)
	assert.Equal(t, "1", got["lightning bolt"].ScryfallID)
	assert.True(t, updated.Equal(got["lightning bolt"].LastUpdated))
	assert.False(t, got["sol ring"].LastUpdated.IsZero())
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisCache(client, 0)

	require.NoError(t, mr.Set("mtg:identity:opt", "{not json"))

	got, err := cache.GetIdentities(context.Background(), []string{"opt"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRedisCache_Unavailable(t *testing.T) {
	client, mr := setupTestRedis(t)
	cache := NewRedisCache(client, 0)
	mr.Close()

	_, err := cache.GetIdentities(context.Background(), []string{"opt"})
	assert.Error(t, err)
}

func TestRedisCache_AsServiceTier(t *testing.T) {
	client, _ := setupTestRedis(t)
	fetcher := &fakeFetcher{cards: testCards()}
	service := NewService(fetcher, []Tier{
		{Name: "redis", Cache: NewRedisCache(client, time.Hour)},
		{Name: "sqlite", Cache: storage.NewTestService(t)},
	}, ServiceOptions{})
	ctx := context.Background()

	_, err := service.ResolveIdentities(ctx, []string{"Lightning Bolt"})
	require.NoError(t, err)

	got, err := service.ResolveIdentities(ctx, []string{"Lightning Bolt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"R"}, got["lightning bolt"].ColorIdentity)
	assert.Equal(t, 1, fetcher.callCount())
}
