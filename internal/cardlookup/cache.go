package cardlookup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/storage"
)

// IdentityCache is one tier of the identity cache. *storage.Service
// satisfies it directly.
type IdentityCache interface {
	GetIdentities(ctx context.Context, keys []string) (map[string]*storage.CardIdentity, error)
	SaveIdentities(ctx context.Context, identities []*storage.CardIdentity) error
}

// Tier names a cache for logs and metrics. Tiers are consulted in order.
type Tier struct {
	Name  string
	Cache IdentityCache
}

const (
	identityKeyPrefix = "mtg:identity:" // mtg:identity:{normalized_name}
	defaultRedisTTL   = 7 * 24 * time.Hour
)

// RedisCache shares resolved identities between advisor instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed identity cache. A zero ttl uses 7 days.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = defaultRedisTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

type redisEntry struct {
	Name          string    `json:"name"`
	ColorIdentity []string  `json:"color_identity"`
	ScryfallID    string    `json:"scryfall_id,omitempty"`
	LastUpdated   time.Time `json:"last_updated"`
}

func identityKey(normalized string) string {
	return identityKeyPrefix + normalized
}

// GetIdentities fetches all keys with a single MGET.
func (c *RedisCache) GetIdentities(ctx context.Context, keys []string) (map[string]*storage.CardIdentity, error) {
	result := make(map[string]*storage.CardIdentity, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = identityKey(k)
	}

	values, err := c.client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read card identities from redis: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry redisEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			// Corrupt entries are treated as misses and overwritten on refetch.
			continue
		}
		result[keys[i]] = &storage.CardIdentity{
			NormalizedName: keys[i],
			Name:           entry.Name,
			ColorIdentity:  entry.ColorIdentity,
			ScryfallID:     entry.ScryfallID,
			LastUpdated:    entry.LastUpdated,
		}
	}
	return result, nil
}

// SaveIdentities writes identities in one pipeline.
func (c *RedisCache) SaveIdentities(ctx context.Context, identities []*storage.CardIdentity) error {
	if len(identities) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, identity := range identities {
		updated := identity.LastUpdated
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		data, err := json.Marshal(redisEntry{
			Name:          identity.Name,
			ColorIdentity: identity.ColorIdentity,
			ScryfallID:    identity.ScryfallID,
			LastUpdated:   updated,
		})
		if err != nil {
			return fmt.Errorf("failed to marshal card identity %s: %w", identity.NormalizedName, err)
		}
		pipe.Set(ctx, identityKey(identity.NormalizedName), data, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to write card identities to redis: %w", err)
	}
	return nil
}
