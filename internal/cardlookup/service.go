// Package cardlookup resolves card names to color identities, checking the
// cache tiers first and batching misses to Scryfall.
package cardlookup

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/metrics"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/scryfall"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/storage"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// CardFetcher is the Scryfall lookup the service falls back to on cache
// misses. *scryfall.Client satisfies it.
type CardFetcher interface {
	GetCardsByNames(ctx context.Context, names []string) ([]scryfall.Card, []string, error)

	// GetCardByName is tried for names the batch endpoint did not match. It
	// must return an error satisfying scryfall.IsNotFound for unknown cards.
	GetCardByName(ctx context.Context, name string) (*scryfall.Card, error)
}

// Service provides batched card identity lookup with caching.
type Service struct {
	fetcher        CardFetcher
	tiers          []Tier
	staleThreshold time.Duration
	maxConcurrent  int
	group          singleflight.Group
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// ServiceOptions configures the card lookup service.
type ServiceOptions struct {
	// StaleThreshold is how old cached data can be before it is refetched.
	// Default: 7 days
	StaleThreshold time.Duration

	// MaxConcurrentFetches bounds parallel Scryfall batch requests.
	// Default: 4
	MaxConcurrentFetches int

	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// DefaultServiceOptions returns sensible defaults.
func DefaultServiceOptions() ServiceOptions {
	return ServiceOptions{
		StaleThreshold:       7 * 24 * time.Hour,
		MaxConcurrentFetches: 4,
	}
}

var _ upgrades.IdentityResolver = (*Service)(nil)

// NewService creates a new card lookup service. Tiers are consulted in the
// order given, so the fastest cache goes first.
func NewService(fetcher CardFetcher, tiers []Tier, options ServiceOptions) *Service {
	defaults := DefaultServiceOptions()
	if options.StaleThreshold <= 0 {
		options.StaleThreshold = defaults.StaleThreshold
	}
	if options.MaxConcurrentFetches <= 0 {
		options.MaxConcurrentFetches = defaults.MaxConcurrentFetches
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	return &Service{
		fetcher:        fetcher,
		tiers:          tiers,
		staleThreshold: options.StaleThreshold,
		maxConcurrent:  options.MaxConcurrentFetches,
		logger:         options.Logger,
		metrics:        options.Metrics,
	}
}

// ResolveIdentities returns identities keyed by normalized name. Names that
// Scryfall does not recognize are absent. When Scryfall cannot be reached,
// stale cache entries are used and any name still unresolved is reported in
// the returned error alongside the partial result.
func (s *Service) ResolveIdentities(ctx context.Context, names []string) (map[string]upgrades.CardIdentity, error) {
	display := make(map[string]string, len(names))
	pending := make([]string, 0, len(names))
	for _, name := range names {
		key := cardname.Normalize(name)
		if key == "" {
			continue
		}
		if _, seen := display[key]; seen {
			continue
		}
		display[key] = strings.TrimSpace(name)
		pending = append(pending, key)
	}

	result := make(map[string]upgrades.CardIdentity, len(pending))
	stale := make(map[string]*storage.CardIdentity)

	for i, tier := range s.tiers {
		if len(pending) == 0 {
			break
		}
		pending = s.checkTier(ctx, i, tier, pending, result, stale)
	}

	if len(pending) == 0 {
		return result, nil
	}

	fetched, fetchErr := s.fetch(ctx, pending, display)
	for key, row := range fetched {
		result[key] = toIdentity(row)
	}
	if len(fetched) > 0 {
		rows := make([]*storage.CardIdentity, 0, len(fetched))
		for _, row := range fetched {
			rows = append(rows, row)
		}
		s.saveTiers(ctx, s.tiers, rows)
	}

	var unresolved []string
	for _, key := range pending {
		if _, ok := result[key]; ok {
			continue
		}
		if row, ok := stale[key]; ok {
			result[key] = toIdentity(row)
			continue
		}
		unresolved = append(unresolved, display[key])
	}

	if fetchErr != nil && len(unresolved) > 0 {
		return result, fmt.Errorf("failed to resolve %d card(s) from Scryfall: %w", len(unresolved), fetchErr)
	}
	if fetchErr != nil {
		s.logger.Warn("Scryfall unavailable, served stale card identities", zap.Error(fetchErr))
	}
	return result, nil
}

// checkTier moves fresh hits into result, records stale rows and returns the
// keys still pending. Fresh hits are copied up into the faster tiers.
func (s *Service) checkTier(ctx context.Context, index int, tier Tier, pending []string, result map[string]upgrades.CardIdentity, stale map[string]*storage.CardIdentity) []string {
	found, err := tier.Cache.GetIdentities(ctx, pending)
	if err != nil {
		s.logger.Warn("card identity cache unavailable",
			zap.String("tier", tier.Name),
			zap.Error(err),
		)
		return pending
	}

	next := make([]string, 0, len(pending))
	var fresh []*storage.CardIdentity
	staleCount := 0

	for _, key := range pending {
		row, ok := found[key]
		switch {
		case !ok || len(row.ColorIdentity) == 0:
			next = append(next, key)
		case time.Since(row.LastUpdated) < s.staleThreshold:
			result[key] = toIdentity(row)
			fresh = append(fresh, row)
		default:
			if _, have := stale[key]; !have {
				stale[key] = row
			}
			staleCount++
			next = append(next, key)
		}
	}

	s.metrics.AddLookups(tier.Name, "hit", len(fresh))
	s.metrics.AddLookups(tier.Name, "stale", staleCount)
	s.metrics.AddLookups(tier.Name, "miss", len(next)-staleCount)

	s.saveTiers(ctx, s.tiers[:index], fresh)
	return next
}

func (s *Service) saveTiers(ctx context.Context, tiers []Tier, rows []*storage.CardIdentity) {
	if len(rows) == 0 {
		return
	}
	for _, tier := range tiers {
		// The data is already in hand; a failed cache write only costs a refetch.
		if err := tier.Cache.SaveIdentities(ctx, rows); err != nil {
			s.logger.Warn("failed to cache card identities",
				zap.String("tier", tier.Name),
				zap.Int("count", len(rows)),
				zap.Error(err),
			)
		}
	}
}

type fetchResult struct {
	cards []scryfall.Card

	// named maps a requested key to the card the exact-name lookup found for it.
	named map[string]scryfall.Card
}

// fetch looks the pending keys up on Scryfall in MaxBatchSize chunks.
// Identical concurrent chunks share one request.
func (s *Service) fetch(ctx context.Context, keys []string, display map[string]string) (map[string]*storage.CardIdentity, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("no card fetcher configured")
	}

	start := time.Now()
	defer func() { s.metrics.ObserveFetch(time.Since(start)) }()

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}

	var (
		mu   sync.Mutex
		rows = make(map[string]*storage.CardIdentity, len(keys))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i := 0; i < len(keys); i += scryfall.MaxBatchSize {
		chunk := keys[i:min(i+scryfall.MaxBatchSize, len(keys))]

		g.Go(func() error {
			names := make([]string, len(chunk))
			for j, k := range chunk {
				names[j] = display[k]
			}

			v, err, _ := s.group.Do(strings.Join(chunk, "\x00"), func() (any, error) {
				cards, notFound, err := s.fetcher.GetCardsByNames(gctx, names)
				if err != nil {
					return nil, err
				}
				named, err := s.fetchNamed(gctx, notFound)
				return fetchResult{cards: cards, named: named}, err
			})
			if v == nil {
				return err
			}

			now := time.Now().UTC()
			mu.Lock()
			defer mu.Unlock()
			for _, card := range v.(fetchResult).cards {
				for _, name := range card.FaceNames() {
					key := cardname.Normalize(name)
					if wanted[key] {
						rows[key] = identityRow(key, card, now)
					}
				}
			}
			for key, card := range v.(fetchResult).named {
				if wanted[key] {
					rows[key] = identityRow(key, card, now)
				}
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return rows, fmt.Errorf("failed to fetch cards: %w", err)
	}
	return rows, nil
}

// fetchNamed retries names the batch endpoint missed one at a time against the
// exact-name endpoint, which also matches alternate face spellings. A 404
// means the card does not exist; any other failure is returned with whatever
// was found before it.
func (s *Service) fetchNamed(ctx context.Context, names []string) (map[string]scryfall.Card, error) {
	if len(names) == 0 {
		return nil, nil
	}

	found := make(map[string]scryfall.Card, len(names))
	var missing []string
	for _, name := range names {
		card, err := s.fetcher.GetCardByName(ctx, name)
		switch {
		case scryfall.IsNotFound(err):
			missing = append(missing, name)
		case err != nil:
			return found, err
		default:
			found[cardname.Normalize(name)] = *card
		}
	}

	if len(missing) > 0 {
		s.logger.Debug("cards not found on Scryfall", zap.Strings("names", missing))
	}
	return found, nil
}

func identityRow(key string, card scryfall.Card, now time.Time) *storage.CardIdentity {
	colors := card.ColorIdentity
	if len(colors) == 0 {
		colors = []string{upgrades.ColorlessSymbol}
	}
	return &storage.CardIdentity{
		NormalizedName: key,
		Name:           card.Name,
		ColorIdentity:  colors,
		ScryfallID:     card.ID,
		LastUpdated:    now,
	}
}

func toIdentity(row *storage.CardIdentity) upgrades.CardIdentity {
	return upgrades.CardIdentity{
		NormalizedName: row.NormalizedName,
		ColorIdentity:  append([]string(nil), row.ColorIdentity...),
	}
}
