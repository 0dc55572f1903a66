// Package app wires configuration into a running advisor: the identity cache
// tiers, the Scryfall client, the completion backend and the advisor service.
// Both the API server and the CLI start from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/advisor"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardlookup"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/config"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/llm"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/metrics"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/scryfall"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/storage"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// App holds the long-lived components built from a Config.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Storage  *storage.Service
	Resolver *cardlookup.Service
	Advisor  *advisor.Service

	// Completer is nil when no backend could be configured.
	Completer llm.Completer

	redis *redis.Client
}

// Options carries the process-level collaborators.
type Options struct {
	Logger *zap.Logger

	// Registerer receives the advisor's metrics. Nil uses a private registry
	// so repeated construction in one process never collides.
	Registerer prometheus.Registerer

	// RequireCompleter fails New when no completion backend is configured.
	RequireCompleter bool
}

// New builds the application. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, options Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := options.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(reg),
	}

	if err := a.openStorage(); err != nil {
		return nil, err
	}

	tiers, err := a.cacheTiers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	client, err := a.scryfallClient()
	if err != nil {
		a.Close()
		return nil, err
	}

	staleAfter, _ := cfg.GetStaleAfter()
	a.Resolver = cardlookup.NewService(client, tiers, cardlookup.ServiceOptions{
		StaleThreshold:       staleAfter,
		MaxConcurrentFetches: cfg.Scryfall.MaxConcurrentFetches,
		Logger:               logger.Named("cardlookup"),
		Metrics:              a.Metrics,
	})

	a.Completer, err = a.completer()
	if err != nil {
		if options.RequireCompleter || !errors.Is(err, llm.ErrUnavailable) {
			a.Close()
			return nil, err
		}
		logger.Warn("no completion backend configured, suggestions disabled", zap.Error(err))
	}

	tables := upgrades.DefaultTables()
	if cfg.Validation.TablesPath != "" {
		tables, err = upgrades.LoadTables(cfg.Validation.TablesPath)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Advisor = advisor.NewService(a.Resolver, advisor.Options{
		Completer:   a.Completer,
		Tables:      tables,
		Logger:      logger.Named("advisor"),
		Metrics:     a.Metrics,
		Suggestions: cfg.Validation.Suggestions,
	})

	return a, nil
}

func (a *App) openStorage() error {
	path, err := a.Config.StoragePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	dbConfig := storage.DefaultConfig(path)
	dbConfig.AutoMigrate = true
	db, err := storage.Open(dbConfig)
	if err != nil {
		return fmt.Errorf("open identity cache: %w", err)
	}
	a.Storage = storage.NewService(db)
	return nil
}

// cacheTiers orders the caches fastest first: Redis when enabled, then SQLite.
func (a *App) cacheTiers(ctx context.Context) ([]cardlookup.Tier, error) {
	var tiers []cardlookup.Tier

	if a.Config.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.Redis.Addr,
			Password: a.Config.Redis.Password,
			DB:       a.Config.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis at %s: %w", a.Config.Redis.Addr, err)
		}
		ttl, _ := a.Config.GetRedisTTL()
		tiers = append(tiers, cardlookup.Tier{Name: "redis", Cache: cardlookup.NewRedisCache(a.redis, ttl)})
	}

	return append(tiers, cardlookup.Tier{Name: "sqlite", Cache: a.Storage}), nil
}

func (a *App) scryfallClient() (*scryfall.Client, error) {
	rateLimit, err := a.Config.GetScryfallRateLimit()
	if err != nil {
		return nil, err
	}
	return scryfall.NewClient(
		scryfall.WithBaseURL(a.Config.Scryfall.BaseURL),
		scryfall.WithRateLimit(rateLimit),
	), nil
}

func (a *App) completer() (llm.Completer, error) {
	timeout, err := a.Config.GetLLMTimeout()
	if err != nil {
		return nil, err
	}
	c := a.Config.LLM

	switch c.Provider {
	case llm.ProviderAnthropic:
		client, err := llm.NewAnthropicClient(&llm.AnthropicConfig{
			APIKey:     c.APIKey,
			Model:      c.AnthropicModel,
			MaxTokens:  c.MaxTokens,
			MaxRetries: c.MaxRetries,
			Timeout:    timeout,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		ollama := llm.DefaultOllamaConfig()
		ollama.BaseURL = c.OllamaURL
		ollama.Model = c.OllamaModel
		ollama.InferenceTimeout = timeout
		ollama.MaxRetries = c.MaxRetries
		ollama.Temperature = c.Temperature
		return llm.NewOllamaClient(ollama), nil
	}
}

// DefaultFormat resolves the configured default format.
func (a *App) DefaultFormat() upgrades.Format {
	format, ok := upgrades.FormatByName(a.Config.Validation.DefaultFormat)
	if !ok {
		a.Logger.Warn("unknown default format, using commander",
			zap.String("format", a.Config.Validation.DefaultFormat))
	}
	return format
}

// Close releases the cache connections.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn("error closing redis client", zap.Error(err))
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn("error closing identity cache", zap.Error(err))
		}
	}
}
