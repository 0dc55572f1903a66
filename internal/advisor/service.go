// Package advisor ties the upgrade engine to a completion backend. It owns the
// generate, validate and regenerate loop and the hot-reloadable lookup tables.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/llm"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/metrics"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// ErrEmptyDeck is returned when a suggestion is requested for a deck with no cards.
var ErrEmptyDeck = errors.New("deck has no cards")

// Options configures a Service.
type Options struct {
	// Completer generates suggestions. Suggest returns llm.ErrUnavailable
	// when it is nil; Validate works without one.
	Completer llm.Completer

	// Tables defaults to upgrades.DefaultTables().
	Tables *upgrades.Tables

	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Suggestions is the default number of upgrades requested per prompt.
	Suggestions int
}

// Service validates upgrade suggestions and generates new ones.
type Service struct {
	resolver    upgrades.IdentityResolver
	completer   llm.Completer
	engine      atomic.Pointer[upgrades.Engine]
	logger      *zap.Logger
	metrics     *metrics.Metrics
	suggestions int
}

// NewService creates an advisor around an identity resolver.
func NewService(resolver upgrades.IdentityResolver, options Options) *Service {
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		resolver:    resolver,
		completer:   options.Completer,
		logger:      logger,
		metrics:     options.Metrics,
		suggestions: options.Suggestions,
	}
	if s.suggestions <= 0 {
		s.suggestions = llm.DefaultSuggestionCount
	}

	tables := options.Tables
	if tables == nil {
		tables = upgrades.DefaultTables()
	}
	s.SetTables(tables)

	return s
}

// HasCompleter reports whether Suggest can reach a completion backend.
func (s *Service) HasCompleter() bool {
	return s.completer != nil
}

// Validate runs one validation pass and records it.
func (s *Service) Validate(ctx context.Context, req upgrades.Request) *upgrades.Result {
	result := s.engine.Load().Validate(ctx, req)

	kinds := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		kinds = append(kinds, string(issue.Kind))
	}
	s.metrics.ObserveValidation(result.Valid, result.BlocksExtracted, kinds)

	return result
}

// SuggestRequest asks for upgrade suggestions for a deck.
type SuggestRequest struct {
	Deck          []upgrades.DeckCard
	Commander     string
	AllowedColors []string
	Format        upgrades.Format

	// Suggestions overrides the service default when positive.
	Suggestions int
}

// SuggestResult is the accepted outcome of a suggestion round.
type SuggestResult struct {
	SessionID   string           `json:"session_id"`
	Provider    string           `json:"provider"`
	Attempts    int              `json:"attempts"`
	Regenerated bool             `json:"regenerated"`
	RawText     string           `json:"raw_text"`
	Result      *upgrades.Result `json:"result"`
}

// Suggest generates upgrades, validates them and regenerates at most once.
// When the regeneration call fails the first validated result is returned.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResult, error) {
	if len(upgrades.DeckMultiset(req.Deck)) == 0 {
		return nil, ErrEmptyDeck
	}
	if s.completer == nil {
		return nil, llm.ErrUnavailable
	}

	count := req.Suggestions
	if count <= 0 {
		count = s.suggestions
	}

	system, prompt := llm.BuildUpgradePrompt(llm.PromptInput{
		Deck:          req.Deck,
		Commander:     req.Commander,
		AllowedColors: req.AllowedColors,
		Format:        req.Format,
		Suggestions:   count,
	})

	out := &SuggestResult{
		SessionID: uuid.NewString(),
		Provider:  llm.ProviderName(s.completer),
	}
	logger := s.logger.With(zap.String("session_id", out.SessionID), zap.String("provider", out.Provider))

	text, err := s.complete(ctx, system, prompt)
	out.Attempts++
	if err != nil {
		return nil, fmt.Errorf("generate suggestions: %w", err)
	}

	validation := upgrades.Request{
		Text:          text,
		Deck:          req.Deck,
		Commander:     req.Commander,
		AllowedColors: req.AllowedColors,
		Format:        req.Format,
	}
	out.RawText = text
	out.Result = s.Validate(ctx, validation)

	if !out.Result.NeedsRegeneration {
		return out, nil
	}

	s.metrics.IncRegeneration()
	logger.Info("regenerating suggestions",
		zap.Int("extracted", out.Result.BlocksExtracted),
		zap.Int("surviving", out.Result.UpgradeBlocksRemaining),
	)

	text, err = s.complete(ctx, system, llm.WithCorrection(prompt))
	out.Attempts++
	if err != nil {
		logger.Warn("regeneration failed, keeping first result", zap.Error(err))
		return out, nil
	}

	validation.Text = text
	validation.RepairPass = true
	out.RawText = text
	out.Result = s.Validate(ctx, validation)
	out.Regenerated = true

	return out, nil
}

func (s *Service) complete(ctx context.Context, system, prompt string) (string, error) {
	start := time.Now()
	text, err := s.completer.Complete(ctx, system, prompt)
	s.metrics.ObserveCompletion(llm.ProviderName(s.completer), time.Since(start), err)
	return text, err
}
