package upgrades

import (
	"context"

	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
)

// Request is one validation call.
type Request struct {
	Text          string
	Deck          []DeckCard
	Commander     string
	AllowedColors []string
	Format        Format
	RepairPass    bool
}

// Engine runs extract, validate, repair and decide for each request.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	validator *Validator
	logger    *zap.Logger
}

// NewEngine creates an engine around a validator.
func NewEngine(validator *Validator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{validator: validator, logger: logger}
}

// Validator returns the engine's validator.
func (e *Engine) Validator() *Validator {
	return e.validator
}

// Validate checks the suggestions in req.Text. It never fails: malformed text
// yields zero blocks and the original text back.
func (e *Engine) Validate(ctx context.Context, req Request) *Result {
	blocks := Extract(req.Text, req.Format)

	result := &Result{
		Valid:           true,
		RepairedText:    req.Text,
		Issues:          []Issue{},
		BlocksExtracted: len(blocks),
	}
	if len(blocks) == 0 {
		return result
	}

	outcome := e.validator.Check(ctx, CheckInput{
		Blocks:        blocks,
		Deck:          DeckMultiset(req.Deck),
		Commander:     req.Commander,
		AllowedColors: e.allowedColors(req),
		Format:        req.Format,
		RepairPass:    req.RepairPass,
	})

	surviving := outcome.Surviving()
	result.Issues = append(result.Issues, outcome.Issues...)
	result.Valid = len(outcome.Issues) == 0
	result.RepairedText = Repair(req.Text, blocks, outcome.Removed)
	result.UpgradeBlocksRemaining = surviving
	result.NeedsRegeneration = NeedsRegeneration(len(blocks), surviving, req.RepairPass)

	if !result.Valid {
		e.logger.Info("removed invalid upgrade suggestions",
			zap.Int("extracted", len(blocks)),
			zap.Int("surviving", surviving),
			zap.Bool("needs_regeneration", result.NeedsRegeneration),
			zap.Bool("repair_pass", req.RepairPass),
		)
	}

	return result
}

// allowedColors prefers the explicit list, then the commander fallback table.
func (e *Engine) allowedColors(req Request) []string {
	if len(req.AllowedColors) > 0 {
		return req.AllowedColors
	}
	if req.Commander == "" {
		return nil
	}
	colors, _ := e.validator.Tables().CommanderColors(req.Commander)
	return colors
}

// DeckMultiset maps normalized card names to their summed counts.
// Entries with a blank name or a count below one are ignored.
func DeckMultiset(cards []DeckCard) map[string]int {
	deck := make(map[string]int, len(cards))
	for _, c := range cards {
		key := cardname.Normalize(c.Name)
		if key == "" || c.Count < 1 {
			continue
		}
		deck[key] += c.Count
	}
	return deck
}
