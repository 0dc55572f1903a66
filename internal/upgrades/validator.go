package upgrades

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
)

// MaxCopies is the copy limit enforced in quantified formats.
const MaxCopies = 4

// ColorlessSymbol marks a card confirmed to have no colors in its identity.
// It fits every allowed color list.
const ColorlessSymbol = "C"

// CheckInput is everything the rules look at for one validation.
type CheckInput struct {
	Blocks        []Block
	Deck          map[string]int // normalized name -> count
	Commander     string
	AllowedColors []string
	Format        Format
	RepairPass    bool
}

// Outcome lists the issues found and which blocks must be removed.
type Outcome struct {
	Issues  []Issue
	Removed []bool // indexed like CheckInput.Blocks
}

// Surviving returns how many blocks were not removed.
func (o *Outcome) Surviving() int {
	n := 0
	for _, removed := range o.Removed {
		if !removed {
			n++
		}
	}
	return n
}

// Validator applies the deck rules to extracted blocks.
type Validator struct {
	resolver IdentityResolver
	tables   *Tables
	logger   *zap.Logger
}

// NewValidator creates a validator. A nil resolver resolves nothing, so every
// add is reported as invented.
func NewValidator(resolver IdentityResolver, tables *Tables, logger *zap.Logger) *Validator {
	if tables == nil {
		tables = DefaultTables()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		resolver: resolver,
		tables:   tables,
		logger:   logger,
	}
}

// Tables returns the tables the validator was built with.
func (v *Validator) Tables() *Tables {
	return v.tables
}

// Check runs the rules in order. Once a block is removed later rules skip it,
// so each block carries at most one removal reason.
func (v *Validator) Check(ctx context.Context, in CheckInput) *Outcome {
	out := &Outcome{Removed: make([]bool, len(in.Blocks))}

	reject := func(i int, kind IssueKind, format string, args ...any) {
		b := in.Blocks[i]
		out.Removed[i] = true
		out.Issues = append(out.Issues, Issue{
			Kind:    kind,
			Block:   i,
			Card:    b.AddCard,
			CutCard: b.CutCard,
			Message: fmt.Sprintf(format, args...),
		})
	}

	commander := cardname.Normalize(in.Commander)

	// Rules 1 and 2 only need the deck.
	for i, b := range in.Blocks {
		add := cardname.Normalize(b.AddCard)
		if in.Format.Singleton {
			if in.Deck[add] > 0 {
				reject(i, IssueAddAlreadyInDeck, "%s is already in the deck", b.AddCard)
				continue
			}
			if in.Format.CommanderImplicit && commander != "" && add == commander {
				reject(i, IssueAddAlreadyInDeck, "%s is the deck's commander", b.AddCard)
				continue
			}
		}
		if b.HasCut() && in.Deck[cardname.Normalize(b.CutCard)] == 0 {
			reject(i, IssueCutNotInDeck, "%s is not in the deck", b.CutCard)
		}
	}

	identities := v.resolveSurviving(ctx, in.Blocks, out.Removed)

	for i, b := range in.Blocks {
		if out.Removed[i] {
			continue
		}
		if _, ok := identities[cardname.Normalize(b.AddCard)]; !ok {
			reject(i, IssueInventedCard, "%s could not be found in the card database", b.AddCard)
		}
	}

	if in.Format.RestrictColors && len(in.AllowedColors) > 0 {
		allowed := make(map[string]bool, len(in.AllowedColors))
		for _, c := range in.AllowedColors {
			allowed[strings.ToUpper(strings.TrimSpace(c))] = true
		}
		allowedLabel := strings.Join(normalizeColors(in.AllowedColors), "")

		for i, b := range in.Blocks {
			if out.Removed[i] {
				continue
			}
			identity := identities[cardname.Normalize(b.AddCard)]
			if len(identity.ColorIdentity) == 0 {
				reject(i, IssueOffColor, "%s has an unknown color identity", b.AddCard)
				continue
			}
			if offending := outsideIdentity(identity.ColorIdentity, allowed); offending != "" {
				reject(i, IssueOffColor, "%s is outside the deck's color identity %s (has %s)",
					b.AddCard, allowedLabel, offending)
			}
		}
	}

	if in.Format.Quantified {
		for i, b := range in.Blocks {
			if out.Removed[i] {
				continue
			}
			owned := in.Deck[cardname.Normalize(b.AddCard)]
			if b.Quantity > MaxCopies-owned {
				reject(i, IssueOverCopyLimit, "%s would have %s copies (limit %d)",
					b.AddCard, copiesLabel(owned, b.Quantity), MaxCopies)
			}
		}
	}

	for i, b := range in.Blocks {
		if out.Removed[i] || !b.HasCut() {
			continue
		}
		if v.tables.IsStrictlyWorse(b.AddCard, b.CutCard) {
			reject(i, IssueStrictlyWorse, "%s is strictly worse than %s", b.AddCard, b.CutCard)
		}
	}

	v.logger.Debug("checked upgrade blocks",
		zap.Int("blocks", len(in.Blocks)),
		zap.Int("issues", len(out.Issues)),
		zap.String("format", in.Format.Name),
		zap.Bool("repair_pass", in.RepairPass),
	)

	return out
}

// resolveSurviving looks up every surviving add in one batched call. On a
// resolver error the partial result is kept, so names it is missing fail closed.
func (v *Validator) resolveSurviving(ctx context.Context, blocks []Block, removed []bool) map[string]CardIdentity {
	names := make([]string, 0, len(blocks))
	seen := make(map[string]bool, len(blocks))
	for i, b := range blocks {
		key := cardname.Normalize(b.AddCard)
		if removed[i] || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, b.AddCard)
	}

	if len(names) == 0 || v.resolver == nil {
		return map[string]CardIdentity{}
	}

	identities, err := v.resolver.ResolveIdentities(ctx, names)
	if err != nil {
		v.logger.Warn("card identity lookup failed; unresolved cards will be rejected",
			zap.Int("names", len(names)),
			zap.Int("resolved", len(identities)),
			zap.Error(err),
		)
	}
	if identities == nil {
		identities = map[string]CardIdentity{}
	}
	return identities
}

// outsideIdentity returns the symbols not covered by allowed, or "".
func outsideIdentity(identity []string, allowed map[string]bool) string {
	var offending []string
	for _, c := range identity {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == ColorlessSymbol || allowed[c] {
			continue
		}
		offending = append(offending, c)
	}
	return strings.Join(normalizeColors(offending), "")
}

func copiesLabel(owned, quantity int) string {
	if quantity > math.MaxInt-owned {
		return "more than " + strconv.Itoa(math.MaxInt)
	}
	return strconv.Itoa(owned + quantity)
}
