// Package upgrades validates and repairs deck upgrade suggestions produced by a
// language model. Suggestions are ADD/CUT blocks embedded in free text; blocks
// that break a deck rule are removed and everything else is kept verbatim.
package upgrades

import (
	"context"
)

// DeckCard is one entry of the caller's deck list.
type DeckCard struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CardIdentity is the metadata the validator needs about a card.
// A nil or empty ColorIdentity means the identity is unknown.
type CardIdentity struct {
	NormalizedName string   `json:"normalized_name"`
	ColorIdentity  []string `json:"color_identity,omitempty"`
}

// IdentityResolver resolves card names to identities in a single batch.
// Keys of the returned map are normalized names. Names that cannot be resolved
// are simply absent; a non-nil error may accompany a partial result.
type IdentityResolver interface {
	ResolveIdentities(ctx context.Context, names []string) (map[string]CardIdentity, error)
}

// Block is one ADD/CUT suggestion located in the source text.
type Block struct {
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"` // exclusive
	AddCard   string `json:"add_card"`
	CutCard   string `json:"cut_card,omitempty"`
	Quantity  int    `json:"quantity"`
}

// HasCut reports whether the block names a card to cut.
func (b Block) HasCut() bool {
	return b.CutCard != ""
}

// IssueKind classifies why a block was rejected.
type IssueKind string

const (
	IssueAddAlreadyInDeck IssueKind = "add_already_in_deck"
	IssueCutNotInDeck     IssueKind = "cut_not_in_deck"
	IssueInventedCard     IssueKind = "invented_card"
	IssueOffColor         IssueKind = "off_color"
	IssueIllegalFormat    IssueKind = "illegal_format" // reserved
	IssueOverCopyLimit    IssueKind = "over_copy_limit"
	IssueStrictlyWorse    IssueKind = "strictly_worse"
)

// Issue describes a rejected block.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Block   int       `json:"block"`
	Card    string    `json:"card"`
	CutCard string    `json:"cut_card,omitempty"`
	Message string    `json:"message"`
}

// Result is returned by Engine.Validate.
type Result struct {
	Valid                  bool    `json:"valid"`
	RepairedText           string  `json:"repaired_text"`
	Issues                 []Issue `json:"issues"`
	UpgradeBlocksRemaining int     `json:"upgrade_blocks_remaining"`
	NeedsRegeneration      bool    `json:"needs_regeneration"`
	BlocksExtracted        int     `json:"blocks_extracted"`
}
