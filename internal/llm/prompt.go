package llm

import (
	"fmt"
	"strings"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// DefaultSuggestionCount is how many upgrades a prompt asks for when the
// caller does not say.
const DefaultSuggestionCount = 5

// UpgradeSystemPrompt frames the model as a deck-building assistant.
const UpgradeSystemPrompt = `You are an expert Magic: The Gathering deck builder.
You suggest concrete card upgrades for the deck you are given.
Only suggest real, printed Magic cards and spell every card name exactly as printed.`

// PromptInput describes the deck an upgrade prompt is built for.
type PromptInput struct {
	Deck          []upgrades.DeckCard
	Commander     string
	AllowedColors []string
	Format        upgrades.Format

	// Suggestions is the number of ADD lines requested. Default: 5
	Suggestions int
}

// BuildUpgradePrompt renders the system and user prompts for an upgrade
// request, documenting the exact ADD/CUT syntax the validator extracts.
func BuildUpgradePrompt(in PromptInput) (system, prompt string) {
	count := in.Suggestions
	if count <= 0 {
		count = DefaultSuggestionCount
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "Format: %s\n", in.Format.Name)
	if in.Commander != "" {
		fmt.Fprintf(&sb, "Commander: %s\n", in.Commander)
	}
	if len(in.AllowedColors) > 0 {
		fmt.Fprintf(&sb, "Color identity: %s\n", strings.Join(in.AllowedColors, ""))
	}

	sb.WriteString("\nCurrent decklist:\n")
	for _, card := range in.Deck {
		fmt.Fprintf(&sb, "%d %s\n", max(card.Count, 1), card.Name)
	}

	fmt.Fprintf(&sb, "\nSuggest %d upgrades for this deck.\n", count)
	sb.WriteString("Write each upgrade on its own line using exactly this format:\n\n")

	if in.Format.Quantified {
		sb.WriteString("ADD +N [[Card to add]] CUT [[Card to remove]]\n\n")
		sb.WriteString("N is the number of copies to add. A deck may hold at most 4 copies of a card.\n")
	} else {
		sb.WriteString("ADD [[Card to add]] CUT [[Card to remove]]\n\n")
		sb.WriteString("Every card may appear only once, so never add a card the deck already runs.\n")
	}

	sb.WriteString("The CUT must name a card from the decklist above. Omit CUT only when no card should leave.\n")
	sb.WriteString("You may follow an ADD line with indented lines explaining the choice.\n")
	if in.Format.RestrictColors && (len(in.AllowedColors) > 0 || in.Commander != "") {
		sb.WriteString("Every added card must fit the deck's color identity.\n")
	}
	sb.WriteString("Do not suggest a card that is strictly worse than the card it replaces.\n")

	return UpgradeSystemPrompt, sb.String()
}

// WithCorrection appends the corrective instruction used for the single
// regeneration pass.
func WithCorrection(prompt string) string {
	return strings.TrimRight(prompt, "\n") + "\n\n" + upgrades.CorrectiveInstruction
}
