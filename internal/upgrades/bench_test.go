package upgrades

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// benchResponse builds a model reply with n upgrade blocks, each followed by
// an indented explanation, similar in shape to real completions.
func benchResponse(n int) string {
	var sb strings.Builder
	sb.WriteString("Here are some upgrades for your deck:\n\n")
	for i := range n {
		fmt.Fprintf(&sb, "%d. ADD [[Card %d]] CUT [[Deck Card %d]]\n", i+1, i, i)
		sb.WriteString("   Strictly better mana efficiency and a stronger late game.\n")
		sb.WriteString("   Fits the deck's main plan.\n\n")
	}
	sb.WriteString("These changes should make the deck more consistent.")
	return sb.String()
}

func benchDeck(n int) []DeckCard {
	deck := make([]DeckCard, 0, n)
	for i := range n {
		deck = append(deck, DeckCard{Name: fmt.Sprintf("Deck Card %d", i), Count: 1})
	}
	return deck
}

func BenchmarkExtract(b *testing.B) {
	for _, n := range []int{5, 20, 100} {
		text := benchResponse(n)
		b.Run(fmt.Sprintf("blocks=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = Extract(text, FormatCommander)
			}
		})
	}
}

func BenchmarkEngineValidate(b *testing.B) {
	cards := make(map[string][]string)
	for i := range 100 {
		cards[fmt.Sprintf("Card %d", i)] = []string{"U"}
	}
	engine := NewEngine(NewValidator(newFakeResolver(cards), DefaultTables(), nil), nil)

	for _, n := range []int{5, 20} {
		req := Request{
			Text:          benchResponse(n),
			Deck:          benchDeck(100),
			AllowedColors: []string{"U", "B"},
			Format:        FormatCommander,
		}
		b.Run(fmt.Sprintf("blocks=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = engine.Validate(context.Background(), req)
			}
		})
	}
}
