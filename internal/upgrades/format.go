package upgrades

import (
	"strings"
	"unicode"
)

// Format describes how a deck format shapes the suggestion rules.
type Format struct {
	Name string `json:"name"`

	// Singleton formats reject adds that are already in the deck.
	Singleton bool `json:"singleton"`

	// CommanderImplicit treats the commander as present in the deck.
	CommanderImplicit bool `json:"commander_implicit"`

	// RestrictColors enables the color identity rule.
	RestrictColors bool `json:"restrict_colors"`

	// Quantified formats use "ADD +N [[Name]]" and enforce MaxCopies.
	Quantified bool `json:"quantified"`
}

var (
	FormatCommander = Format{
		Name:              "commander",
		Singleton:         true,
		CommanderImplicit: true,
		RestrictColors:    true,
	}

	FormatBrawl = Format{
		Name:              "brawl",
		Singleton:         true,
		CommanderImplicit: true,
		RestrictColors:    true,
	}

	FormatConstructed = Format{
		Name:       "constructed",
		Quantified: true,
	}
)

// Formats returns the built-in format variants.
func Formats() []Format {
	return []Format{FormatCommander, FormatBrawl, FormatConstructed}
}

// FormatByName looks up a built-in format. Unknown names fall back to commander.
func FormatByName(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "commander", "edh", "":
		return FormatCommander, true
	case "brawl", "historic_brawl", "historicbrawl":
		return FormatBrawl, true
	case "constructed", "standard", "pioneer", "modern", "legacy", "vintage", "historic":
		return FormatConstructed, true
	}
	return FormatCommander, false
}

var colorWords = map[string]string{
	"white":     "W",
	"blue":      "U",
	"black":     "B",
	"red":       "R",
	"green":     "G",
	"colorless": "C",
}

// SplitColors turns color lists such as "UB", "U,B", "u b" or "blue black"
// into single symbols, keeping first-seen order. Anything that is not a
// color is dropped.
func SplitColors(values ...string) []string {
	var colors []string
	seen := make(map[string]bool)
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			colors = append(colors, c)
		}
	}

	for _, v := range values {
		tokens := strings.FieldsFunc(v, func(r rune) bool {
			return r == ',' || r == '/' || unicode.IsSpace(r)
		})
		for _, tok := range tokens {
			if c, ok := colorWords[strings.ToLower(tok)]; ok {
				add(c)
				continue
			}
			for _, r := range strings.ToUpper(tok) {
				if strings.ContainsRune("WUBRGC", r) {
					add(string(r))
				}
			}
		}
	}
	return colors
}
