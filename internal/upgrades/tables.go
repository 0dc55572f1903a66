package upgrades

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
)

// SwapPair names a card that is strictly worse than another.
type SwapPair struct {
	Inferior string `toml:"inferior" json:"inferior"`
	Superior string `toml:"superior" json:"superior"`
}

// TablesFile is the on-disk TOML layout of the lookup tables.
type TablesFile struct {
	StrictlyWorse   []SwapPair          `toml:"strictly_worse"`
	CommanderColors map[string][]string `toml:"commander_colors"`
}

// Tables holds the fixed lookup tables used by the validator.
// It is read-only once built; use NewTables to construct one.
type Tables struct {
	pairs           []SwapPair
	strictlyWorse   map[[2]string]struct{}
	commanderColors map[string][]string
}

// NewTables builds immutable tables, normalizing every name.
func NewTables(pairs []SwapPair, commanderColors map[string][]string) *Tables {
	t := &Tables{
		pairs:           make([]SwapPair, 0, len(pairs)),
		strictlyWorse:   make(map[[2]string]struct{}, len(pairs)),
		commanderColors: make(map[string][]string, len(commanderColors)),
	}

	for _, p := range pairs {
		inferior, superior := cardname.Normalize(p.Inferior), cardname.Normalize(p.Superior)
		if inferior == "" || superior == "" {
			continue
		}
		t.pairs = append(t.pairs, p)
		t.strictlyWorse[[2]string{inferior, superior}] = struct{}{}
	}

	for name, colors := range commanderColors {
		key := cardname.Normalize(name)
		if key == "" {
			continue
		}
		t.commanderColors[key] = normalizeColors(colors)
	}

	return t
}

// IsStrictlyWorse reports whether adding add in place of cut is a downgrade.
func (t *Tables) IsStrictlyWorse(add, cut string) bool {
	if t == nil {
		return false
	}
	_, ok := t.strictlyWorse[[2]string{cardname.Normalize(add), cardname.Normalize(cut)}]
	return ok
}

// CommanderColors returns the fallback color identity for a commander.
func (t *Tables) CommanderColors(commander string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	colors, ok := t.commanderColors[cardname.Normalize(commander)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), colors...), true
}

// Pairs returns a copy of the strictly-worse pairs.
func (t *Tables) Pairs() []SwapPair {
	if t == nil {
		return nil
	}
	return append([]SwapPair(nil), t.pairs...)
}

// LoadTables reads tables from a TOML file.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}
	return ParseTables(data)
}

// ParseTables parses tables from TOML bytes.
func ParseTables(data []byte) (*Tables, error) {
	var file TablesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse tables file: %w", err)
	}
	return NewTables(file.StrictlyWorse, file.CommanderColors), nil
}

// DefaultTables returns the built-in tables.
func DefaultTables() *Tables {
	return NewTables(defaultStrictlyWorse, defaultCommanderColors)
}

func normalizeColors(colors []string) []string {
	out := make([]string, 0, len(colors))
	seen := make(map[string]bool, len(colors))
	for _, c := range colors {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return colorOrder(out[i]) < colorOrder(out[j]) })
	return out
}

// colorOrder sorts symbols in WUBRG order, colorless last.
func colorOrder(c string) int {
	if i := strings.Index("WUBRGC", c); i >= 0 && len(c) == 1 {
		return i
	}
	return 99
}

var defaultStrictlyWorse = []SwapPair{
	{Inferior: "Murder", Superior: "Putrefy"},
	{Inferior: "Cancel", Superior: "Counterspell"},
	{Inferior: "Divination", Superior: "Night's Whisper"},
	{Inferior: "Shock", Superior: "Lightning Bolt"},
	{Inferior: "Naturalize", Superior: "Nature's Claim"},
	{Inferior: "Doom Blade", Superior: "Go for the Throat"},
	{Inferior: "Mind Rot", Superior: "Hymn to Tourach"},
	{Inferior: "Terramorphic Expanse", Superior: "Evolving Wilds"},
	{Inferior: "Rampant Growth", Superior: "Nature's Lore"},
	{Inferior: "Disenchant", Superior: "Return to Dust"},
	{Inferior: "Mana Leak", Superior: "Counterspell"},
	{Inferior: "Essence Scatter", Superior: "Counterspell"},
}

var defaultCommanderColors = map[string][]string{
	"Atraxa, Praetors' Voice":     {"W", "U", "B", "G"},
	"Edgar Markov":                {"R", "W", "B"},
	"The Ur-Dragon":               {"W", "U", "B", "R", "G"},
	"Krenko, Mob Boss":            {"R"},
	"Talrand, Sky Summoner":       {"U"},
	"Meren of Clan Nel Toth":      {"B", "G"},
	"Muldrotha, the Gravetide":    {"U", "B", "G"},
	"Kenrith, the Returned King":  {"W", "U", "B", "R", "G"},
	"Lathril, Blade of the Elves": {"B", "G"},
	"Yuriko, the Tiger's Shadow":  {"U", "B"},
	"Prosper, Tome-Bound":         {"B", "R"},
	"Korvold, Fae-Cursed King":    {"B", "R", "G"},
	"Omnath, Locus of Creation":   {"W", "U", "R", "G"},
	"Urza, Lord High Artificer":   {"U"},
	"Teysa Karlov":                {"W", "B"},
}
