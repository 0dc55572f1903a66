package upgrades

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTables_StrictlyWorse(t *testing.T) {
	tables := NewTables([]SwapPair{{Inferior: "Murder", Superior: "Putrefy"}, {Inferior: "", Superior: "X"}}, nil)

	assert.True(t, tables.IsStrictlyWorse("murder", "PUTREFY"))
	assert.False(t, tables.IsStrictlyWorse("Putrefy", "Murder"), "pairs are directional")
	assert.Len(t, tables.Pairs(), 1)

	var nilTables *Tables
	assert.False(t, nilTables.IsStrictlyWorse("Murder", "Putrefy"))
}

func TestTables_CommanderColors(t *testing.T) {
	tables := NewTables(nil, map[string][]string{"Lim-Dûl the Necromancer": {"b", "B", " "}})

	colors, ok := tables.CommanderColors("lim-dul the necromancer")
	require.True(t, ok)
	assert.Equal(t, []string{"B"}, colors)

	colors[0] = "W"
	again, _ := tables.CommanderColors("Lim-Dûl the Necromancer")
	assert.Equal(t, []string{"B"}, again, "callers cannot mutate the table")

	_, ok = tables.CommanderColors("Nobody")
	assert.False(t, ok)
}

func TestLoadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.toml")
	content := `
[[strictly_worse]]
inferior = "Shock"
superior = "Lightning Bolt"

[commander_colors]
"Niv-Mizzet, Parun" = ["R", "U"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.True(t, tables.IsStrictlyWorse("Shock", "Lightning Bolt"))
	colors, ok := tables.CommanderColors("Niv-Mizzet, Parun")
	require.True(t, ok)
	assert.Equal(t, []string{"U", "R"}, colors)

	_, err = LoadTables(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = ParseTables([]byte("[[strictly_worse]\nbroken"))
	assert.Error(t, err)
}

func TestFormatByName_Tables(t *testing.T) {
	tests := []struct {
		in    string
		want  Format
		known bool
	}{
		{"commander", FormatCommander, true},
		{"EDH", FormatCommander, true},
		{"", FormatCommander, true},
		{"brawl", FormatBrawl, true},
		{"Modern", FormatConstructed, true},
		{"two-headed giant", FormatCommander, false},
	}

	for _, tt := range tests {
		got, known := FormatByName(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}
