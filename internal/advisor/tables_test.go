package advisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/metrics"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

const customTables = `
[[strictly_worse]]
inferior = "Counterspell"
superior = "Murder"

[commander_colors]
"Test Commander" = ["U", "B"]
`

func writeTables(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestService_ReloadTables(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := NewService(newFakeResolver(), Options{Metrics: m})

	path := filepath.Join(t.TempDir(), "tables.toml")
	writeTables(t, path, customTables)

	require.NoError(t, svc.ReloadTables(path))
	assert.True(t, svc.Tables().IsStrictlyWorse("Counterspell", "Murder"))
	colors, ok := svc.Tables().CommanderColors("Test Commander")
	require.True(t, ok)
	assert.Equal(t, []string{"U", "B"}, colors)

	result := svc.Validate(context.Background(), upgrades.Request{
		Text:      "ADD [[Counterspell]] CUT [[Murder]]",
		Deck:      testDeck(),
		Commander: "Test Commander",
		Format:    upgrades.FormatCommander,
	})
	require.Len(t, result.Issues, 1)
	assert.Equal(t, upgrades.IssueStrictlyWorse, result.Issues[0].Kind)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TablesReloadsTotal.WithLabelValues("ok")))
}

func TestService_ReloadTables_KeepsPreviousOnError(t *testing.T) {
	svc := NewService(newFakeResolver(), Options{})
	before := svc.Tables()

	path := filepath.Join(t.TempDir(), "tables.toml")
	writeTables(t, path, "[[strictly_worse]\nbroken")

	assert.Error(t, svc.ReloadTables(path))
	assert.Same(t, before, svc.Tables())

	assert.Error(t, svc.ReloadTables(filepath.Join(t.TempDir(), "missing.toml")))
	assert.Same(t, before, svc.Tables())
}

func TestService_WatchTables(t *testing.T) {
	svc := NewService(newFakeResolver(), Options{})
	require.False(t, svc.Tables().IsStrictlyWorse("Counterspell", "Murder"))

	path := filepath.Join(t.TempDir(), "tables.toml")
	writeTables(t, path, "")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.WatchTables(ctx, path) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeTables(t, path, customTables)

	assert.Eventually(t, func() bool {
		return svc.Tables().IsStrictlyWorse("Counterspell", "Murder")
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
}

func TestService_WatchTables_MissingDirectory(t *testing.T) {
	svc := NewService(newFakeResolver(), Options{})
	err := svc.WatchTables(context.Background(), filepath.Join(t.TempDir(), "nope", "tables.toml"))
	assert.Error(t, err)
}
