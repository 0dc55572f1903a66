package storage

import (
	"path/filepath"
	"testing"
)

// NewTestService opens a migrated database in a temporary directory.
// It is exported for use in other package tests.
func NewTestService(t testing.TB) *Service {
	t.Helper()

	config := DefaultConfig(filepath.Join(t.TempDir(), "test.db"))
	config.AutoMigrate = true

	db, err := Open(config)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service := NewService(db)
	t.Cleanup(func() { _ = service.Close() })
	return service
}
