package advisor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// reloadDebounce collapses the burst of events editors emit on save.
const reloadDebounce = 250 * time.Millisecond

// Tables returns the lookup tables currently in use.
func (s *Service) Tables() *upgrades.Tables {
	return s.engine.Load().Validator().Tables()
}

// SetTables swaps in new lookup tables. In-flight validations finish with the
// tables they started with.
func (s *Service) SetTables(tables *upgrades.Tables) {
	validator := upgrades.NewValidator(s.resolver, tables, s.logger)
	s.engine.Store(upgrades.NewEngine(validator, s.logger))
}

// ReloadTables loads tables from path. On error the current tables are kept.
func (s *Service) ReloadTables(path string) error {
	tables, err := upgrades.LoadTables(path)
	s.metrics.ObserveTablesReload(err)
	if err != nil {
		return err
	}

	s.SetTables(tables)
	s.logger.Info("reloaded lookup tables",
		zap.String("path", path),
		zap.Int("strictly_worse_pairs", len(tables.Pairs())),
	)
	return nil
}

// WatchTables reloads the tables file whenever it changes until ctx is done.
// The parent directory is watched so that atomic renames are picked up.
func (s *Service) WatchTables(ctx context.Context, path string) (err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch tables directory: %w", err)
	}

	timer := time.NewTimer(reloadDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDebounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("tables watcher error", zap.Error(werr))
		case <-timer.C:
			if rerr := s.ReloadTables(target); rerr != nil {
				s.logger.Warn("failed to reload lookup tables, keeping previous",
					zap.String("path", target), zap.Error(rerr))
			}
		}
	}
}
