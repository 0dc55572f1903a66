package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// identityChunkSize keeps IN clauses well under SQLite's variable limit.
const identityChunkSize = 500

// CardIdentity is a cached card identity row.
type CardIdentity struct {
	NormalizedName string
	Name           string
	ColorIdentity  []string // nil when unknown
	ScryfallID     string
	LastUpdated    time.Time
}

// GetIdentities returns cached identities keyed by normalized name.
// Keys with no row are absent from the result.
func (s *Service) GetIdentities(ctx context.Context, keys []string) (map[string]*CardIdentity, error) {
	result := make(map[string]*CardIdentity, len(keys))

	for start := 0; start < len(keys); start += identityChunkSize {
		end := min(start+identityChunkSize, len(keys))
		chunk := keys[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		query := `
			SELECT normalized_name, name, color_identity, COALESCE(scryfall_id, ''), last_updated
			FROM card_identities
			WHERE normalized_name IN (` + placeholders + `)
		`

		args := make([]any, len(chunk))
		for i, k := range chunk {
			args[i] = k
		}

		rows, err := s.db.Conn().QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query card identities: %w", err)
		}

		for rows.Next() {
			identity, err := scanIdentity(rows)
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
			result[identity.NormalizedName] = identity
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("error iterating card identities: %w", err)
		}
		_ = rows.Close()
	}

	return result, nil
}

func scanIdentity(rows *sql.Rows) (*CardIdentity, error) {
	var (
		identity CardIdentity
		colors   sql.NullString
	)
	if err := rows.Scan(&identity.NormalizedName, &identity.Name, &colors, &identity.ScryfallID, &identity.LastUpdated); err != nil {
		return nil, fmt.Errorf("failed to scan card identity: %w", err)
	}
	if colors.Valid {
		if err := json.Unmarshal([]byte(colors.String), &identity.ColorIdentity); err != nil {
			return nil, fmt.Errorf("failed to decode color identity for %s: %w", identity.NormalizedName, err)
		}
	}
	return &identity, nil
}

// SaveIdentities upserts identities in one transaction.
// A zero LastUpdated is stored as the current time.
func (s *Service) SaveIdentities(ctx context.Context, identities []*CardIdentity) error {
	if len(identities) == 0 {
		return nil
	}

	query := `
		INSERT INTO card_identities (normalized_name, name, color_identity, scryfall_id, last_updated)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(normalized_name) DO UPDATE SET
			name = excluded.name,
			color_identity = excluded.color_identity,
			scryfall_id = excluded.scryfall_id,
			last_updated = excluded.last_updated
	`

	return s.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare identity upsert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, identity := range identities {
			var colors sql.NullString
			if identity.ColorIdentity != nil {
				data, err := json.Marshal(identity.ColorIdentity)
				if err != nil {
					return fmt.Errorf("failed to encode color identity for %s: %w", identity.NormalizedName, err)
				}
				colors = sql.NullString{String: string(data), Valid: true}
			}

			updated := identity.LastUpdated.UTC()
			if identity.LastUpdated.IsZero() {
				updated = time.Now().UTC()
			}

			if _, err := stmt.ExecContext(ctx, identity.NormalizedName, identity.Name, colors, identity.ScryfallID, updated); err != nil {
				return fmt.Errorf("failed to save card identity %s: %w", identity.NormalizedName, err)
			}
		}
		return nil
	})
}

// DeleteStaleIdentities removes identities not refreshed since before olderThan ago.
func (s *Service) DeleteStaleIdentities(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	res, err := s.db.Conn().ExecContext(ctx, "DELETE FROM card_identities WHERE last_updated < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale card identities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted card identities: %w", err)
	}
	return n, nil
}

// CountIdentities returns the number of cached identities.
func (s *Service) CountIdentities(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Conn().QueryRowContext(ctx, "SELECT COUNT(*) FROM card_identities").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count card identities: %w", err)
	}
	return n, nil
}
