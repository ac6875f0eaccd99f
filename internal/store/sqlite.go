package store

import (
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opsdesk/console-core/pkg/database"
)

// SQLiteStore persists presentation state in the local sqlite database so it
// survives process restarts within the same session scope
type SQLiteStore struct {
	db     *database.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a sqlite-backed KV
func NewSQLiteStore(db *database.DB, logger *zap.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:     db,
		logger: logger,
	}
}

// Get returns the stored value, or (nil, nil) when the key is absent
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var value string
	err := s.db.QueryRow(
		"SELECT value FROM presentation_state WHERE key = ?", key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set upserts the value for key
func (s *SQLiteStore) Set(key string, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO presentation_state (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, string(value))
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// SetMany upserts all items inside a single transaction so a crash mid-write
// cannot leave the presentation maps mutually inconsistent
func (s *SQLiteStore) SetMany(items map[string][]byte) error {
	return s.db.WithTransaction(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO presentation_state (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare batch write: %w", err)
		}
		defer stmt.Close()

		for key, value := range items {
			if _, err := stmt.Exec(key, string(value)); err != nil {
				return fmt.Errorf("failed to write key %s: %w", key, err)
			}
		}
		return nil
	})
}

// Delete removes a key; deleting a missing key is a no-op
func (s *SQLiteStore) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM presentation_state WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes every key sharing the prefix
func (s *SQLiteStore) DeletePrefix(prefix string) error {
	// Escape LIKE metacharacters so a prefix containing % or _ stays literal.
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)
	res, err := s.db.Exec(
		`DELETE FROM presentation_state WHERE key LIKE ? ESCAPE '\'`,
		escaped+"%",
	)
	if err != nil {
		return fmt.Errorf("failed to clear prefix %s: %w", prefix, err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("Cleared presentation state",
			zap.String("prefix", prefix),
			zap.Int64("keys", n))
	}
	return nil
}
