package sqlite

import (
	"context"
	"time"

	"github.com/fwojciec/repochat"
	"github.com/ncruces/go-sqlite3"
)

// Compile-time interface verification.
var _ repochat.PreferenceService = (*PreferenceService)(nil)

// PreferenceService implements repochat.PreferenceService using SQLite.
type PreferenceService struct {
	db *DB
}

// NewPreferenceService creates a new PreferenceService.
func NewPreferenceService(db *DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// GetPreference retrieves a preference value.
func (s *PreferenceService) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	found := false

	err := s.db.WithConn(ctx, func(c *Conn) error {
		return c.query(ctx, "SELECT value FROM user_preferences WHERE key = ?",
			[]any{key}, func(stmt *sqlite3.Stmt) error {
				value = stmt.ColumnText(0)
				found = true
				return nil
			})
	})
	if err != nil {
		return "", err
	}
	if !found {
		return "", repochat.Errorf(repochat.ENOTFOUND, "preference %q not set", key)
	}

	return value, nil
}

// SetPreference creates or replaces a preference value.
func (s *PreferenceService) SetPreference(ctx context.Context, key, value string) error {
	if key == "" {
		return repochat.Errorf(repochat.EINVALID, "preference key required")
	}

	return s.db.WithConn(ctx, func(c *Conn) error {
		_, err := c.exec(ctx, `
			INSERT INTO user_preferences (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, value, time.Now().UTC().Format(time.RFC3339))
		return err
	})
}

// DeletePreference removes a preference. Deleting an unset key is not an
// error.
func (s *PreferenceService) DeletePreference(ctx context.Context, key string) error {
	return s.db.WithConn(ctx, func(c *Conn) error {
		_, err := c.exec(ctx, "DELETE FROM user_preferences WHERE key = ?", key)
		return err
	})
}
