// Package session persists the authenticated identity as a single keyed blob
// in the SQLite session table.
//
// The record is versioned by its loginTime: anything older than the expiry
// window is discarded at load time. Identity is never patched field by field;
// every change writes a complete replacement record.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/zhiozhou/cloudmatch/internal/models"
	"github.com/zhiozhou/cloudmatch/internal/shared"
)

// storageKey is the fixed key of the identity record.
const storageKey = "userInfo"

// ExpiryWindow is how long a persisted login stays valid.
const ExpiryWindow = 30 * 24 * time.Hour

// Store reads and writes the identity record.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// NewStore creates a session store on top of an open, migrated database.
func NewStore(db *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{db: db, logger: logger}
}

// Load returns the persisted identity, or nil when no valid record exists.
// An expired or unreadable record is cleared as a side effect.
func (s *Store) Load() (*models.Identity, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT value FROM session WHERE key = ?", storageKey).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	var identity models.Identity
	if err := json.Unmarshal(blob, &identity); err != nil {
		s.logger.Warn("discarding unreadable session record", "error", err)
		return nil, s.Clear()
	}

	if time.Since(identity.LoginTime) >= ExpiryWindow {
		s.logger.Info("session expired", "user", identity.Username, "loginTime", identity.LoginTime)
		return nil, s.Clear()
	}

	return &identity, nil
}

// Save atomically overwrites the identity record.
func (s *Store) Save(identity models.Identity) error {
	blob, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to encode identity: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO session (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, storageKey, blob)
	if err != nil {
		return fmt.Errorf("failed to save identity: %w", err)
	}

	return nil
}

// Clear removes the identity record entirely.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM session WHERE key = ?", storageKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
