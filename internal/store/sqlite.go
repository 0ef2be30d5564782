// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides progression and persona-preference persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS progress (
			user_id       TEXT PRIMARY KEY,
			xp            INTEGER NOT NULL DEFAULT 0,
			level         INTEGER NOT NULL DEFAULT 1,
			last_activity DATETIME,
			badges        TEXT NOT NULL DEFAULT '[]',

			CHECK (xp >= 0),
			CHECK (level >= 1)
		);

		CREATE INDEX IF NOT EXISTS idx_progress_level_xp
			ON progress(level DESC, xp DESC);

		CREATE TABLE IF NOT EXISTS persona_prefs (
			user_id    TEXT PRIMARY KEY,
			persona_id TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// LoadProgress returns the full progression ledger keyed by user id.
func (s *SQLiteStore) LoadProgress(ctx context.Context) (map[string]*UserProgress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, xp, level, last_activity, badges FROM progress`)
	if err != nil {
		return nil, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	progress := make(map[string]*UserProgress)
	for rows.Next() {
		var p UserProgress
		var lastActivity sql.NullTime
		var badgesJSON string
		if err := rows.Scan(&p.UserID, &p.XP, &p.Level, &lastActivity, &badgesJSON); err != nil {
			return nil, fmt.Errorf("scanning progress row: %w", err)
		}
		if lastActivity.Valid {
			p.LastActivity = lastActivity.Time
		}
		if err := json.Unmarshal([]byte(badgesJSON), &p.Badges); err != nil {
			// Tolerate legacy rows with unreadable badge data rather than
			// refusing to start
			s.logger.Warn("unreadable badges column, resetting", "user_id", p.UserID, "error", err)
			p.Badges = nil
		}
		progress[p.UserID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating progress rows: %w", err)
	}

	return progress, nil
}

// SaveProgress upserts a single user's progression row.
func (s *SQLiteStore) SaveProgress(ctx context.Context, p *UserProgress) error {
	badges := p.Badges
	if badges == nil {
		badges = []string{}
	}
	badgesJSON, err := json.Marshal(badges)
	if err != nil {
		return fmt.Errorf("encoding badges: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO progress (user_id, xp, level, last_activity, badges)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			xp = excluded.xp,
			level = excluded.level,
			last_activity = excluded.last_activity,
			badges = excluded.badges`,
		p.UserID, p.XP, p.Level, p.LastActivity, string(badgesJSON))
	if err != nil {
		return fmt.Errorf("saving progress for %s: %w", p.UserID, err)
	}
	return nil
}

// ResetProgress deletes the entire progression ledger.
func (s *SQLiteStore) ResetProgress(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress`); err != nil {
		return fmt.Errorf("resetting progress: %w", err)
	}
	s.logger.Info("progression ledger reset")
	return nil
}

// GetPersonaPref returns the stored persona id for a user, or ErrNotFound.
func (s *SQLiteStore) GetPersonaPref(ctx context.Context, userID string) (string, error) {
	var personaID string
	err := s.db.QueryRowContext(ctx,
		`SELECT persona_id FROM persona_prefs WHERE user_id = ?`, userID).Scan(&personaID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying persona pref for %s: %w", userID, err)
	}
	return personaID, nil
}

// SetPersonaPref upserts the persona preference for a user.
func (s *SQLiteStore) SetPersonaPref(ctx context.Context, userID, personaID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persona_prefs (user_id, persona_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			persona_id = excluded.persona_id,
			updated_at = excluded.updated_at`,
		userID, personaID, time.Now())
	if err != nil {
		return fmt.Errorf("saving persona pref for %s: %w", userID, err)
	}
	return nil
}

// ClearPersonaPref removes the persona preference for a user.
// Clearing a user that has no preference is not an error.
func (s *SQLiteStore) ClearPersonaPref(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM persona_prefs WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clearing persona pref for %s: %w", userID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
