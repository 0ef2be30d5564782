// ABOUTME: Tests for the SQLite store implementation
// ABOUTME: Verifies progression persistence, persona preferences, and schema bootstrap

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndLoadProgress(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := &UserProgress{
		UserID:       "@alice:example.org",
		XP:           320,
		Level:        3,
		LastActivity: time.Now().UTC().Truncate(time.Second),
		Badges:       []string{"first", "second"},
	}
	require.NoError(t, s.SaveProgress(ctx, p))

	loaded, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	got := loaded["@alice:example.org"]
	require.NotNil(t, got)
	assert.Equal(t, 320, got.XP)
	assert.Equal(t, 3, got.Level)
	assert.Equal(t, []string{"first", "second"}, got.Badges)
}

func TestSQLiteStore_SaveProgress_Upserts(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	p := &UserProgress{UserID: "u1", XP: 10, Level: 1}
	require.NoError(t, s.SaveProgress(ctx, p))

	p.XP = 250
	p.Level = 2
	p.Badges = []string{"badge"}
	require.NoError(t, s.SaveProgress(ctx, p))

	loaded, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 250, loaded["u1"].XP)
	assert.Equal(t, 2, loaded["u1"].Level)
	assert.Equal(t, []string{"badge"}, loaded["u1"].Badges)
}

func TestSQLiteStore_LoadProgress_Empty(t *testing.T) {
	s := createTestStore(t)

	loaded, err := s.LoadProgress(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_ResetProgress(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveProgress(ctx, &UserProgress{UserID: "u1", XP: 10, Level: 1}))
	require.NoError(t, s.SaveProgress(ctx, &UserProgress{UserID: "u2", XP: 20, Level: 1}))
	require.NoError(t, s.ResetProgress(ctx))

	loaded, err := s.LoadProgress(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteStore_PersonaPrefs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Missing pref returns ErrNotFound
	_, err := s.GetPersonaPref(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.SetPersonaPref(ctx, "u1", "pirate"))
	got, err := s.GetPersonaPref(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "pirate", got)

	// Overwrite
	require.NoError(t, s.SetPersonaPref(ctx, "u1", "batman"))
	got, err = s.GetPersonaPref(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "batman", got)

	// Clear, including clearing a user with no pref
	require.NoError(t, s.ClearPersonaPref(ctx, "u1"))
	require.NoError(t, s.ClearPersonaPref(ctx, "never-seen"))
	_, err = s.GetPersonaPref(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.SaveProgress(ctx, &UserProgress{UserID: "u1", XP: 90, Level: 1}))
	require.NoError(t, s.SetPersonaPref(ctx, "u1", "comedian"))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.LoadProgress(ctx)
	require.NoError(t, err)
	require.Contains(t, loaded, "u1")
	assert.Equal(t, 90, loaded["u1"].XP)

	pref, err := s2.GetPersonaPref(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "comedian", pref)
}
