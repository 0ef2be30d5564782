// ABOUTME: Per-user conversational sessions with bounded history and persona selection
// ABOUTME: History is in-memory only; the persona choice is written through to the store

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/emberchat/ember/internal/store"
)

// Turn roles. The system turn is never stored in history; it is synthesized
// from the current persona on every request.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation, tagged by speaker role.
// Immutable once created.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is a copy of one user's conversational state.
type Session struct {
	UserID    string
	PersonaID string
	History   []Turn
}

// PrefStore is what the manager needs from storage: durable persona
// preferences, nothing else.
type PrefStore interface {
	GetPersonaPref(ctx context.Context, userID string) (string, error)
	SetPersonaPref(ctx context.Context, userID, personaID string) error
	ClearPersonaPref(ctx context.Context, userID string) error
}

// entry is the live state for one user. Its lock serializes the whole
// read-session, call-inference, mutate-session cycle for that user.
type entry struct {
	lock      sync.Mutex
	personaID string
	history   []Turn
}

// Manager owns all user sessions. Cross-user operations proceed in
// parallel; same-user operations serialize on the entry lock.
type Manager struct {
	mu             sync.Mutex
	sessions       map[string]*entry
	maxHistory     int
	defaultPersona string
	prefs          PrefStore
	logger         *slog.Logger
}

// NewManager creates a session manager. maxHistory is the trim window in
// turns; prefs may be nil, in which case persona choices are process-local.
func NewManager(maxHistory int, defaultPersona string, prefs PrefStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:       make(map[string]*entry),
		maxHistory:     maxHistory,
		defaultPersona: defaultPersona,
		prefs:          prefs,
		logger:         logger.With("component", "session"),
	}
}

// Lock acquires the per-user exclusive section. The caller must hold it
// across read-session, inference, and mutate-session, and release it with
// Unlock.
func (m *Manager) Lock(ctx context.Context, userID string) {
	m.entryFor(ctx, userID).lock.Lock()
}

// Unlock releases the per-user exclusive section. Unlike Lock it never
// creates the entry: unlocking a user that was never locked is a programming
// error, not a reason to touch the preference store.
func (m *Manager) Unlock(userID string) {
	m.mu.Lock()
	e := m.sessions[userID]
	m.mu.Unlock()
	e.lock.Unlock()
}

// GetOrCreate returns a copy of the user's session, creating it lazily. On
// creation the persona comes from the durable preference if one exists,
// otherwise the process default. Caller must hold the user's lock.
func (m *Manager) GetOrCreate(ctx context.Context, userID string) Session {
	e := m.entryFor(ctx, userID)
	return Session{
		UserID:    userID,
		PersonaID: e.personaID,
		History:   append([]Turn(nil), e.history...),
	}
}

// AppendTurn appends a turn to the user's history, dropping the oldest
// entries to stay within the trim window. Caller must hold the user's lock.
func (m *Manager) AppendTurn(ctx context.Context, userID string, turn Turn) {
	e := m.entryFor(ctx, userID)
	e.history = append(e.history, turn)
	if len(e.history) > m.maxHistory {
		trimmed := len(e.history) - m.maxHistory
		e.history = append([]Turn(nil), e.history[trimmed:]...)
		m.logger.Debug("trimmed session history",
			"user_id", userID,
			"dropped", trimmed,
			"window", m.maxHistory)
	}
}

// SetPersona switches the user's persona and clears their history: a fresh
// start under the new persona, so no context bleeds across personas. The
// choice is written through to the preference store. Takes the user's lock,
// so a switch issued during an in-flight exchange waits for it to finish.
func (m *Manager) SetPersona(ctx context.Context, userID, personaID string) error {
	e := m.entryFor(ctx, userID)
	e.lock.Lock()
	defer e.lock.Unlock()

	e.personaID = personaID
	e.history = nil

	if m.prefs != nil {
		if err := m.prefs.SetPersonaPref(ctx, userID, personaID); err != nil {
			return fmt.Errorf("persisting persona choice: %w", err)
		}
	}
	m.logger.Info("persona changed", "user_id", userID, "persona", personaID)
	return nil
}

// RepairPersona overwrites a stale persona id in place without touching
// history. Used when the stored persona no longer exists in the registry.
// Caller must hold the user's lock.
func (m *Manager) RepairPersona(ctx context.Context, userID, personaID string) {
	m.entryFor(ctx, userID).personaID = personaID
	if m.prefs != nil {
		if err := m.prefs.SetPersonaPref(ctx, userID, personaID); err != nil {
			m.logger.Warn("failed to persist repaired persona", "user_id", userID, "error", err)
		}
	}
}

// ClearHistory drops the user's conversation history, keeping the persona.
// Takes the user's lock.
func (m *Manager) ClearHistory(ctx context.Context, userID string) {
	e := m.entryFor(ctx, userID)
	e.lock.Lock()
	e.history = nil
	e.lock.Unlock()
	m.logger.Info("history cleared", "user_id", userID)
}

// ClearAll drops history and resets the persona to the process default,
// removing the durable preference. Takes the user's lock.
func (m *Manager) ClearAll(ctx context.Context, userID string) error {
	e := m.entryFor(ctx, userID)
	e.lock.Lock()
	defer e.lock.Unlock()

	e.history = nil
	e.personaID = m.defaultPersona

	if m.prefs != nil {
		if err := m.prefs.ClearPersonaPref(ctx, userID); err != nil {
			return fmt.Errorf("clearing persona preference: %w", err)
		}
	}
	return nil
}

// entryFor returns the live entry for a user, creating it on first sight.
func (m *Manager) entryFor(ctx context.Context, userID string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.sessions[userID]; ok {
		return e
	}

	personaID := m.defaultPersona
	if m.prefs != nil {
		stored, err := m.prefs.GetPersonaPref(ctx, userID)
		switch {
		case err == nil:
			personaID = stored
		case errors.Is(err, store.ErrNotFound):
			// first sight, default applies
		default:
			m.logger.Warn("failed to load persona preference", "user_id", userID, "error", err)
		}
	}

	e := &entry{personaID: personaID}
	m.sessions[userID] = e
	return e
}
