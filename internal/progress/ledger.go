// ABOUTME: Progression ledger tracking per-user XP, levels, and badge unlocks
// ABOUTME: Write-through persistence - every grant is persisted before it is reported

package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/emberchat/ember/internal/store"
)

// badgeMilestones maps a level to the badge unlocked on reaching it.
// A badge is granted once per user, in level order.
var badgeMilestones = map[int]string{
	2:  "Congrats, You Did Something 🥱",
	5:  "Tryhard in Training 🏋️",
	10: "Still Here? Wow. 😏",
	20: "Professional Procrastinator 🕰️",
	30: "Overachiever Alert 🚨",
	50: "Touch Grass, Maybe? 🌱",
}

// Result describes the outcome of a single experience grant.
type Result struct {
	LeveledUp bool
	Level     int
	XP        int
	NewBadges []string // in level order
}

// Entry is one leaderboard row.
type Entry struct {
	UserID string
	Level  int
	XP     int
}

// Ledger is the shared progression state for all users. A single mutex
// guards the read-modify-persist cycle; contention is bounded by the chat
// message rate.
type Ledger struct {
	mu     sync.Mutex
	users  map[string]*store.UserProgress
	store  store.Store
	logger *slog.Logger
}

// New creates a Ledger backed by the given store, loading all existing
// progression rows up front.
func New(ctx context.Context, st store.Store, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.Default()
	}

	users, err := st.LoadProgress(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading progression ledger: %w", err)
	}

	return &Ledger{
		users:  users,
		store:  st,
		logger: logger.With("component", "progress"),
	}, nil
}

// ExperienceRequiredFor returns the total XP needed to hold the given level.
// The ramp is linear through level 5 and quadratic after: faster early,
// slower later.
func ExperienceRequiredFor(level int) int {
	if level <= 5 {
		return 100 * level
	}
	return 100 * level * level
}

// AddExperience grants XP to a user, creating their record on first sight,
// and applies any level-ups and badge unlocks the new total earns. The grant
// is persisted before it is reported; if the persist fails, the in-memory
// state is rolled back and the error returned.
func (l *Ledger) AddExperience(ctx context.Context, userID string, amount int) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	user := l.getOrCreateLocked(userID)
	snapshot := user.Clone()

	user.XP += amount
	user.LastActivity = time.Now().UTC()

	res := Result{}
	for user.XP >= ExperienceRequiredFor(user.Level+1) {
		user.Level++
		res.LeveledUp = true
		if badge, ok := badgeMilestones[user.Level]; ok && !user.HasBadge(badge) {
			user.Badges = append(user.Badges, badge)
			res.NewBadges = append(res.NewBadges, badge)
		}
	}
	res.Level = user.Level
	res.XP = user.XP

	if err := l.store.SaveProgress(ctx, user); err != nil {
		l.users[userID] = snapshot
		return Result{}, fmt.Errorf("persisting progress for %s: %w", userID, err)
	}

	if res.LeveledUp {
		l.logger.Info("user leveled up",
			"user_id", userID,
			"level", res.Level,
			"xp", res.XP,
			"new_badges", len(res.NewBadges))
	}

	return res, nil
}

// Progress returns a copy of the user's progression record, creating a
// fresh one in memory if the user has never been seen. A record created
// this way is not persisted until the first grant.
func (l *Ledger) Progress(userID string) *store.UserProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.getOrCreateLocked(userID).Clone()
}

// Badges returns the user's unlocked badges in unlock order.
func (l *Ledger) Badges(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.getOrCreateLocked(userID).Badges...)
}

// Leaderboard returns the top n users ordered by level then XP, both
// descending. Ties keep a stable order.
func (l *Ledger) Leaderboard(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make([]Entry, 0, len(l.users))
	for id, u := range l.users {
		entries = append(entries, Entry{UserID: id, Level: u.Level, XP: u.XP})
	}
	// Pre-sort by user id so equal (level, xp) pairs come out in a stable,
	// deterministic order regardless of map iteration
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Level != entries[j].Level {
			return entries[i].Level > entries[j].Level
		}
		return entries[i].XP > entries[j].XP
	})

	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Reset wipes the whole ledger, in memory and in the store.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.ResetProgress(ctx); err != nil {
		return fmt.Errorf("resetting ledger: %w", err)
	}
	l.users = make(map[string]*store.UserProgress)
	return nil
}

// getOrCreateLocked returns the user's record, creating a level-1 record on
// first sight. Must be called with mu held.
func (l *Ledger) getOrCreateLocked(userID string) *store.UserProgress {
	if u, ok := l.users[userID]; ok {
		return u
	}
	u := &store.UserProgress{UserID: userID, XP: 0, Level: 1}
	l.users[userID] = u
	return u
}
