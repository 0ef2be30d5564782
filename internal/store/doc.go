// Package store provides persistent storage for ember using SQLite.
//
// # Architecture
//
// The Store interface covers two concerns:
//
//   - The progression ledger: per-user XP, level, badges, last activity
//   - Persona preferences: the persona a user selected, durable across restarts
//
// SQLiteStore implements the interface on modernc.org/sqlite with automatic
// schema creation and WAL mode. MockStore is an in-memory implementation for
// tests.
//
// # Data Model
//
//   - UserProgress: one ledger row per user. XP is monotonically
//     non-decreasing, level is derived from XP, badges are append-only and
//     unique. Badges are stored as a JSON array in a single column; the
//     ledger is a flat keyed table, not a relational model.
//
// Conversation history is deliberately NOT stored here: sessions are
// in-memory only (see internal/session). Only the persona choice survives a
// restart.
package store
