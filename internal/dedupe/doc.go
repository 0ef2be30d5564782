// Package dedupe provides event deduplication using a time-based cache.
// The Matrix bridge marks each event id it handles; redelivered events
// (reconnect sync replays) within the window are dropped.
package dedupe
