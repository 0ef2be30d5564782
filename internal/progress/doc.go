// Package progress implements the progression ledger: XP grants, level-ups,
// badge milestones, and the leaderboard.
//
// Levels are derived from total XP. The XP required to hold a level is
// 100*level through level 5 and 100*level² beyond, so early levels come
// quickly and later ones stretch out. A single large grant can cross several
// thresholds in one call; badge unlocks are reported in level order.
//
// Every successful grant is written through to the store before the result
// is returned. A failed persist rolls the in-memory record back, so callers
// never see state the store does not hold.
package progress
