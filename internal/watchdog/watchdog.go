// ABOUTME: Inactivity watchdog - nudges a quiet channel with a time-of-day themed message
// ABOUTME: Each iteration is failure-isolated; one bad check never stops the schedule

package watchdog

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// nudges are the message pools per time of day.
var nudges = map[string][]string{
	"morning":   {"Good morning! Anyone around?", "Sun's up, time to chat!"},
	"afternoon": {"It's afternoon, say hi!", "Post-lunch silence... anyone awake?"},
	"evening":   {"Evening vibes, let's talk!", "Who's here for some night chats?"},
	"night":     {"Late night check-in...", "Night owls, say something!"},
}

// LastActivityFunc reports when the channel last saw a message. A zero time
// means no messages at all.
type LastActivityFunc func(ctx context.Context) (time.Time, error)

// SendFunc emits a text message to the channel.
type SendFunc func(ctx context.Context, text string) error

// Watchdog periodically checks channel activity and sends a nudge when the
// channel has been idle past the threshold. It shares no mutable state with
// the per-message handlers; it only reads activity and sends.
type Watchdog struct {
	interval  time.Duration
	threshold time.Duration
	last      LastActivityFunc
	send      SendFunc
	logger    *slog.Logger

	now func() time.Time // injectable for tests
}

// New creates a watchdog that checks every interval and nudges after
// threshold of silence.
func New(interval, threshold time.Duration, last LastActivityFunc, send SendFunc, logger *slog.Logger) *Watchdog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watchdog{
		interval:  interval,
		threshold: threshold,
		last:      last,
		send:      send,
		logger:    logger.With("component", "watchdog"),
		now:       time.Now,
	}
}

// Run blocks until the context is cancelled, checking once immediately and
// then on every tick. Iteration errors are logged and swallowed.
func (w *Watchdog) Run(ctx context.Context) {
	w.logger.Info("watchdog started",
		"interval", w.interval,
		"threshold", w.threshold)

	if err := w.CheckOnce(ctx); err != nil {
		w.logger.Error("inactivity check failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopped")
			return
		case <-ticker.C:
			if err := w.CheckOnce(ctx); err != nil {
				w.logger.Error("inactivity check failed", "error", err)
			}
		}
	}
}

// CheckOnce performs a single inactivity check, sending a nudge if the
// channel has been quiet past the threshold or has never seen a message.
func (w *Watchdog) CheckOnce(ctx context.Context) error {
	lastAt, err := w.last(ctx)
	if err != nil {
		return err
	}

	idle := w.now().Sub(lastAt)
	if !lastAt.IsZero() && idle < w.threshold {
		w.logger.Debug("channel active, no nudge", "idle", idle)
		return nil
	}

	msg := ThemedMessage(w.now().Hour())
	if err := w.send(ctx, msg); err != nil {
		return err
	}
	w.logger.Info("sent inactivity nudge", "idle", idle, "message", msg)
	return nil
}

// ThemedMessage picks a nudge appropriate for the local hour.
func ThemedMessage(hour int) string {
	var pool []string
	switch {
	case hour >= 5 && hour < 12:
		pool = nudges["morning"]
	case hour >= 12 && hour < 17:
		pool = nudges["afternoon"]
	case hour >= 17 && hour < 22:
		pool = nudges["evening"]
	default:
		pool = nudges["night"]
	}
	return pool[rand.Intn(len(pool))]
}
