// ABOUTME: Matrix bridge core for ember
// ABOUTME: Handles the Matrix connection and routes channel messages to the chat service

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/emberchat/ember/internal/chat"
	"github.com/emberchat/ember/internal/config"
	"github.com/emberchat/ember/internal/dedupe"
	"github.com/emberchat/ember/internal/reply"
)

// maxMessageLen is the outbound chunking limit.
const maxMessageLen = 2000

// typingTimeout is the duration the typing indicator shows.
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for Matrix API calls.
const networkTimeout = 10 * time.Second

// dedupeTTL and dedupeSize bound the event-id dedupe cache. Sync replays
// after a reconnect land well inside this window.
const (
	dedupeTTL  = 10 * time.Minute
	dedupeSize = 4096
)

// Bridge connects a Matrix room to the chat service.
type Bridge struct {
	cfg    *config.MatrixConfig
	matrix *mautrix.Client
	svc    *chat.Service
	seen   *dedupe.Cache
	logger *slog.Logger

	// lastActivity is when the room last saw a message, read by the watchdog
	mu           sync.Mutex
	lastActivity time.Time

	// ctx is the parent context for message processing goroutines
	ctx    context.Context
	cancel context.CancelFunc
}

// NewBridge creates a Matrix bridge for the configured room.
func NewBridge(cfg *config.MatrixConfig, svc *chat.Service, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}

	return &Bridge{
		cfg:          cfg,
		matrix:       client,
		svc:          svc,
		seen:         dedupe.New(dedupeTTL, dedupeSize),
		logger:       logger.With("component", "bridge"),
		lastActivity: time.Now(),
	}, nil
}

// Run starts the bridge and blocks until the context is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.cfg.Homeserver,
		"user_id", b.cfg.UserID,
		"room", b.cfg.RoomID,
	)

	b.ctx, b.cancel = context.WithCancel(ctx)
	defer b.cancel()
	defer b.seen.Close()

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(b.ctx)
	}()

	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		b.cancel()
		return nil
	case err := <-syncErr:
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// LastActivity reports when the room last saw a message. Plugged into the
// inactivity watchdog.
func (b *Bridge) LastActivity(ctx context.Context) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastActivity, nil
}

// SendNudge posts a watchdog nudge to the room.
func (b *Bridge) SendNudge(ctx context.Context, text string) error {
	return b.sendText(text)
}

// handleMessageEvent filters and dispatches incoming Matrix messages.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	// Ignore our own messages
	if evt.Sender == id.UserID(b.cfg.UserID) {
		return
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return
	}

	// Only the configured room is bridged
	if evt.RoomID.String() != b.cfg.RoomID {
		return
	}

	sender := evt.Sender.String()
	if !b.isUserAllowed(sender) {
		b.logger.Debug("ignoring message from non-allowed user", "sender", sender)
		return
	}

	// Reconnect syncs can replay events we already handled
	if b.seen.CheckAndMark(evt.ID.String()) {
		b.logger.Debug("dropping duplicate event", "event_id", evt.ID)
		return
	}

	b.markActivity()

	body := strings.TrimSpace(content.Body)
	b.logger.Info("received message",
		"sender", sender,
		"content", truncate(body, 50),
	)

	// Process in a goroutine so the sync loop never blocks on inference
	go b.processMessage(b.ctx, sender, body)
}

// processMessage runs one inbound message through commands or the chat
// service, and emits exactly one response (plus progression announcements).
func (b *Bridge) processMessage(ctx context.Context, sender, body string) {
	if strings.HasPrefix(body, commandPrefix) {
		b.handleCommand(ctx, sender, body)
		return
	}

	b.setTyping(true)
	defer b.setTyping(false)

	out := b.svc.HandleMessage(ctx, sender, body)

	// Announce level-ups and badges before the reply, like the events
	// happened in the room
	if out.Progress != nil {
		if out.Progress.LeveledUp {
			b.sendText(fmt.Sprintf("🎉 %s leveled up to **Level %d**!", sender, out.Progress.Level))
		}
		for _, badge := range out.Progress.NewBadges {
			b.sendText(fmt.Sprintf("🏅 %s earned the **%s** badge!", sender, badge))
		}
	}

	switch {
	case out.Delivered:
		b.sendText(out.Text)
	case out.Rejected:
		b.sendText(chat.Apology(out.Failure))
	}
	// Ignored outcomes (empty input) get no response by design
}

// isUserAllowed checks the allow-list; an empty list allows everyone.
func (b *Bridge) isUserAllowed(userID string) bool {
	if len(b.cfg.AllowedUsers) == 0 {
		return true
	}
	for _, allowed := range b.cfg.AllowedUsers {
		if allowed == userID {
			return true
		}
	}
	return false
}

func (b *Bridge) markActivity() {
	b.mu.Lock()
	b.lastActivity = time.Now()
	b.mu.Unlock()
}

// setTyping sends the typing indicator, best effort.
func (b *Bridge) setTyping(typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.matrix.UserTyping(ctx, id.RoomID(b.cfg.RoomID), typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "error", err)
	}
}

// sendText posts text to the room as a markdown-formatted message, chunked
// to the platform limit. Send failures are logged, not returned to the
// message path: the exchange already happened.
func (b *Bridge) sendText(text string) error {
	for _, chunk := range reply.Chunk(text, maxMessageLen) {
		content := &event.MessageEventContent{
			MsgType: event.MsgText,
			Body:    chunk,
		}
		if html := reply.RenderHTML(chunk); html != "" {
			content.Format = event.FormatHTML
			content.FormattedBody = html
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := b.matrix.SendMessageEvent(ctx, id.RoomID(b.cfg.RoomID), event.EventMessage, content)
		cancel()
		if err != nil {
			b.logger.Error("failed to send message", "error", err)
			return err
		}
	}
	b.markActivity()
	return nil
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
