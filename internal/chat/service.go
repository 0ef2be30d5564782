// ABOUTME: Session orchestrator - turns one inbound chat message into one outbound result
// ABOUTME: Coordinates the ledger, session store, persona registry, and inference client

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/emberchat/ember/internal/ollama"
	"github.com/emberchat/ember/internal/persona"
	"github.com/emberchat/ember/internal/progress"
	"github.com/emberchat/ember/internal/reply"
	"github.com/emberchat/ember/internal/session"
)

// ErrUnknownPersona is returned by SetPersona for ids not in the registry.
var ErrUnknownPersona = errors.New("unknown persona")

// FailureKind groups inference failures into the fixed user-facing classes.
type FailureKind string

const (
	// FailBackend covers rejection, timeout, and transport failure.
	FailBackend FailureKind = "backend"
	// FailEmpty means the stream or cleaning produced no text.
	FailEmpty FailureKind = "empty"
	// FailInternal covers everything else, ledger persistence included.
	FailInternal FailureKind = "internal"
)

// apologies are the only failure texts end users ever see. Internal
// diagnostics stay in the logs.
var apologies = map[FailureKind]string{
	FailBackend:  "⚠️ Sorry, I couldn't get a response from the AI. Please try again later.",
	FailEmpty:    "⚠️ Sorry, the AI returned an empty response. Please try again.",
	FailInternal: "⚠️ An unexpected error occurred while processing your message.",
}

// Apology returns the fixed user-facing message for a failure class.
func Apology(kind FailureKind) string {
	if msg, ok := apologies[kind]; ok {
		return msg
	}
	return apologies[FailInternal]
}

// Outcome is the terminal state of handling one inbound message. Exactly
// one of Delivered/Rejected/Ignored holds; Ignored is reserved for
// recognized non-content input (empty text).
type Outcome struct {
	Delivered bool
	Rejected  bool
	Ignored   bool

	Text    string      // cleaned reply when Delivered
	Failure FailureKind // set when Rejected

	// Progression events from this message, for the frontend to announce
	Progress *progress.Result
}

// Inference is what the orchestrator needs from the model backend.
type Inference interface {
	StreamChat(ctx context.Context, personaPrompt string, history []ollama.Message, userText string) (string, error)
}

// Service drives the per-message state machine: resolve persona, build
// request, stream inference, clean, commit turns, award XP.
type Service struct {
	sessions  *session.Manager
	ledger    *progress.Ledger
	personas  *persona.Registry
	inference Inference
	xpPerMsg  int
	logger    *slog.Logger
}

// New creates the orchestrator. xpPerMessage is the XP granted per inbound
// message, answered or not.
func New(sessions *session.Manager, ledger *progress.Ledger, personas *persona.Registry, inference Inference, xpPerMessage int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions:  sessions,
		ledger:    ledger,
		personas:  personas,
		inference: inference,
		xpPerMsg:  xpPerMessage,
		logger:    logger.With("component", "chat"),
	}
}

// HandleMessage processes one inbound message and returns exactly one
// outcome. History is mutated only on success: a user turn that got no
// answer is never persisted, so failures do not pollute later context.
func (s *Service) HandleMessage(ctx context.Context, userID, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Debug("ignoring empty message", "user_id", userID)
		return Outcome{Ignored: true}
	}

	requestID := uuid.New().String()[:8]
	logger := s.logger.With("request_id", requestID, "user_id", userID)

	// Every message earns XP, answered or not
	prog, err := s.ledger.AddExperience(ctx, userID, s.xpPerMsg)
	if err != nil {
		logger.Error("experience grant failed", "error", err)
		return Outcome{Rejected: true, Failure: FailInternal}
	}

	// Exclusive per-user section: read session, call inference, mutate
	// session. Other users proceed in parallel.
	s.sessions.Lock(ctx, userID)
	defer s.sessions.Unlock(userID)

	sess := s.sessions.GetOrCreate(ctx, userID)
	p, exact := s.personas.Resolve(sess.PersonaID)
	if !exact {
		logger.Warn("stored persona missing, repaired to default",
			"stored", sess.PersonaID,
			"using", p.ID)
		s.sessions.RepairPersona(ctx, userID, p.ID)
	}

	history := make([]ollama.Message, 0, len(sess.History))
	for _, turn := range sess.History {
		history = append(history, ollama.Message{Role: turn.Role, Content: turn.Content})
	}

	logger.Info("dispatching to inference",
		"persona", p.ID,
		"history_turns", len(history),
		"text_len", len(text))

	raw, err := s.inference.StreamChat(ctx, p.Prompt, history, text)
	if err != nil {
		kind := classify(err)
		logger.Error("inference failed", "error", err, "failure", kind)
		return Outcome{Rejected: true, Failure: kind, Progress: progressEvents(prog)}
	}

	cleaned := reply.Clean(raw)
	if cleaned == "" {
		logger.Warn("reply empty after cleaning", "raw_len", len(raw))
		return Outcome{Rejected: true, Failure: FailEmpty, Progress: progressEvents(prog)}
	}

	// Commit both turns only now, user first
	s.sessions.AppendTurn(ctx, userID, session.Turn{Role: session.RoleUser, Content: text})
	s.sessions.AppendTurn(ctx, userID, session.Turn{Role: session.RoleAssistant, Content: cleaned})

	logger.Info("delivered", "reply_len", len(cleaned))
	return Outcome{Delivered: true, Text: cleaned, Progress: progressEvents(prog)}
}

// SetPersona validates the persona and switches the user to it, clearing
// their history.
func (s *Service) SetPersona(ctx context.Context, userID, personaID string) error {
	if _, ok := s.personas.Get(personaID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPersona, personaID)
	}
	return s.sessions.SetPersona(ctx, userID, personaID)
}

// ClearHistory drops the user's conversation history.
func (s *Service) ClearHistory(ctx context.Context, userID string) {
	s.sessions.ClearHistory(ctx, userID)
}

// ResetSession drops the user's history and returns them to the default
// persona, clearing the stored preference.
func (s *Service) ResetSession(ctx context.Context, userID string) error {
	return s.sessions.ClearAll(ctx, userID)
}

// Personas lists the selectable personas.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}

// CurrentPersona returns the persona the user's next message will use.
func (s *Service) CurrentPersona(ctx context.Context, userID string) persona.Persona {
	s.sessions.Lock(ctx, userID)
	sess := s.sessions.GetOrCreate(ctx, userID)
	s.sessions.Unlock(userID)

	p, _ := s.personas.Resolve(sess.PersonaID)
	return p
}

// Leaderboard returns the top n progression entries.
func (s *Service) Leaderboard(n int) []progress.Entry {
	return s.ledger.Leaderboard(n)
}

// UserProgress returns the user's level, XP, and badges.
func (s *Service) UserProgress(userID string) (level, xp int, badges []string) {
	p := s.ledger.Progress(userID)
	return p.Level, p.XP, p.Badges
}

// classify maps an inference error to its user-facing failure class.
func classify(err error) FailureKind {
	switch ollama.KindOf(err) {
	case ollama.KindBackendRejected, ollama.KindTimeout, ollama.KindConnectionFailed:
		return FailBackend
	case ollama.KindEmptyResponse:
		return FailEmpty
	}
	return FailInternal
}

// progressEvents strips results with nothing to announce.
func progressEvents(r progress.Result) *progress.Result {
	if !r.LeveledUp && len(r.NewBadges) == 0 {
		return nil
	}
	return &r
}
