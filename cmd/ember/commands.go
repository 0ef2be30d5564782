// ABOUTME: Chat command handling for the Matrix bridge
// ABOUTME: Implements the ! commands: personas, persona, clear, level, badges, leaderboard

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/emberchat/ember/internal/chat"
	"github.com/emberchat/ember/internal/progress"
)

// commandPrefix marks a message as a command instead of chat input.
const commandPrefix = "!"

const helpText = `**ember commands**
- ` + "`!persona <id>`" + ` — switch persona (clears your history)
- ` + "`!personas`" + ` — list available personas
- ` + "`!clear`" + ` — clear your conversation history
- ` + "`!reset`" + ` — clear history and return to the default persona
- ` + "`!level`" + ` — show your level and XP
- ` + "`!badges`" + ` — show your badges
- ` + "`!leaderboard`" + ` — top users by level
- ` + "`!help`" + ` — this message`

// handleCommand dispatches one "!" message. Unknown commands get the help
// text rather than silence.
func (b *Bridge) handleCommand(ctx context.Context, sender, body string) {
	fields := strings.Fields(body)
	cmd := strings.ToLower(strings.TrimPrefix(fields[0], commandPrefix))
	args := fields[1:]

	b.logger.Info("handling command", "sender", sender, "command", cmd)

	switch cmd {
	case "help":
		b.sendText(helpText)

	case "clear":
		b.svc.ClearHistory(ctx, sender)
		b.sendText("🧹 Conversation history cleared.")

	case "reset":
		if err := b.svc.ResetSession(ctx, sender); err != nil {
			b.logger.Error("session reset failed", "sender", sender, "error", err)
			b.sendText(chat.Apology(chat.FailInternal))
			return
		}
		b.sendText("🔄 Session reset: history cleared, persona back to default.")

	case "personas":
		b.sendText(b.renderPersonas(ctx, sender))

	case "persona":
		if len(args) != 1 {
			b.sendText("Usage: `!persona <id>` — see `!personas` for the list.")
			return
		}
		b.setPersona(ctx, sender, args[0])

	case "level":
		level, xp, _ := b.svc.UserProgress(sender)
		next := progress.ExperienceRequiredFor(level + 1)
		b.sendText(fmt.Sprintf("📊 %s is **Level %d** with **%d XP** (%d XP to Level %d).",
			sender, level, xp, next-xp, level+1))

	case "badges":
		_, _, badges := b.svc.UserProgress(sender)
		if len(badges) == 0 {
			b.sendText("🏅 No badges yet. Keep chatting!")
			return
		}
		b.sendText("🏅 Badges: " + strings.Join(badges, ", "))

	case "leaderboard":
		b.sendText(renderLeaderboard(b.svc.Leaderboard(10)))

	default:
		b.sendText(fmt.Sprintf("Unknown command `%s%s`.\n\n%s", commandPrefix, cmd, helpText))
	}
}

// setPersona switches the sender's persona and confirms, or explains what
// went wrong.
func (b *Bridge) setPersona(ctx context.Context, sender, personaID string) {
	err := b.svc.SetPersona(ctx, sender, personaID)
	switch {
	case err == nil:
		b.sendText(fmt.Sprintf("🎭 Persona set to **%s**. History cleared.", personaID))
	case errors.Is(err, chat.ErrUnknownPersona):
		b.sendText(fmt.Sprintf("Unknown persona `%s` — see `!personas` for the list.", personaID))
	default:
		b.logger.Error("persona switch failed", "sender", sender, "persona", personaID, "error", err)
		b.sendText(chat.Apology(chat.FailInternal))
	}
}

// renderPersonas builds the persona listing with the sender's current pick
// marked.
func (b *Bridge) renderPersonas(ctx context.Context, sender string) string {
	current := b.svc.CurrentPersona(ctx, sender)

	var sb strings.Builder
	sb.WriteString("**Available personas**\n")
	for _, p := range b.svc.Personas() {
		marker := ""
		if p.ID == current.ID {
			marker = " ← current"
		}
		if p.Description != "" {
			fmt.Fprintf(&sb, "- `%s` — %s%s\n", p.ID, p.Description, marker)
		} else {
			fmt.Fprintf(&sb, "- `%s`%s\n", p.ID, marker)
		}
	}
	sb.WriteString("\nSwitch with `!persona <id>`.")
	return sb.String()
}

// renderLeaderboard formats the top entries as a markdown list.
func renderLeaderboard(entries []progress.Entry) string {
	if len(entries) == 0 {
		return "🏆 The leaderboard is empty. Someone say something!"
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 **Leaderboard**\n")
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s — Level %d (%d XP)\n", rank, e.UserID, e.Level, e.XP)
	}
	return sb.String()
}
