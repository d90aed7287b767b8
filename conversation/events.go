// Package conversation drives the consent-gated three-question survey:
// consent, budget, skills, weekly time, then idea generation and lead
// persistence. One session per chat id, no persistence across restarts.
package conversation

import "strings"

// State is where a session currently waits. The DONE state of the flow
// is never stored: reaching it clears the session.
type State string

const (
	StateAwaitingConsent State = "awaiting_consent"
	StateAwaitingBudget  State = "awaiting_budget"
	StateAwaitingSkills  State = "awaiting_skills"
	StateAwaitingTime    State = "awaiting_time"
)

// EventKind tags an inbound event so routing happens on structure, not
// on string sniffing inside the state handlers.
type EventKind int

const (
	// EventText is a plain text message.
	EventText EventKind = iota
	// EventNonText is anything the transport cannot reduce to text
	// (stickers, photos, voice). Never advances the state machine.
	EventNonText
	// EventCommand is a slash command, normalized by ParseCommand.
	EventCommand
)

// Commands the engine understands.
const (
	CmdStart      = "start"
	CmdCancel     = "cancel"
	CmdMore       = "more"
	CmdPro        = "pro"
	CmdPrivacy    = "privacy"
	CmdTerms      = "terms"
	CmdErase      = "erase"
	CmdAbout      = "about"
	CmdHelp       = "help"
	CmdAdminClear = "admin_clear"
)

type Event struct {
	ChatID  int64
	Kind    EventKind
	Text    string
	Command string
}

// ParseCommand extracts a normalized command name from a message that
// starts with a slash. Bot-suffixed forms like /start@idea_lab_bot are
// accepted. Returns "" for non-command text.
func ParseCommand(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	word := text[1:]
	if i := strings.IndexAny(word, " \t\n"); i >= 0 {
		word = word[:i]
	}
	if i := strings.Index(word, "@"); i >= 0 {
		word = word[:i]
	}
	return strings.ToLower(word)
}
