package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mrovchinnikov95/ai-idea-lab-bot/leadstore"
)

// Sender delivers a reply to a chat. Implemented by the Telegram
// client; failures are the sender's to contain or report, the engine
// only logs them.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
	// SendChoices shows the text with a one-time keyboard of suggested
	// answers; transports without keyboards may ignore the choices.
	SendChoices(ctx context.Context, chatID int64, text string, choices []string) error
}

// Generator produces idea text from the three answers. Implementations
// must never return empty output (fallback on failure).
type Generator interface {
	Generate(ctx context.Context, budget, skills, timePerWeek string) string
}

// LeadSink is the slice of the lead store the engine needs. The engine
// never touches rows directly.
type LeadSink interface {
	Append(rec leadstore.Record) error
	DeleteByHash(hash string) (int, error)
	Clear() error
}

// ProSink is the slice of the PRO waiting list the engine needs.
type ProSink interface {
	Append(req leadstore.ProRequest) error
	DeleteByHash(hash string) (int, error)
}

// Hasher derives the stored pseudonym for a chat id.
type Hasher interface {
	HashChatID(chatID int64) string
}

// Notifier is the best-effort operator side channel.
type Notifier interface {
	NotifyLead(ctx context.Context, summary string)
}

type Config struct {
	// ConsentToken is the exact word (compared case-insensitively
	// after trimming) that moves a session past the consent gate.
	ConsentToken string
	// AdminChatID, when non-zero, is the only chat allowed to run
	// /admin_clear.
	AdminChatID int64
	// RetentionDays is quoted in the privacy text.
	RetentionDays int
}

// Engine routes inbound events through the per-session state machine.
// It is safe for concurrent use across different chats; the transport
// must serialize events within one chat.
type Engine struct {
	cfg      Config
	texts    Texts
	sessions SessionStore
	leads    LeadSink
	pro      ProSink
	gen      Generator
	hasher   Hasher
	notifier Notifier
	sender   Sender
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	lastDone map[int64]doneAnswers
}

type doneAnswers struct {
	Budget      string
	Skills      string
	TimePerWeek string
}

type Options struct {
	Config   Config
	Texts    Texts
	Sessions SessionStore
	Leads    LeadSink
	Pro      ProSink
	Gen      Generator
	Hasher   Hasher
	Notifier Notifier
	Sender   Sender
	Logger   *slog.Logger
	Now      func() time.Time
}

func NewEngine(opts Options) (*Engine, error) {
	if strings.TrimSpace(opts.Config.ConsentToken) == "" {
		return nil, fmt.Errorf("conversation: empty consent token")
	}
	if opts.Sessions == nil || opts.Leads == nil || opts.Pro == nil || opts.Gen == nil || opts.Hasher == nil || opts.Sender == nil {
		return nil, fmt.Errorf("conversation: missing engine collaborator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		cfg:      opts.Config,
		texts:    opts.Texts,
		sessions: opts.Sessions,
		leads:    opts.Leads,
		pro:      opts.Pro,
		gen:      opts.Gen,
		hasher:   opts.Hasher,
		notifier: opts.Notifier,
		sender:   opts.Sender,
		logger:   logger,
		now:      now,
	}, nil
}

// HandleEvent processes one inbound event to completion, including the
// generation pipeline when the last answer lands. A panic anywhere in
// the handler is contained: the session stays as it was and the user
// gets a generic apology, so the same step can be retried.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("conversation_handler_panic", "chat_id", ev.ChatID, "panic", fmt.Sprint(r))
			e.reply(ctx, ev.ChatID, e.texts.Apology)
		}
	}()

	switch ev.Kind {
	case EventCommand:
		e.handleCommand(ctx, ev)
	case EventNonText:
		e.handleNonText(ctx, ev)
	default:
		e.handleText(ctx, ev)
	}
}

func (e *Engine) handleCommand(ctx context.Context, ev Event) {
	switch ev.Command {
	case CmdStart:
		e.sessions.Put(&Session{ChatID: ev.ChatID, State: StateAwaitingConsent})
		e.reply(ctx, ev.ChatID, fmt.Sprintf(e.texts.Welcome, e.cfg.ConsentToken))
	case CmdCancel:
		e.sessions.Delete(ev.ChatID)
		e.reply(ctx, ev.ChatID, e.texts.Cancelled)
	case CmdMore:
		e.handleMore(ctx, ev.ChatID)
	case CmdPro:
		e.reply(ctx, ev.ChatID, e.texts.ProPitch)
	case CmdPrivacy:
		e.reply(ctx, ev.ChatID, fmt.Sprintf(e.texts.Privacy, e.cfg.RetentionDays))
	case CmdTerms:
		e.reply(ctx, ev.ChatID, e.texts.Terms)
	case CmdAbout:
		e.reply(ctx, ev.ChatID, e.texts.About)
	case CmdHelp:
		e.reply(ctx, ev.ChatID, e.texts.Help)
	case CmdErase:
		e.handleErase(ctx, ev.ChatID)
	case CmdAdminClear:
		e.handleAdminClear(ctx, ev.ChatID)
	default:
		e.reply(ctx, ev.ChatID, e.texts.NeedStart)
	}
}

func (e *Engine) handleNonText(ctx context.Context, ev Event) {
	if _, ok := e.sessions.Get(ev.ChatID); !ok {
		e.reply(ctx, ev.ChatID, e.texts.NeedStart)
		return
	}
	// State stays put: non-text input never advances the survey.
	e.reply(ctx, ev.ChatID, e.texts.NeedText)
}

func (e *Engine) handleText(ctx context.Context, ev Event) {
	text := strings.TrimSpace(ev.Text)
	sess, ok := e.sessions.Get(ev.ChatID)
	if !ok {
		// Outside a survey an email-looking message is a PRO waiting
		// list signup; anything else gets /start guidance.
		if looksLikeEmail(text) {
			e.handleProSignup(ctx, ev.ChatID, text)
			return
		}
		e.reply(ctx, ev.ChatID, e.texts.NeedStart)
		return
	}
	if text == "" {
		e.reply(ctx, ev.ChatID, e.texts.NeedText)
		return
	}

	switch sess.State {
	case StateAwaitingConsent:
		if strings.EqualFold(text, strings.TrimSpace(e.cfg.ConsentToken)) {
			sess.State = StateAwaitingBudget
			e.sessions.Put(sess)
			e.reply(ctx, ev.ChatID, e.texts.BudgetPrompt)
			return
		}
		// Refusal ends the session; the user can /start again.
		e.sessions.Delete(ev.ChatID)
		e.reply(ctx, ev.ChatID, e.texts.ConsentDeclined)
	case StateAwaitingBudget:
		budget, ok := parseBudget(text)
		if !ok {
			e.reply(ctx, ev.ChatID, e.texts.BudgetRetry)
			return
		}
		sess.Budget = budget
		sess.State = StateAwaitingSkills
		e.sessions.Put(sess)
		e.reply(ctx, ev.ChatID, e.texts.SkillsPrompt)
	case StateAwaitingSkills:
		sess.Skills = text
		sess.State = StateAwaitingTime
		e.sessions.Put(sess)
		e.replyChoices(ctx, ev.ChatID, e.texts.TimePrompt, e.texts.TimeChoices)
	case StateAwaitingTime:
		sess.TimePerWeek = text
		e.complete(ctx, sess)
	default:
		e.logger.Error("conversation_unknown_state", "chat_id", ev.ChatID, "state", string(sess.State))
		e.sessions.Delete(ev.ChatID)
		e.reply(ctx, ev.ChatID, e.texts.NeedStart)
	}
}

// complete runs the terminal pipeline: generate ideas, persist the
// lead, notify the operator, reply, clear the session. Store and
// notifier failures are logged and swallowed; the user still gets the
// ideas.
func (e *Engine) complete(ctx context.Context, sess *Session) {
	e.reply(ctx, sess.ChatID, e.texts.Generating)

	ideas := e.gen.Generate(ctx, sess.Budget, sess.Skills, sess.TimePerWeek)
	hash := e.hasher.HashChatID(sess.ChatID)

	rec := leadstore.Record{
		Timestamp:   e.now().UTC(),
		ChatIDHash:  hash,
		Budget:      sess.Budget,
		Skills:      sess.Skills,
		TimePerWeek: sess.TimePerWeek,
		IdeasText:   ideas,
	}
	if err := e.leads.Append(rec); err != nil {
		e.logger.Warn("lead_append_error", "chat_id_hash", shortHash(hash), "error", err.Error())
	}

	if e.notifier != nil {
		summary := fmt.Sprintf("Новый лид %s\n💰 %s | 🧠 %s | ⏱ %s",
			shortHash(hash), sess.Budget, sess.Skills, sess.TimePerWeek)
		e.notifier.NotifyLead(ctx, summary)
	}

	e.reply(ctx, sess.ChatID, e.texts.ResultPrefix+ideas)
	e.reply(ctx, sess.ChatID, e.texts.ProOffer)

	e.mu.Lock()
	if e.lastDone == nil {
		e.lastDone = make(map[int64]doneAnswers)
	}
	e.lastDone[sess.ChatID] = doneAnswers{
		Budget:      sess.Budget,
		Skills:      sess.Skills,
		TimePerWeek: sess.TimePerWeek,
	}
	e.mu.Unlock()

	e.sessions.Delete(sess.ChatID)
	e.logger.Info("conversation_done", "chat_id_hash", shortHash(hash))
}

// handleMore regenerates ideas from the chat's most recent completed
// answers. It does not append another lead row: the answers are
// already on file.
func (e *Engine) handleMore(ctx context.Context, chatID int64) {
	e.mu.Lock()
	prev, ok := e.lastDone[chatID]
	e.mu.Unlock()
	if !ok {
		e.reply(ctx, chatID, e.texts.MoreUnavailable)
		return
	}
	e.reply(ctx, chatID, e.texts.Generating)
	ideas := e.gen.Generate(ctx, prev.Budget, prev.Skills, prev.TimePerWeek)
	e.reply(ctx, chatID, e.texts.ResultPrefix+ideas)
}

// handleProSignup appends one waiting-list row. Append failure is
// contained like the lead append: logged, the user still gets thanked.
func (e *Engine) handleProSignup(ctx context.Context, chatID int64, email string) {
	hash := e.hasher.HashChatID(chatID)
	req := leadstore.ProRequest{
		Timestamp:  e.now().UTC(),
		ChatIDHash: hash,
		Email:      email,
	}
	if err := e.pro.Append(req); err != nil {
		e.logger.Warn("pro_append_error", "chat_id_hash", shortHash(hash), "error", err.Error())
	} else {
		e.logger.Info("pro_signup", "chat_id_hash", shortHash(hash))
	}
	e.reply(ctx, chatID, e.texts.ProThanks)
}

// handleErase wipes the user's rows from both tables, leads and the
// PRO waiting list, and reports the combined count.
func (e *Engine) handleErase(ctx context.Context, chatID int64) {
	hash := e.hasher.HashChatID(chatID)
	n, err := e.leads.DeleteByHash(hash)
	if err != nil {
		e.logger.Warn("lead_erase_error", "error", err.Error())
		e.reply(ctx, chatID, e.texts.Apology)
		return
	}
	m, err := e.pro.DeleteByHash(hash)
	if err != nil {
		e.logger.Warn("pro_erase_error", "error", err.Error())
		e.reply(ctx, chatID, e.texts.Apology)
		return
	}
	e.reply(ctx, chatID, fmt.Sprintf(e.texts.Erased, n+m))
}

func (e *Engine) handleAdminClear(ctx context.Context, chatID int64) {
	if e.cfg.AdminChatID == 0 || chatID != e.cfg.AdminChatID {
		// Not advertised to regular users.
		e.reply(ctx, chatID, e.texts.NeedStart)
		return
	}
	if err := e.leads.Clear(); err != nil {
		e.logger.Warn("lead_clear_error", "error", err.Error())
		e.reply(ctx, chatID, e.texts.Apology)
		return
	}
	e.reply(ctx, chatID, e.texts.AdminCleared)
}

func (e *Engine) reply(ctx context.Context, chatID int64, text string) {
	if err := e.sender.Send(ctx, chatID, text); err != nil {
		e.logger.Warn("conversation_send_error", "chat_id", chatID, "error", err.Error())
	}
}

func (e *Engine) replyChoices(ctx context.Context, chatID int64, text string, choices []string) {
	if err := e.sender.SendChoices(ctx, chatID, text, choices); err != nil {
		e.logger.Warn("conversation_send_error", "chat_id", chatID, "error", err.Error())
	}
}

// looksLikeEmail applies the loose address sniff used for waiting-list
// capture: one token containing "@" with a dot after it. Real
// validation happens when the mail is actually sent.
func looksLikeEmail(text string) bool {
	if text == "" || len(text) > 254 || strings.ContainsAny(text, " \t\n") {
		return false
	}
	at := strings.Index(text, "@")
	if at <= 0 || at != strings.LastIndex(text, "@") {
		return false
	}
	domain := text[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}

// parseBudget extracts the leading integer from free text, tolerating
// currency marks the way users actually type them.
func parseBudget(text string) (string, bool) {
	cleaned := strings.NewReplacer("$", " ", "₽", " ", "руб", " ", ",", " ").Replace(text)
	fields := strings.Fields(cleaned)
	if len(fields) == 0 {
		return "", false
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return "", false
	}
	return strconv.Itoa(n), true
}

func shortHash(hash string) string {
	if len(hash) > 8 {
		return hash[:8]
	}
	return hash
}
