package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mrovchinnikov95/ai-idea-lab-bot/leadstore"
)

type fakeSender struct {
	sent    []string
	choices [][]string
	err     error
}

func (s *fakeSender) Send(ctx context.Context, chatID int64, text string) error {
	s.sent = append(s.sent, text)
	return s.err
}

func (s *fakeSender) SendChoices(ctx context.Context, chatID int64, text string, choices []string) error {
	s.sent = append(s.sent, text)
	s.choices = append(s.choices, choices)
	return s.err
}

func (s *fakeSender) last(t *testing.T) string {
	t.Helper()
	if len(s.sent) == 0 {
		t.Fatalf("no replies sent")
	}
	return s.sent[len(s.sent)-1]
}

func (s *fakeSender) contains(substr string) bool {
	for _, msg := range s.sent {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

type fakeLeads struct {
	appended  []leadstore.Record
	appendErr error
	deleted   []string
	deleteN   int
	cleared   int
}

func (f *fakeLeads) Append(rec leadstore.Record) error {
	f.appended = append(f.appended, rec)
	return f.appendErr
}

func (f *fakeLeads) DeleteByHash(hash string) (int, error) {
	f.deleted = append(f.deleted, hash)
	return f.deleteN, nil
}

func (f *fakeLeads) Clear() error {
	f.cleared++
	return nil
}

type fakeGen struct {
	calls [][3]string
	text  string
	panic bool
}

func (g *fakeGen) Generate(ctx context.Context, budget, skills, timePerWeek string) string {
	if g.panic {
		panic("generator exploded")
	}
	g.calls = append(g.calls, [3]string{budget, skills, timePerWeek})
	if g.text == "" {
		return "idea text"
	}
	return g.text
}

type fakePro struct {
	appended  []leadstore.ProRequest
	appendErr error
	deleted   []string
	deleteN   int
}

func (f *fakePro) Append(req leadstore.ProRequest) error {
	f.appended = append(f.appended, req)
	return f.appendErr
}

func (f *fakePro) DeleteByHash(hash string) (int, error) {
	f.deleted = append(f.deleted, hash)
	return f.deleteN, nil
}

type fakeHasher struct{}

func (fakeHasher) HashChatID(chatID int64) string {
	return "hash-" + strconv.FormatInt(chatID, 10)
}

type fakeNotifier struct {
	summaries []string
}

func (n *fakeNotifier) NotifyLead(ctx context.Context, summary string) {
	n.summaries = append(n.summaries, summary)
}

type engineFixture struct {
	engine   *Engine
	sender   *fakeSender
	leads    *fakeLeads
	pro      *fakePro
	gen      *fakeGen
	notifier *fakeNotifier
	sessions SessionStore
}

func newFixture(t *testing.T, cfg Config) *engineFixture {
	t.Helper()
	if cfg.ConsentToken == "" {
		cfg.ConsentToken = "СОГЛАСЕН"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 90
	}
	f := &engineFixture{
		sender:   &fakeSender{},
		leads:    &fakeLeads{},
		pro:      &fakePro{},
		gen:      &fakeGen{},
		notifier: &fakeNotifier{},
		sessions: NewMemorySessionStore(),
	}
	eng, err := NewEngine(Options{
		Config:   cfg,
		Texts:    DefaultTexts(),
		Sessions: f.sessions,
		Leads:    f.leads,
		Pro:      f.pro,
		Gen:      f.gen,
		Hasher:   fakeHasher{},
		Notifier: f.notifier,
		Sender:   f.sender,
		Now:      func() time.Time { return time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	f.engine = eng
	return f
}

func (f *engineFixture) text(chatID int64, text string) {
	f.engine.HandleEvent(context.Background(), Event{ChatID: chatID, Kind: EventText, Text: text})
}

func (f *engineFixture) command(chatID int64, cmd string) {
	f.engine.HandleEvent(context.Background(), Event{ChatID: chatID, Kind: EventCommand, Command: cmd})
}

func (f *engineFixture) state(t *testing.T, chatID int64) State {
	t.Helper()
	sess, ok := f.sessions.Get(chatID)
	if !ok {
		t.Fatalf("no session for chat %d", chatID)
	}
	return sess.State
}

func TestStartCreatesConsentSession(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)

	if got := f.state(t, 1); got != StateAwaitingConsent {
		t.Fatalf("state after /start = %s, want %s", got, StateAwaitingConsent)
	}
	if !strings.Contains(f.sender.last(t), "СОГЛАСЕН") {
		t.Fatalf("welcome reply %q does not name the consent token", f.sender.last(t))
	}
}

func TestHappyPathEndToEnd(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)

	f.text(1, "СОГЛАСЕН")
	if got := f.state(t, 1); got != StateAwaitingBudget {
		t.Fatalf("state after consent = %s, want %s", got, StateAwaitingBudget)
	}

	f.text(1, "1000")
	if got := f.state(t, 1); got != StateAwaitingSkills {
		t.Fatalf("state after budget = %s, want %s", got, StateAwaitingSkills)
	}

	f.text(1, "copywriting, excel")
	if got := f.state(t, 1); got != StateAwaitingTime {
		t.Fatalf("state after skills = %s, want %s", got, StateAwaitingTime)
	}

	f.text(1, "5 hours/week")

	if len(f.gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want exactly 1", len(f.gen.calls))
	}
	if got := f.gen.calls[0]; got != [3]string{"1000", "copywriting, excel", "5 hours/week"} {
		t.Fatalf("generator called with %v", got)
	}
	if len(f.leads.appended) != 1 {
		t.Fatalf("appended records = %d, want exactly 1", len(f.leads.appended))
	}
	rec := f.leads.appended[0]
	if rec.ChatIDHash != "hash-1" || rec.Budget != "1000" || rec.Skills != "copywriting, excel" ||
		rec.TimePerWeek != "5 hours/week" || rec.IdeasText == "" {
		t.Fatalf("appended record = %+v", rec)
	}
	if len(f.notifier.summaries) != 1 {
		t.Fatalf("notifier calls = %d, want 1", len(f.notifier.summaries))
	}
	if !f.sender.contains("idea text") {
		t.Fatalf("no reply carries the ideas: %q", f.sender.sent)
	}
	if f.sender.last(t) != DefaultTexts().ProOffer {
		t.Fatalf("final reply = %q, want the follow-up offer", f.sender.last(t))
	}
	if len(f.sender.choices) != 1 || len(f.sender.choices[0]) != 3 {
		t.Fatalf("time prompt choices = %v, want the three presets", f.sender.choices)
	}
	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("session still present after completion")
	}
}

func TestConsentIsCaseInsensitive(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "  согласен  ")
	if got := f.state(t, 1); got != StateAwaitingBudget {
		t.Fatalf("state after lowercase consent = %s, want %s", got, StateAwaitingBudget)
	}
}

func TestWrongConsentEndsSession(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "yes")

	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("session survived consent refusal")
	}
	if len(f.leads.appended) != 0 {
		t.Fatalf("lead appended on refusal")
	}
	if f.sender.last(t) != DefaultTexts().ConsentDeclined {
		t.Fatalf("reply = %q, want decline acknowledgment", f.sender.last(t))
	}
}

func TestBudgetParsing(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		retry  bool
	}{
		{in: "1000", want: "1000"},
		{in: "0", want: "0"},
		{in: "5000₽", want: "5000"},
		{in: "$200 примерно", want: "200"},
		{in: "немного", retry: true},
		{in: "-50", retry: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			f := newFixture(t, Config{})
			f.command(1, CmdStart)
			f.text(1, "СОГЛАСЕН")
			f.text(1, tc.in)

			if tc.retry {
				if got := f.state(t, 1); got != StateAwaitingBudget {
					t.Fatalf("state after bad budget = %s, want unchanged %s", got, StateAwaitingBudget)
				}
				if f.sender.last(t) != DefaultTexts().BudgetRetry {
					t.Fatalf("reply = %q, want budget retry", f.sender.last(t))
				}
				return
			}
			sess, _ := f.sessions.Get(1)
			if sess.Budget != tc.want {
				t.Fatalf("stored budget = %q, want %q", sess.Budget, tc.want)
			}
		})
	}
}

func TestNonTextDoesNotAdvance(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")

	f.engine.HandleEvent(context.Background(), Event{ChatID: 1, Kind: EventNonText})
	if got := f.state(t, 1); got != StateAwaitingBudget {
		t.Fatalf("state after sticker = %s, want unchanged %s", got, StateAwaitingBudget)
	}
	if f.sender.last(t) != DefaultTexts().NeedText {
		t.Fatalf("reply = %q, want text re-prompt", f.sender.last(t))
	}
}

func TestTextWithoutSessionGuidesToStart(t *testing.T) {
	f := newFixture(t, Config{})
	f.text(7, "hello")
	if f.sender.last(t) != DefaultTexts().NeedStart {
		t.Fatalf("reply = %q, want /start guidance", f.sender.last(t))
	}
	if _, ok := f.sessions.Get(7); ok {
		t.Fatalf("session created for stray text")
	}
}

func TestCancelClearsAnyState(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "1000")

	f.command(1, CmdCancel)
	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("session survived /cancel")
	}
	// A fresh /start works afterwards.
	f.command(1, CmdStart)
	if got := f.state(t, 1); got != StateAwaitingConsent {
		t.Fatalf("state after restart = %s, want %s", got, StateAwaitingConsent)
	}
}

func TestMoreBeforeAnyCompletion(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdMore)
	if f.sender.last(t) != DefaultTexts().MoreUnavailable {
		t.Fatalf("reply = %q, want more-unavailable", f.sender.last(t))
	}
}

func TestMoreRegeneratesWithoutNewLead(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "1000")
	f.text(1, "excel")
	f.text(1, "5h")

	f.command(1, CmdMore)
	if len(f.gen.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2 after /more", len(f.gen.calls))
	}
	if f.gen.calls[1] != f.gen.calls[0] {
		t.Fatalf("/more reused answers %v, want %v", f.gen.calls[1], f.gen.calls[0])
	}
	if len(f.leads.appended) != 1 {
		t.Fatalf("appended records = %d, want still 1 after /more", len(f.leads.appended))
	}
}

func TestEraseReportsCombinedCount(t *testing.T) {
	f := newFixture(t, Config{})
	f.leads.deleteN = 2
	f.pro.deleteN = 1
	f.command(1, CmdErase)

	if len(f.leads.deleted) != 1 || f.leads.deleted[0] != "hash-1" {
		t.Fatalf("erase deleted lead hashes = %v, want [hash-1]", f.leads.deleted)
	}
	if len(f.pro.deleted) != 1 || f.pro.deleted[0] != "hash-1" {
		t.Fatalf("erase deleted pro hashes = %v, want [hash-1]", f.pro.deleted)
	}
	if f.sender.last(t) != fmt.Sprintf(DefaultTexts().Erased, 3) {
		t.Fatalf("reply = %q, want erased count 3 across both tables", f.sender.last(t))
	}
}

func TestAdminClear(t *testing.T) {
	f := newFixture(t, Config{AdminChatID: 99})

	f.command(1, CmdAdminClear)
	if f.leads.cleared != 0 {
		t.Fatalf("non-admin cleared the store")
	}
	if f.sender.last(t) != DefaultTexts().NeedStart {
		t.Fatalf("non-admin reply = %q, want /start guidance", f.sender.last(t))
	}

	f.command(99, CmdAdminClear)
	if f.leads.cleared != 1 {
		t.Fatalf("admin clear count = %d, want 1", f.leads.cleared)
	}
	if f.sender.last(t) != DefaultTexts().AdminCleared {
		t.Fatalf("admin reply = %q, want cleared confirmation", f.sender.last(t))
	}
}

func TestAppendFailureStillDeliversIdeas(t *testing.T) {
	f := newFixture(t, Config{})
	f.leads.appendErr = fmt.Errorf("sheet unavailable")
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "0")
	f.text(1, "excel")
	f.text(1, "5h")

	if !f.sender.contains("idea text") {
		t.Fatalf("ideas lost after append failure: %q", f.sender.sent)
	}
	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("session not cleared after append failure")
	}
}

func TestPanicLeavesStateIntact(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "1000")
	f.text(1, "excel")

	f.gen.panic = true
	f.text(1, "5h")

	if f.sender.last(t) != DefaultTexts().Apology {
		t.Fatalf("reply = %q, want apology", f.sender.last(t))
	}
	if got := f.state(t, 1); got != StateAwaitingTime {
		t.Fatalf("state after panic = %s, want unchanged %s", got, StateAwaitingTime)
	}

	// Retry succeeds once the generator behaves again.
	f.gen.panic = false
	f.text(1, "5h")
	if len(f.leads.appended) != 1 {
		t.Fatalf("appended records after retry = %d, want 1", len(f.leads.appended))
	}
}

func TestProCommandPitchesWaitingList(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdPro)
	if f.sender.last(t) != DefaultTexts().ProPitch {
		t.Fatalf("reply = %q, want the PRO pitch", f.sender.last(t))
	}
	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("/pro created a survey session")
	}
}

func TestProCommandKeepsSurveyState(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "1000")

	f.command(1, CmdPro)
	if got := f.state(t, 1); got != StateAwaitingSkills {
		t.Fatalf("state after /pro mid-survey = %s, want unchanged %s", got, StateAwaitingSkills)
	}
}

func TestEmailOutsideSurveyJoinsWaitingList(t *testing.T) {
	f := newFixture(t, Config{})
	f.text(1, "  name@example.com  ")

	if len(f.pro.appended) != 1 {
		t.Fatalf("pro signups = %d, want 1", len(f.pro.appended))
	}
	req := f.pro.appended[0]
	if req.ChatIDHash != "hash-1" || req.Email != "name@example.com" {
		t.Fatalf("signup = %+v, want hashed chat id and trimmed email", req)
	}
	if req.Timestamp.IsZero() {
		t.Fatalf("signup timestamp not set")
	}
	if f.sender.last(t) != DefaultTexts().ProThanks {
		t.Fatalf("reply = %q, want waiting-list confirmation", f.sender.last(t))
	}
	if _, ok := f.sessions.Get(1); ok {
		t.Fatalf("email signup created a survey session")
	}
}

func TestEmailDuringSurveyIsAnAnswerNotASignup(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "1000")
	f.text(1, "name@example.com") // skills answer, odd but theirs

	if len(f.pro.appended) != 0 {
		t.Fatalf("mid-survey text captured as signup: %+v", f.pro.appended)
	}
	sess, _ := f.sessions.Get(1)
	if sess.Skills != "name@example.com" {
		t.Fatalf("skills = %q, want the literal answer", sess.Skills)
	}
}

func TestProSignupAppendFailureStillThanks(t *testing.T) {
	f := newFixture(t, Config{})
	f.pro.appendErr = fmt.Errorf("sheet unavailable")
	f.text(1, "name@example.com")

	if f.sender.last(t) != DefaultTexts().ProThanks {
		t.Fatalf("reply = %q, want confirmation despite append failure", f.sender.last(t))
	}
}

func TestLooksLikeEmail(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{in: "name@example.com", want: true},
		{in: "a.b+tag@sub.example.org", want: true},
		{in: "hello", want: false},
		{in: "@example.com", want: false},
		{in: "name@example", want: false},
		{in: "name@.com", want: false},
		{in: "name@example.", want: false},
		{in: "two words@example.com", want: false},
		{in: "a@b@example.com", want: false},
		{in: "", want: false},
	}
	for _, tc := range cases {
		if got := looksLikeEmail(tc.in); got != tc.want {
			t.Fatalf("looksLikeEmail(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAnswersSetOnlyInTheirState(t *testing.T) {
	f := newFixture(t, Config{})
	f.command(1, CmdStart)
	f.text(1, "СОГЛАСЕН")
	f.text(1, "not a number") // rejected, budget stays empty
	sess, _ := f.sessions.Get(1)
	if sess.Budget != "" || sess.Skills != "" || sess.TimePerWeek != "" {
		t.Fatalf("answers set early: %+v", sess)
	}
	f.text(1, "300")
	sess, _ = f.sessions.Get(1)
	if sess.Budget != "300" || sess.Skills != "" {
		t.Fatalf("budget step touched other answers: %+v", sess)
	}
}
