package chat

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/extract"
	"github.com/hpungsan/workboard/internal/llm"
)

// monday is Monday, October 19, 2026.
var monday = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return monday }

// historyOf returns a copy of the session's model context window.
func historyOf(s *Session) llm.History {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// scriptedCompleter answers with queued replies in order.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   [][]llm.Message
}

func (c *scriptedCompleter) Complete(_ context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, append([]llm.Message(nil), messages...))
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", fmt.Errorf("no scripted reply")
	}
	r := c.replies[0]
	c.replies = c.replies[1:]
	return r, nil
}

// blockingCompleter waits for release before answering.
type blockingCompleter struct {
	reply   string
	started chan struct{}
	release chan struct{}
}

func (c *blockingCompleter) Complete(ctx context.Context, _ []llm.Message) (string, error) {
	close(c.started)
	select {
	case <-c.release:
		return c.reply, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newBoard(t *testing.T) *board.Store {
	t.Helper()
	s := board.New(context.Background(), board.Options{Clock: clock, HighlightDelay: time.Hour})
	t.Cleanup(s.Close)
	return s
}

func newSession(c llm.Completer, b Board) *Session {
	return NewSession(Options{Completer: c, Board: b, Clock: clock})
}

func seed(t *testing.T, b *board.Store, title, subject string, days int) {
	t.Helper()
	_, err := b.AddCard(context.Background(), board.AddCardInput{Card: card.Input{
		Title: title, Subject: subject, Type: card.TypeHomework, DueDate: monday.AddDate(0, 0, days),
	}})
	require.NoError(t, err)
}

func TestNewSession_StartsWithGreeting(t *testing.T) {
	s := newSession(&scriptedCompleter{}, newBoard(t))

	tr := s.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, llm.RoleAssistant, tr[0].Role)
	assert.Equal(t, Greeting, tr[0].Text)

	h := historyOf(s)
	require.Len(t, h, 1)
	assert.Equal(t, llm.RoleSystem, h[0].Role)
}

func TestSend_CreatesCardFromScenario(t *testing.T) {
	b := newBoard(t)
	fc := &scriptedCompleter{replies: []string{`{"Title": "Biology Lab Report", "Column": "AP Biology", "Due Date": "Friday", "Type": "Lab Report"}`}}
	s := newSession(fc, b)

	r := s.Send(context.Background(), "Biology lab report due Friday")

	assert.Equal(t, IntentCreateTask, r.Intent)
	assert.False(t, r.Stale)
	assert.Equal(t, "success", r.Status)
	require.NotNil(t, r.Card)
	assert.Equal(t, card.TypeLabReport, r.Card.Type)
	assert.Equal(t, card.SubjectBiology, r.Card.Subject)
	assert.Equal(t, time.Friday, r.Card.DueDate.Weekday())
	assert.Equal(t, `Perfect! I've created "Biology Lab Report" for AP Biology, due Friday.`, r.Text)

	snap := b.Snapshot()
	assert.Equal(t, card.SubjectBiology, snap.Order[0])
	require.Len(t, snap.Column(card.SubjectBiology), 1)
	assert.True(t, snap.Column(card.SubjectBiology)[0].IsNewCard)

	// The request went out with the task prefix and today's date in the prompt.
	require.Len(t, fc.calls, 1)
	assert.Contains(t, fc.calls[0][0].Content, "Monday, October 19, 2026")
	assert.Equal(t, extract.TaskPrefix+"Biology lab report due Friday", fc.calls[0][1].Content)

	// History gained the request and reply; transcript gained both turns.
	assert.Len(t, historyOf(s), 3)
	tr := s.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, "Biology lab report due Friday", tr[1].Text)
	assert.Equal(t, r.Text, tr[2].Text)
}

func TestSend_NeedsMoreInfoAddsNothing(t *testing.T) {
	b := newBoard(t)
	fc := &scriptedCompleter{replies: []string{`{"needsMoreInfo": true, "message": "Which subject is the quiz for?"}`}}
	s := newSession(fc, b)

	r := s.Send(context.Background(), "add a quiz")

	assert.Equal(t, "needs_more_info", r.Status)
	assert.Equal(t, "Which subject is the quiz for?", r.Text)
	assert.Nil(t, r.Card)
	assert.Equal(t, 0, b.Snapshot().Count())
}

func TestSend_ExtractionFailureIsAReply(t *testing.T) {
	fc := &scriptedCompleter{err: fmt.Errorf("boom")}
	s := newSession(fc, newBoard(t))

	r := s.Send(context.Background(), "add a quiz for math friday")

	assert.Equal(t, "failure", r.Status)
	assert.Equal(t, extract.MsgRetry, r.Text)
}

func TestSend_DueSoon(t *testing.T) {
	b := newBoard(t)
	seed(t, b, "Worksheet", card.SubjectCoreMath, 2)
	seed(t, b, "Essay", card.SubjectAmericanLit, 10)
	fc := &scriptedCompleter{}
	s := newSession(fc, b)

	r := s.Send(context.Background(), "What's due this week?")

	assert.Equal(t, IntentDueSoon, r.Intent)
	assert.Equal(t, "Here's what's due soon:\n\n- Worksheet (Core Math) — due Wed, Oct 21", r.Text)
	require.Len(t, r.Cards, 1)
	assert.Empty(t, fc.calls, "due-soon answers locally")
}

func TestSend_DueSoonEmpty(t *testing.T) {
	s := newSession(&scriptedCompleter{}, newBoard(t))

	r := s.Send(context.Background(), "anything due this week")
	assert.Equal(t, MsgNothingDueSoon, r.Text)
}

func TestSend_Urgent(t *testing.T) {
	b := newBoard(t)
	seed(t, b, "Reading", card.SubjectAmericanLit, 1)
	seed(t, b, "Project", card.SubjectBiology, 5)
	s := newSession(&scriptedCompleter{}, b)

	r := s.Send(context.Background(), "What should I focus on first?")

	assert.Equal(t, IntentUrgent, r.Intent)
	assert.Contains(t, r.Text, "- Reading (AP American Literature) — due Tue, Oct 20")
	assert.NotContains(t, r.Text, "Project")

	empty := newSession(&scriptedCompleter{}, newBoard(t)).Send(context.Background(), "anything urgent?")
	assert.Equal(t, MsgNothingUrgent, empty.Text)
}

func TestSend_PlainChat(t *testing.T) {
	fc := &scriptedCompleter{replies: []string{"Try spaced repetition!", "You're welcome."}}
	s := newSession(fc, newBoard(t))

	r := s.Send(context.Background(), "How do I study better?")
	assert.Equal(t, IntentChat, r.Intent)
	assert.Equal(t, "Try spaced repetition!", r.Text)

	s.Send(context.Background(), "thanks")
	require.Len(t, fc.calls, 2)
	// Second call carries the first exchange.
	second := fc.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, "How do I study better?", second[1].Content)
	assert.Equal(t, "Try spaced repetition!", second[2].Content)
	assert.Equal(t, "thanks", second[3].Content)
}

func TestSend_PlainChatFailure(t *testing.T) {
	s := newSession(&scriptedCompleter{err: fmt.Errorf("dial tcp: refused")}, newBoard(t))

	r := s.SendChatMessage(context.Background(), "hi")
	assert.Equal(t, MsgConnection, r.Text)
}

func TestSend_NoCompleter(t *testing.T) {
	s := NewSession(Options{Board: newBoard(t), Clock: clock})

	assert.Equal(t, MsgConnection, s.SendChatMessage(context.Background(), "hi").Text)
	assert.Equal(t, extract.MsgRetry, s.CreateTaskFromMessage(context.Background(), "quiz").Text)
	// Local intents still work.
	assert.Equal(t, MsgNothingUrgent, s.Send(context.Background(), "anything urgent?").Text)
}

func TestForcedIntents(t *testing.T) {
	fc := &scriptedCompleter{replies: []string{"sure", `{"needsMoreInfo": true, "message": "When is it due?"}`}}
	var seen []Intent
	s := NewSession(Options{Completer: fc, Board: newBoard(t), Clock: clock, OnIntent: func(i Intent) { seen = append(seen, i) }})

	// Would classify as CreateTask, forced to Chat.
	r := s.SendChatMessage(context.Background(), "add some motivation please")
	assert.Equal(t, IntentChat, r.Intent)
	assert.Equal(t, "sure", r.Text)

	// Would classify as Chat, forced to CreateTask.
	r = s.CreateTaskFromMessage(context.Background(), "gatsby chapter notes")
	assert.Equal(t, IntentCreateTask, r.Intent)
	assert.Equal(t, "When is it due?", r.Text)

	assert.Equal(t, []Intent{IntentChat, IntentCreateTask}, seen)
}

func TestSend_StaleResponseDiscarded(t *testing.T) {
	b := newBoard(t)
	bc := &blockingCompleter{
		reply:   `{"Title": "Cell Quiz", "Column": "AP Biology", "Due Date": "tomorrow", "Type": "Quiz"}`,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	s := newSession(bc, b)
	historyBefore := historyOf(s)

	done := make(chan Reply)
	go func() { done <- s.Send(context.Background(), "add a bio quiz tomorrow") }()

	<-bc.started
	newer := s.Send(context.Background(), "what's due this week?")
	assert.False(t, newer.Stale)
	close(bc.release)

	old := <-done
	assert.True(t, old.Stale)
	assert.Empty(t, old.Text)
	assert.Nil(t, old.Card)
	assert.Equal(t, 0, b.Snapshot().Count(), "stale reply must not add a card")
	assert.Equal(t, historyBefore, historyOf(s), "stale reply must not touch history")
}

func TestReset_InvalidatesInFlight(t *testing.T) {
	bc := &blockingCompleter{reply: "hello", started: make(chan struct{}), release: make(chan struct{})}
	s := newSession(bc, newBoard(t))

	done := make(chan Reply)
	go func() { done <- s.SendChatMessage(context.Background(), "hi") }()
	<-bc.started
	s.Reset()
	close(bc.release)

	r := <-done
	assert.True(t, r.Stale)
	tr := s.Transcript()
	require.Len(t, tr, 1)
	assert.Equal(t, Greeting, tr[0].Text)
}

func TestHistoryIsCapped(t *testing.T) {
	replies := make([]string, 30)
	for i := range replies {
		replies[i] = fmt.Sprintf("reply %d", i)
	}
	fc := &scriptedCompleter{replies: replies}
	s := NewSession(Options{Completer: fc, Board: newBoard(t), Clock: clock, MaxHistory: 3})

	for i := 0; i < 10; i++ {
		s.SendChatMessage(context.Background(), fmt.Sprintf("msg %d", i))
	}

	// Three exchanges survive: msg 7..9 with their replies.
	h := historyOf(s)
	require.Len(t, h, 7)
	assert.Equal(t, llm.RoleSystem, h[0].Role)
	assert.Equal(t, "msg 7", h[1].Content)
	assert.Equal(t, "reply 9", h[len(h)-1].Content)
}

func TestFormatCards(t *testing.T) {
	cards := []card.Card{
		{Title: "A", Subject: card.SubjectCoreMath, DueDate: monday},
		{Title: "B", Subject: card.SubjectBiology, DueDate: monday.AddDate(0, 0, 1)},
	}
	got := FormatCards("Heading:", "none", cards)
	lines := strings.Split(got, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Heading:", lines[0])
	assert.Equal(t, "- A (Core Math) — due Mon, Oct 19", lines[2])
	assert.Equal(t, "- B (AP Biology) — due Tue, Oct 20", lines[3])

	assert.Equal(t, "none", FormatCards("Heading:", "none", nil))
}
