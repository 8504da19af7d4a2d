// Package chat routes assistant messages: it classifies each message,
// answers board questions locally, and turns task requests into cards.
package chat

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/extract"
	"github.com/hpungsan/workboard/internal/llm"
	"github.com/hpungsan/workboard/internal/logger"
)

// DefaultMaxHistory is the number of exchanges (a user message and its
// reply) kept after the system prompt.
const DefaultMaxHistory = 20

// maxTranscript bounds the displayed conversation.
const maxTranscript = 200

// Board is the subset of the board store the session drives.
type Board interface {
	AddCard(ctx context.Context, input board.AddCardInput) (*card.Card, error)
	DueSoon(input board.DueSoonInput) []card.Card
	Urgent() []card.Card
}

// Options configures a Session.
type Options struct {
	Completer  llm.Completer
	Board      Board
	Clock      func() time.Time
	MaxHistory int
	Logger     *logger.Logger

	// OnIntent is called once per classified message.
	OnIntent func(Intent)
}

// Turn is one line of the displayed conversation.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Reply is the outcome of one message.
type Reply struct {
	Intent Intent      `json:"intent"`
	Text   string      `json:"text"`
	Card   *card.Card  `json:"card,omitempty"`
	Cards  []card.Card `json:"cards,omitempty"`

	// Status is set for task requests.
	Status string `json:"status,omitempty"`

	// Stale is true when a newer message or a reset superseded this one
	// while it waited on the model. Nothing was applied and Text is empty.
	Stale bool `json:"stale,omitempty"`
}

// Session owns one conversation: the model context window, the displayed
// transcript, and a generation counter that invalidates in-flight requests.
// It is safe for concurrent use.
type Session struct {
	mu         sync.Mutex
	history    llm.History
	transcript []Turn
	generation uint64

	completer  llm.Completer
	board      Board
	now        func() time.Time
	maxHistory int
	onIntent   func(Intent)
	log        *logger.Logger
}

// NewSession starts a conversation that opens with Greeting.
func NewSession(opts Options) *Session {
	s := &Session{
		completer:  opts.Completer,
		board:      opts.Board,
		now:        opts.Clock,
		maxHistory: opts.MaxHistory,
		onIntent:   opts.OnIntent,
		log:        opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.maxHistory <= 0 {
		s.maxHistory = DefaultMaxHistory
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.With("component", "chat")
	s.resetLocked()
	return s
}

// Reset clears the conversation and abandons any in-flight request.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.history = llm.NewHistory(extract.SystemPrompt(s.now()))
	s.transcript = []Turn{{Role: llm.RoleAssistant, Text: Greeting, At: s.now()}}
}

// Transcript returns a copy of the displayed conversation.
func (s *Session) Transcript() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

// Generation returns the number of messages and resets seen so far.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Send classifies message and answers it.
func (s *Session) Send(ctx context.Context, message string) Reply {
	return s.dispatch(ctx, message, Classify(message))
}

// CreateTaskFromMessage treats message as a task request regardless of wording.
func (s *Session) CreateTaskFromMessage(ctx context.Context, message string) Reply {
	return s.dispatch(ctx, message, IntentCreateTask)
}

// SendChatMessage treats message as plain conversation regardless of wording.
func (s *Session) SendChatMessage(ctx context.Context, message string) Reply {
	return s.dispatch(ctx, message, IntentChat)
}

// begin records the user turn and claims a new generation. The returned
// history has a system prompt refreshed for the current date.
func (s *Session) begin(message string) (uint64, llm.History, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	now := s.now()
	s.appendTurnLocked(llm.RoleUser, message, now)

	history := llm.NewHistory(extract.SystemPrompt(now))
	if len(s.history) > 1 {
		history = history.Append(s.history[1:]...)
	}
	return s.generation, history, now
}

func (s *Session) appendTurnLocked(role, text string, at time.Time) {
	s.transcript = append(s.transcript, Turn{Role: role, Text: text, At: at})
	if over := len(s.transcript) - maxTranscript; over > 0 {
		s.transcript = slices.Delete(s.transcript, 0, over)
	}
}

func (s *Session) dispatch(ctx context.Context, message string, intent Intent) Reply {
	if s.onIntent != nil {
		s.onIntent(intent)
	}
	gen, history, now := s.begin(message)
	log := s.log.With("intent", intent.String(), "generation", gen)
	log.Debugw("message received", "chars", len(message))

	switch intent {
	case IntentDueSoon:
		cards := s.board.DueSoon(board.DueSoonInput{})
		text := FormatCards("Here's what's due soon:", MsgNothingDueSoon, cards)
		return s.finishLocal(gen, Reply{Intent: intent, Text: text, Cards: cards})

	case IntentUrgent:
		cards := s.board.Urgent()
		text := FormatCards("Here's what needs your attention first:", MsgNothingUrgent, cards)
		return s.finishLocal(gen, Reply{Intent: intent, Text: text, Cards: cards})

	case IntentCreateTask:
		return s.createTask(ctx, gen, history, message, now, log)

	default:
		return s.chat(ctx, gen, history, message, log)
	}
}

// finishLocal records a reply computed without the model.
func (s *Session) finishLocal(gen uint64, r Reply) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return Reply{Intent: r.Intent, Stale: true}
	}
	s.appendTurnLocked(llm.RoleAssistant, r.Text, s.now())
	return r
}

func (s *Session) createTask(ctx context.Context, gen uint64, history llm.History, message string, now time.Time, log *logger.Logger) Reply {
	if s.completer == nil {
		return s.finishLocal(gen, Reply{Intent: IntentCreateTask, Status: extract.StatusFailure.String(), Text: extract.MsgRetry})
	}
	res, next := extract.Extract(ctx, s.completer, history, message, now)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		log.Infow("discarding stale task reply", "status", res.Status.String())
		return Reply{Intent: IntentCreateTask, Status: res.Status.String(), Stale: true}
	}
	s.history = next.Trim(2 * s.maxHistory)

	reply := Reply{Intent: IntentCreateTask, Status: res.Status.String(), Text: res.Message}
	if res.OK() {
		c, err := s.board.AddCard(ctx, board.AddCardInput{Card: *res.Card, Source: board.SourceChat})
		if err != nil {
			log.Warnw("extracted card rejected by board", "error", err)
			reply.Status = extract.StatusFailure.String()
			reply.Text = extract.MsgRetry
		} else {
			reply.Card = c
		}
	}
	s.appendTurnLocked(llm.RoleAssistant, reply.Text, s.now())
	log.Infow("task request handled", "status", reply.Status)
	return reply
}

func (s *Session) chat(ctx context.Context, gen uint64, history llm.History, message string, log *logger.Logger) Reply {
	if s.completer == nil {
		return s.finishLocal(gen, Reply{Intent: IntentChat, Text: MsgConnection})
	}
	history = history.Append(llm.Message{Role: llm.RoleUser, Content: message})
	text, err := s.completer.Complete(ctx, history.Messages())

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return Reply{Intent: IntentChat, Stale: true}
	}
	if err != nil {
		log.Warnw("chat completion failed", "error", err)
		s.history = history.Trim(2 * s.maxHistory)
		s.appendTurnLocked(llm.RoleAssistant, MsgConnection, s.now())
		return Reply{Intent: IntentChat, Text: MsgConnection}
	}
	s.history = history.Append(llm.Message{Role: llm.RoleAssistant, Content: text}).Trim(2 * s.maxHistory)
	s.appendTurnLocked(llm.RoleAssistant, text, s.now())
	return Reply{Intent: IntentChat, Text: text}
}
