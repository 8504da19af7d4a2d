// Package extract turns a free-text chat message into a structured card by
// asking the chat-completion model for a strict JSON description.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/dates"
	"github.com/hpungsan/workboard/internal/llm"
)

// Status classifies an extraction result.
type Status int

const (
	StatusFailure Status = iota
	StatusSuccess
	StatusNeedsMoreInfo
)

// String returns the status name used in logs and API payloads.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNeedsMoreInfo:
		return "needs_more_info"
	default:
		return "failure"
	}
}

// Reply texts shown to the user.
const (
	MsgNotUnderstood = "I had trouble understanding your request. Please try again."
	MsgNeedMoreInfo  = "I need more information to create this task. Please provide the title, subject, due date, and type."
	MsgRetry         = "I had trouble creating that task. Could you try rephrasing your request?"
)

// Result is the outcome of Extract. Card is set only on StatusSuccess.
type Result struct {
	Status  Status
	Card    *card.Input
	Message string

	// DuePhrase is the due-date text the card was resolved from.
	DuePhrase string
}

// OK reports whether a card was extracted.
func (r Result) OK() bool { return r.Status == StatusSuccess }

// taskReply mirrors the JSON object the system prompt asks for.
type taskReply struct {
	NeedsMoreInfo bool   `json:"needsMoreInfo"`
	Message       string `json:"message"`
	Title         string `json:"Title"`
	Column        string `json:"Column"`
	DueDate       string `json:"Due Date"`
	Type          string `json:"Type"`
}

// Extract asks the model to describe message as a card. It appends the
// request (and, when one arrives, the reply) to history and returns the
// extended history alongside the result; the input history is not modified.
//
// Extract never returns an error: transport failures and unparseable
// replies become StatusFailure results with a user-facing message.
func Extract(ctx context.Context, c llm.Completer, history llm.History, message string, now time.Time) (Result, llm.History) {
	history = history.Append(llm.Message{Role: llm.RoleUser, Content: TaskPrefix + message})

	reply, err := c.Complete(ctx, history.Messages())
	if err != nil {
		return Result{Status: StatusFailure, Message: MsgRetry}, history
	}
	history = history.Append(llm.Message{Role: llm.RoleAssistant, Content: reply})

	return Interpret(reply, message, now), history
}

// Interpret validates a model reply for the given user message.
func Interpret(reply, message string, now time.Time) Result {
	raw := FindJSONObject(reply)
	if raw == "" {
		return Result{Status: StatusFailure, Message: MsgNotUnderstood}
	}

	var parsed taskReply
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Result{Status: StatusFailure, Message: MsgRetry}
	}

	if parsed.NeedsMoreInfo {
		msg := strings.TrimSpace(parsed.Message)
		if msg == "" {
			msg = MsgNeedMoreInfo
		}
		return Result{Status: StatusNeedsMoreInfo, Message: msg}
	}

	subject, ok := card.ParseSubject(parsed.Column)
	if !ok {
		subject, _ = card.InferSubject(parsed.Column + " " + message)
	}
	typ, ok := card.ParseType(parsed.Type)
	if !ok {
		typ, _ = card.InferType(parsed.Type + " " + message)
	}
	duePhrase := strings.TrimSpace(parsed.DueDate)
	if duePhrase == "" {
		duePhrase, _ = dates.DetectPhrase(message)
	}
	title := strings.TrimSpace(parsed.Title)
	if title == "" && subject != "" && typ != "" {
		title = card.DefaultTitle(subject, typ)
	}

	if title == "" || subject == "" || duePhrase == "" || typ == "" {
		return Result{Status: StatusNeedsMoreInfo, Message: MsgNeedMoreInfo}
	}

	input := &card.Input{
		Title:   title,
		Type:    typ,
		Subject: subject,
		DueDate: dates.Resolve(duePhrase, now),
		Tags:    []string{string(typ)},
	}
	return Result{
		Status:    StatusSuccess,
		Card:      input,
		DuePhrase: duePhrase,
		Message:   fmt.Sprintf("Perfect! I've created \"%s\" for %s, due %s.", title, subject, duePhrase),
	}
}

// FindJSONObject returns the first balanced top-level {...} block in s,
// ignoring braces inside JSON strings and stripping markdown code fences.
// Returns "" when there is none.
func FindJSONObject(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		if last := strings.LastIndex(s, "```"); last >= 0 {
			s = s[:last]
		}
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
