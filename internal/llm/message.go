// Package llm wraps an OpenAI-compatible chat-completion endpoint.
package llm

import "context"

// Roles used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer sends a conversation and returns the assistant's reply text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// History is the ordered context window sent with every request.
// It is a value: Append and Trim return new histories and never mutate
// the receiver's backing array.
type History []Message

// NewHistory starts a conversation with the given system instruction.
func NewHistory(systemPrompt string) History {
	return History{{Role: RoleSystem, Content: systemPrompt}}
}

// Append returns a copy of h with msgs added at the end.
func (h History) Append(msgs ...Message) History {
	out := make(History, 0, len(h)+len(msgs))
	out = append(out, h...)
	return append(out, msgs...)
}

// Trim keeps a leading system message (if any) plus the most recent max
// messages. max <= 0 disables trimming.
func (h History) Trim(max int) History {
	if max <= 0 {
		return h
	}
	var head History
	body := h
	if len(h) > 0 && h[0].Role == RoleSystem {
		head = h[:1]
		body = h[1:]
	}
	if len(body) <= max {
		return h
	}
	body = body[len(body)-max:]
	// Never start the window on an assistant reply orphaned from its prompt.
	if len(body) > 0 && body[0].Role == RoleAssistant {
		body = body[1:]
	}
	out := make(History, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

// Messages returns the history as a plain slice for a Completer.
func (h History) Messages() []Message {
	return []Message(h)
}
