package chat

import (
	"regexp"
	"strings"
)

// Intent is what a chat message asks for.
type Intent int

const (
	IntentChat Intent = iota
	IntentCreateTask
	IntentDueSoon
	IntentUrgent
)

// String returns the intent name used in logs and metrics labels.
func (i Intent) String() string {
	switch i {
	case IntentCreateTask:
		return "create_task"
	case IntentDueSoon:
		return "due_soon"
	case IntentUrgent:
		return "urgent"
	default:
		return "chat"
	}
}

var (
	creationVerbs = []string{"create", "add", "make", "new", "schedule", "remind"}
	urgentWords   = []string{"urgent", "first", "priority", "prioritize", "asap", "focus", "important"}
	creationNouns = []string{"assignment", "due", "task", "quiz", "homework", "test", "project", "lab report"}
)

var tokenRegex = regexp.MustCompile(`[a-z0-9]+`)

// Classify decides the intent of a message. Rules are checked in order and
// the first match wins:
//  1. a creation verb ("add", "create", ...) asks for a new card
//  2. "due" together with "week" or "soon" asks what is due soon
//  3. an urgency word ("urgent", "first", ...) asks what is urgent
//  4. an assignment noun ("quiz", "due", ...) asks for a new card
//  5. anything else is plain conversation
func Classify(message string) Intent {
	padded := " " + strings.Join(tokenRegex.FindAllString(strings.ToLower(message), -1), " ") + " "
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(padded, " "+w+" ") {
				return true
			}
		}
		return false
	}

	switch {
	case has(creationVerbs...):
		return IntentCreateTask
	case has("due") && has("week", "soon"):
		return IntentDueSoon
	case has(urgentWords...):
		return IntentUrgent
	case has(creationNouns...):
		return IntentCreateTask
	default:
		return IntentChat
	}
}

// MarshalText encodes the intent by name.
func (i Intent) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText decodes an intent name. Unknown names decode as IntentChat.
func (i *Intent) UnmarshalText(b []byte) error {
	switch string(b) {
	case "create_task":
		*i = IntentCreateTask
	case "due_soon":
		*i = IntentDueSoon
	case "urgent":
		*i = IntentUrgent
	default:
		*i = IntentChat
	}
	return nil
}
