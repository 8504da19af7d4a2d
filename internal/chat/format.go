package chat

import (
	"fmt"
	"strings"

	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/dates"
)

// Reply texts shown to the user.
const (
	MsgNothingDueSoon = "Nothing is due this week."
	MsgNothingUrgent  = "You have nothing urgent."
	MsgConnection     = "I'm having trouble connecting right now. Please try again in a moment."
)

// Greeting is the assistant's first message in a new conversation.
const Greeting = "Hi Kelly! I'm Swoon Assist, your AI study companion. I can help you create new assignments, check what's due, and organize your workboard. What would you like to work on today?"

// FormatCards renders cards as a markdown bullet list under heading.
// An empty list yields empty instead.
func FormatCards(heading, empty string, cards []card.Card) string {
	if len(cards) == 0 {
		return empty
	}
	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "- %s (%s) — due %s\n", c.Title, c.Subject, dates.Format(c.DueDate))
	}
	return strings.TrimRight(b.String(), "\n")
}
