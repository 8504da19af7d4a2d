package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/workboard/internal/card"
)

func typeNames() []string {
	names := make([]string, len(card.Types))
	for i, t := range card.Types {
		names[i] = string(t)
	}
	return names
}

var addCardToolDef = mcp.NewTool("board_add_card",
	mcp.WithDescription("Add an assignment card to a subject column. The column moves to the front of the board and the card is highlighted briefly."),
	mcp.WithString("title", mcp.Required(), mcp.Description("Card title")),
	mcp.WithString("subject", mcp.Required(), mcp.Description("Subject column"), mcp.Enum(card.Subjects...)),
	mcp.WithString("type", mcp.Required(), mcp.Description("Assignment type"), mcp.Enum(typeNames()...)),
	mcp.WithString("due", mcp.Required(), mcp.Description("Due date: YYYY-MM-DD or a phrase like \"next friday\"")),
	mcp.WithArray("tags", mcp.Description("Optional tags"), mcp.WithStringItems()),
	mcp.WithString("score", mcp.Description("Display-only score such as 0/4")),
	mcp.WithBoolean("is_due", mcp.Description("Mark the card as due")),
)

var snapshotToolDef = mcp.NewTool("board_snapshot",
	mcp.WithDescription("Return the board: column order, cards per column, and the highlighted card."),
)

var dueSoonToolDef = mcp.NewTool("board_due_soon",
	mcp.WithDescription("List cards due within the next N days, soonest first. Overdue cards are included."),
	mcp.WithNumber("days", mcp.Description("Window in days (default from config)"), mcp.Min(0)),
)

var urgentToolDef = mcp.NewTool("board_urgent",
	mcp.WithDescription("List cards due today or tomorrow, plus anything overdue."),
)

var clearHighlightToolDef = mcp.NewTool("board_clear_highlight",
	mcp.WithDescription("Clear the new-card highlight from every card."),
)

var dismissToolDef = mcp.NewTool("board_dismiss",
	mcp.WithDescription("Clear the highlight from one card."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Card ID")),
)

var chatSendToolDef = mcp.NewTool("chat_send",
	mcp.WithDescription("Send a message to the workboard assistant. Task requests become cards; due-date questions are answered from the board."),
	mcp.WithString("message", mcp.Required(), mcp.Description("Message text")),
)

var chatCreateTaskToolDef = mcp.NewTool("chat_create_task",
	mcp.WithDescription("Turn a free-text request into a card, regardless of wording."),
	mcp.WithString("message", mcp.Required(), mcp.Description("Task description, e.g. \"bio lab report due friday\"")),
)
