package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/dates"
	"github.com/hpungsan/workboard/internal/errors"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	board *board.Store
	chat  *chat.Session
	now   func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *board.Store, session *chat.Session, now func() time.Time) *Handlers {
	if now == nil {
		now = time.Now
	}
	return &Handlers{board: store, chat: session, now: now}
}

// Request types for each tool

// AddCardRequest represents the arguments for board_add_card.
type AddCardRequest struct {
	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	Type    string   `json:"type"`
	Due     string   `json:"due"`
	Tags    []string `json:"tags,omitempty"`
	Score   *string  `json:"score,omitempty"`
	IsDue   *bool    `json:"is_due,omitempty"`
}

// DueSoonRequest represents the arguments for board_due_soon.
type DueSoonRequest struct {
	Days *int `json:"days,omitempty"`
}

// DismissRequest represents the arguments for board_dismiss.
type DismissRequest struct {
	ID string `json:"id"`
}

// ChatRequest represents the arguments for chat_send and chat_create_task.
type ChatRequest struct {
	Message string `json:"message"`
}

// CardsOutput is the result of the due-soon and urgent queries.
type CardsOutput struct {
	Days  int         `json:"days,omitempty"`
	Count int         `json:"count"`
	Cards []card.Card `json:"cards"`
}

// HandleAddCard handles the board_add_card tool.
func (h *Handlers) HandleAddCard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddCardRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	in := card.Input{
		Title:   strings.TrimSpace(input.Title),
		Subject: strings.TrimSpace(input.Subject),
		Type:    card.Type(strings.TrimSpace(input.Type)),
		Tags:    input.Tags,
		Score:   input.Score,
		IsDue:   input.IsDue,
	}
	if due := strings.TrimSpace(input.Due); due != "" {
		in.DueDate = dates.Resolve(due, h.now())
	}

	c, err := h.board.AddCard(ctx, board.AddCardInput{Card: in, Source: board.SourceManual})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(c)
}

// HandleSnapshot handles the board_snapshot tool.
func (h *Handlers) HandleSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(h.board.Snapshot())
}

// HandleDueSoon handles the board_due_soon tool.
func (h *Handlers) HandleDueSoon(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DueSoonRequest](req)
	if err != nil {
		return errorResult(err), nil
	}

	days := h.board.DueSoonDays()
	if input.Days != nil {
		if *input.Days < 0 {
			return errorResult(errors.NewInvalidRequest("days must be non-negative")), nil
		}
		if *input.Days > 0 {
			days = *input.Days
		}
	}

	cards := h.board.DueSoon(board.DueSoonInput{WindowDays: days})
	return successResult(CardsOutput{Days: days, Count: len(cards), Cards: nonNil(cards)})
}

// HandleUrgent handles the board_urgent tool.
func (h *Handlers) HandleUrgent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cards := h.board.Urgent()
	return successResult(CardsOutput{Count: len(cards), Cards: nonNil(cards)})
}

// HandleClearHighlight handles the board_clear_highlight tool.
func (h *Handlers) HandleClearHighlight(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.board.ClearHighlight(ctx)
	return successResult(map[string]any{"cleared": true})
}

// HandleDismiss handles the board_dismiss tool.
func (h *Handlers) HandleDismiss(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DismissRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	if err := h.board.Dismiss(ctx, id); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"dismissed": true, "id": id})
}

// HandleChatSend handles the chat_send tool.
func (h *Handlers) HandleChatSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.handleChat(ctx, req, h.chat.Send)
}

// HandleChatCreateTask handles the chat_create_task tool.
func (h *Handlers) HandleChatCreateTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.handleChat(ctx, req, h.chat.CreateTaskFromMessage)
}

func (h *Handlers) handleChat(ctx context.Context, req mcp.CallToolRequest, send func(context.Context, string) chat.Reply) (*mcp.CallToolResult, error) {
	input, err := decode[ChatRequest](req)
	if err != nil {
		return errorResult(err), nil
	}
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return errorResult(errors.NewInvalidRequest("message is required")), nil
	}

	reply := send(ctx, message)
	if reply.Stale {
		return errorResult(errors.NewStaleResponse(h.chat.Generation())), nil
	}
	return successResult(reply)
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil(cards []card.Card) []card.Card {
	if cards == nil {
		return []card.Card{}
	}
	return cards
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	wErr := errors.As(err)

	message := wErr.Message
	if wErr.Code == errors.ErrInternal {
		message = "an internal error occurred"
	} else if err != error(wErr) {
		// keep wrapper context such as "items[2]: ..."
		message = strings.Replace(err.Error(), wErr.Error(), wErr.Message, 1)
	}

	errorObj := map[string]any{
		"code":    wErr.Code,
		"message": message,
		"status":  wErr.Status,
	}
	if wErr.Code != errors.ErrInternal && wErr.Details != nil {
		errorObj["details"] = wErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
