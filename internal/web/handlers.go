package web

import (
	"encoding/json"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/dates"
	"github.com/hpungsan/workboard/internal/errors"
	"github.com/hpungsan/workboard/internal/llm"
)

// maxBodyBytes caps JSON and form request bodies.
const maxBodyBytes = 64 << 10

// Handlers contains HTTP route handlers for the board UI and JSON API.
type Handlers struct {
	board          *board.Store
	chat           *chat.Session
	renderer       *Renderer
	now            func() time.Time
	highlightDelay time.Duration
}

// ColumnView is one board column as the template sees it.
type ColumnView struct {
	Subject string
	Cards   []card.Card
}

// TurnView is one rendered transcript line.
type TurnView struct {
	Assistant bool
	HTML      template.HTML
}

// BoardPageData is the template data for the board page.
type BoardPageData struct {
	PageData
	Columns     []ColumnView
	Highlighted string
	DueSoon     []card.Card
	DueSoonDays int
	Urgent      []card.Card
	Transcript  []TurnView
	Subjects    []string
	Types       []card.Type
	HighlightMS int64
}

// HandleBoard handles GET /board — the workboard page with the assistant panel.
func (h *Handlers) HandleBoard(w http.ResponseWriter, r *http.Request) {
	snap := h.board.Snapshot()

	columns := make([]ColumnView, 0, len(snap.Order))
	for _, subj := range snap.Order {
		columns = append(columns, ColumnView{Subject: subj, Cards: snap.Columns[subj]})
	}

	turns := h.chat.Transcript()
	transcript := make([]TurnView, 0, len(turns))
	for _, t := range turns {
		if t.Role == llm.RoleAssistant {
			transcript = append(transcript, TurnView{Assistant: true, HTML: renderMarkdown(t.Text)})
		} else {
			transcript = append(transcript, TurnView{HTML: template.HTML(template.HTMLEscapeString(t.Text))})
		}
	}

	h.renderer.renderPage(w, "board", BoardPageData{
		PageData: PageData{
			Title:   "Workboard",
			Version: h.renderer.version,
		},
		Columns:     columns,
		Highlighted: snap.Highlighted,
		DueSoon:     h.board.DueSoon(board.DueSoonInput{}),
		DueSoonDays: h.board.DueSoonDays(),
		Urgent:      h.board.Urgent(),
		Transcript:  transcript,
		Subjects:    card.Subjects,
		Types:       card.Types,
		HighlightMS: h.highlightDelay.Milliseconds(),
	})
}

// HandleBoardJSON handles GET /api/board — the board snapshot.
func (h *Handlers) HandleBoardJSON(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, h.board.Snapshot())
}

// addCardRequest is the body of POST /api/cards. Due accepts an ISO date
// or any phrase the date resolver understands ("next friday").
type addCardRequest struct {
	Title   string   `json:"title"`
	Subject string   `json:"subject"`
	Type    string   `json:"type"`
	Due     string   `json:"due"`
	Tags    []string `json:"tags,omitempty"`
	Score   *string  `json:"score,omitempty"`
	IsDue   *bool    `json:"isDue,omitempty"`
}

// HandleAddCard handles POST /api/cards — the manual add-card form.
func (h *Handlers) HandleAddCard(w http.ResponseWriter, r *http.Request) {
	var req addCardRequest
	if isFormPost(r) {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
			return
		}
		req = addCardRequest{
			Title:   r.FormValue("title"),
			Subject: r.FormValue("subject"),
			Type:    r.FormValue("type"),
			Due:     r.FormValue("due"),
			Tags:    splitTags(r.FormValue("tags")),
			Score:   ptrString(r.FormValue("score")),
		}
		if v := r.FormValue("is_due"); v != "" {
			b := v == "true" || v == "on" || v == "1"
			req.IsDue = &b
		}
	} else if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	in := card.Input{
		Title:   strings.TrimSpace(req.Title),
		Subject: strings.TrimSpace(req.Subject),
		Type:    card.Type(strings.TrimSpace(req.Type)),
		Tags:    req.Tags,
		Score:   req.Score,
		IsDue:   req.IsDue,
	}
	if due := strings.TrimSpace(req.Due); due != "" {
		in.DueDate = dates.Resolve(due, h.now())
	}

	c, err := h.board.AddCard(r.Context(), board.AddCardInput{Card: in, Source: board.SourceManual})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/board", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusCreated, c)
}

// HandleDueSoon handles GET /api/due-soon?days=N.
func (h *Handlers) HandleDueSoon(w http.ResponseWriter, r *http.Request) {
	days := h.board.DueSoonDays()
	if s := r.URL.Query().Get("days"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("days must be a non-negative integer"))
			return
		}
		if v > 0 {
			days = v
		}
	}

	cards := h.board.DueSoon(board.DueSoonInput{WindowDays: days})
	renderJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"count": len(cards),
		"cards": nonNil(cards),
	})
}

// HandleUrgent handles GET /api/urgent.
func (h *Handlers) HandleUrgent(w http.ResponseWriter, r *http.Request) {
	cards := h.board.Urgent()
	renderJSON(w, http.StatusOK, map[string]any{
		"count": len(cards),
		"cards": nonNil(cards),
	})
}

// HandleClearHighlight handles POST /api/highlight/clear.
func (h *Handlers) HandleClearHighlight(w http.ResponseWriter, r *http.Request) {
	h.board.ClearHighlight(r.Context())

	if !wantsJSON(r) {
		http.Redirect(w, r, "/board", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

// HandleDismiss handles POST /api/cards/{id}/dismiss — clear one card's highlight.
func (h *Handlers) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("card ID is required"))
		return
	}

	if err := h.board.Dismiss(r.Context(), id); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/board", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"dismissed": true, "id": id})
}

// chatRequest is the body of POST /api/chat.
type chatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode,omitempty"` // auto (default), task, chat
}

// HandleChat handles POST /api/chat — send one message to the assistant.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if isFormPost(r) {
		if err := r.ParseForm(); err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
			return
		}
		req = chatRequest{Message: r.FormValue("message"), Mode: r.FormValue("mode")}
	} else if err := decodeJSON(r, &req); err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("message is required"))
		return
	}

	var reply chat.Reply
	switch strings.ToLower(strings.TrimSpace(req.Mode)) {
	case "", "auto":
		reply = h.chat.Send(r.Context(), message)
	case "task":
		reply = h.chat.CreateTaskFromMessage(r.Context(), message)
	case "chat":
		reply = h.chat.SendChatMessage(r.Context(), message)
	default:
		h.renderer.renderError(w, r, errors.NewInvalidRequest("mode must be one of: auto, task, chat"))
		return
	}

	if reply.Stale {
		h.renderer.renderError(w, r, errors.NewStaleResponse(h.chat.Generation()))
		return
	}

	if !wantsJSON(r) {
		http.Redirect(w, r, "/board#assistant", http.StatusSeeOther)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"reply": reply,
		"html":  string(renderMarkdown(reply.Text)),
	})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// splitTags splits a comma-separated form value, dropping blanks.
func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// ptrString returns a pointer to s if non-empty, nil otherwise.
func ptrString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// nonNil keeps empty results encoding as [] rather than null.
func nonNil(cards []card.Card) []card.Card {
	if cards == nil {
		return []card.Card{}
	}
	return cards
}
