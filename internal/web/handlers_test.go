package web

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/db"
	"github.com/hpungsan/workboard/internal/llm"
	"github.com/hpungsan/workboard/internal/metrics"
)

// monday is Monday, October 19, 2026.
var monday = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return monday }

// cannedCompleter replies with the same text every time.
type cannedCompleter struct {
	mu    sync.Mutex
	reply string
}

func (c *cannedCompleter) Complete(context.Context, []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reply, nil
}

func setupTest(t *testing.T, reply string) *Handlers {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := board.New(context.Background(), board.Options{
		Persister:      db.NewStateStore(database),
		Clock:          clock,
		HighlightDelay: time.Hour,
	})
	t.Cleanup(store.Close)

	session := chat.NewSession(chat.Options{
		Completer: &cannedCompleter{reply: reply},
		Board:     store,
		Clock:     clock,
	})

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		t.Fatalf("template sub-FS: %v", err)
	}
	return newHandlers(Deps{Board: store, Chat: session, Clock: clock}, NewRenderer(templateSub, "test", nil))
}

// seedCard adds a card and returns its ID.
func seedCard(t *testing.T, h *Handlers, title, subject string, days int) string {
	t.Helper()
	c, err := h.board.AddCard(context.Background(), board.AddCardInput{Card: card.Input{
		Title: title, Subject: subject, Type: card.TypeQuiz, DueDate: monday.AddDate(0, 0, days),
	}})
	if err != nil {
		t.Fatalf("seed card %q: %v", title, err)
	}
	return c.ID
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

// --- HandleBoard ---

func TestHandleBoard_RendersColumnsAndGreeting(t *testing.T) {
	h := setupTest(t, "")
	seedCard(t, h, "Cell Quiz", card.SubjectBiology, 1)

	req := httptest.NewRequest("GET", "/board", nil)
	rec := httptest.NewRecorder()
	h.HandleBoard(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Cell Quiz", card.SubjectCoreMath, card.SubjectAmericanLit, card.SubjectBiology, "Swoon Assist", "card-new", "Due Tue, Oct 20"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in board page", want)
		}
	}
	// Biology was just added to, so it renders first.
	if strings.Index(body, "<h2>AP Biology") > strings.Index(body, "<h2>Core Math") {
		t.Error("expected AP Biology column before Core Math")
	}
}

func TestHandleBoard_EscapesUserText(t *testing.T) {
	h := setupTest(t, "ok")
	h.chat.SendChatMessage(context.Background(), "<script>alert(1)</script>")

	rec := httptest.NewRecorder()
	h.HandleBoard(rec, httptest.NewRequest("GET", "/board", nil))

	if strings.Contains(rec.Body.String(), "<script>alert(1)</script>") {
		t.Error("user text rendered unescaped")
	}
}

// --- JSON API ---

func TestHandleBoardJSON(t *testing.T) {
	h := setupTest(t, "")
	id := seedCard(t, h, "Algebra Quiz", card.SubjectCoreMath, 2)

	rec := httptest.NewRecorder()
	h.HandleBoardJSON(rec, httptest.NewRequest("GET", "/api/board", nil))

	var got board.Board
	decodeBody(t, rec, &got)
	if got.Highlighted != id {
		t.Errorf("highlighted = %q, want %q", got.Highlighted, id)
	}
	if len(got.Columns[card.SubjectCoreMath]) != 1 {
		t.Errorf("Core Math cards = %d, want 1", len(got.Columns[card.SubjectCoreMath]))
	}
}

func TestHandleAddCard_JSON(t *testing.T) {
	h := setupTest(t, "")
	body := `{"title": "Gatsby Essay", "subject": "AP American Literature", "type": "Assignment", "due": "next friday", "tags": ["Essay"]}`

	req := httptest.NewRequest("POST", "/api/cards", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleAddCard(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	var c card.Card
	decodeBody(t, rec, &c)
	if c.Title != "Gatsby Essay" || !c.IsNewCard {
		t.Errorf("card = %+v", c)
	}
	if got := c.DueDate.Format("2006-01-02"); got != "2026-10-23" {
		t.Errorf("due = %s, want 2026-10-23", got)
	}
}

func TestHandleAddCard_FormRedirects(t *testing.T) {
	h := setupTest(t, "")
	form := url.Values{"title": {"Lab"}, "subject": {"AP Biology"}, "type": {"Lab Report"}, "due": {"2026-10-30"}, "tags": {"lab, bio,"}}

	req := httptest.NewRequest("POST", "/api/cards", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleAddCard(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/board" {
		t.Errorf("Location = %q, want /board", loc)
	}
	cards := h.board.Snapshot().Column(card.SubjectBiology)
	if len(cards) != 1 || len(cards[0].Tags) != 2 {
		t.Fatalf("biology cards = %+v", cards)
	}
}

func TestHandleAddCard_ValidationErrors(t *testing.T) {
	h := setupTest(t, "")
	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing title", `{"subject": "AP Biology", "type": "Quiz", "due": "tomorrow"}`, "INVALID_REQUEST"},
		{"missing due", `{"title": "x", "subject": "AP Biology", "type": "Quiz"}`, "INVALID_REQUEST"},
		{"unknown subject", `{"title": "x", "subject": "Chemistry", "type": "Quiz", "due": "tomorrow"}`, "UNKNOWN_SUBJECT"},
		{"bad type", `{"title": "x", "subject": "AP Biology", "type": "Essay", "due": "tomorrow"}`, "INVALID_REQUEST"},
		{"bad json", `{"title": `, "INVALID_REQUEST"},
		{"unknown field", `{"title": "x", "colour": "red"}`, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/cards", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			h.HandleAddCard(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var env struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			decodeBody(t, rec, &env)
			if env.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", env.Error.Code, tt.code)
			}
		})
	}
	if n := h.board.Snapshot().Count(); n != 0 {
		t.Errorf("board has %d cards, want 0", n)
	}
}

func TestHandleDueSoon(t *testing.T) {
	h := setupTest(t, "")
	seedCard(t, h, "soon", card.SubjectCoreMath, 2)
	seedCard(t, h, "later", card.SubjectCoreMath, 6)

	rec := httptest.NewRecorder()
	h.HandleDueSoon(rec, httptest.NewRequest("GET", "/api/due-soon", nil))
	var got struct {
		Days  int         `json:"days"`
		Count int         `json:"count"`
		Cards []card.Card `json:"cards"`
	}
	decodeBody(t, rec, &got)
	if got.Days != 3 || got.Count != 1 || got.Cards[0].Title != "soon" {
		t.Errorf("default window = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.HandleDueSoon(rec, httptest.NewRequest("GET", "/api/due-soon?days=7", nil))
	decodeBody(t, rec, &got)
	if got.Days != 7 || got.Count != 2 {
		t.Errorf("7-day window = %+v", got)
	}

	rec = httptest.NewRecorder()
	h.HandleDueSoon(rec, httptest.NewRequest("GET", "/api/due-soon?days=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad days: status = %d, want 400", rec.Code)
	}
}

func TestHandleUrgent_EmptyIsArray(t *testing.T) {
	h := setupTest(t, "")

	rec := httptest.NewRecorder()
	h.HandleUrgent(rec, httptest.NewRequest("GET", "/api/urgent", nil))

	if !strings.Contains(rec.Body.String(), `"cards":[]`) {
		t.Errorf("body = %s, want empty cards array", rec.Body.String())
	}
}

func TestHandleClearHighlight(t *testing.T) {
	h := setupTest(t, "")
	seedCard(t, h, "A", card.SubjectBiology, 1)

	req := httptest.NewRequest("POST", "/api/highlight/clear", nil)
	rec := httptest.NewRecorder()
	h.HandleClearHighlight(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.board.Snapshot().Highlighted != "" {
		t.Error("highlight not cleared")
	}
}

func TestHandleDismiss(t *testing.T) {
	h := setupTest(t, "")
	id := seedCard(t, h, "A", card.SubjectBiology, 1)

	req := httptest.NewRequest("POST", "/api/cards/"+id+"/dismiss", nil)
	req.SetPathValue("id", id)
	rec := httptest.NewRecorder()
	h.HandleDismiss(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if h.board.Snapshot().Column(card.SubjectBiology)[0].IsNewCard {
		t.Error("card still highlighted")
	}

	req = httptest.NewRequest("POST", "/api/cards/nope/dismiss", nil)
	req.SetPathValue("id", "nope")
	rec = httptest.NewRecorder()
	h.HandleDismiss(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

// --- HandleChat ---

func TestHandleChat_CreatesTask(t *testing.T) {
	h := setupTest(t, `{"Title": "Biology Lab Report", "Column": "AP Biology", "Due Date": "Friday", "Type": "Lab Report"}`)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message": "Biology lab report due Friday"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Reply struct {
			Intent string     `json:"intent"`
			Text   string     `json:"text"`
			Card   *card.Card `json:"card"`
		} `json:"reply"`
		HTML string `json:"html"`
	}
	decodeBody(t, rec, &got)
	if got.Reply.Intent != "create_task" || got.Reply.Card == nil {
		t.Fatalf("reply = %+v", got.Reply)
	}
	if !strings.Contains(got.HTML, "<p>") {
		t.Errorf("html = %q, want rendered markdown", got.HTML)
	}
	if n := len(h.board.Snapshot().Column(card.SubjectBiology)); n != 1 {
		t.Errorf("biology cards = %d, want 1", n)
	}
}

func TestHandleChat_ModeChatAndForm(t *testing.T) {
	h := setupTest(t, "Take breaks every 25 minutes.")
	form := url.Values{"message": {"add tips for studying"}, "mode": {"chat"}}

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	tr := h.chat.Transcript()
	if last := tr[len(tr)-1]; last.Text != "Take breaks every 25 minutes." {
		t.Errorf("last turn = %+v", last)
	}
	if h.board.Snapshot().Count() != 0 {
		t.Error("chat mode must not create cards")
	}
}

func TestHandleChat_BadInput(t *testing.T) {
	h := setupTest(t, "")
	for _, body := range []string{`{"message": "   "}`, `{"message": "hi", "mode": "shout"}`} {
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		h.HandleChat(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

// --- Error rendering ---

func TestErrorRendering_FullErrorPage(t *testing.T) {
	h := setupTest(t, "")
	form := url.Values{"title": {""}}

	req := httptest.NewRequest("POST", "/api/cards", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.HandleAddCard(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "title is required") {
		t.Error("expected validation message on error page")
	}
}

// --- Server wiring ---

func TestNewServer_Routes(t *testing.T) {
	h := setupTest(t, "")
	srv, err := NewServer(Deps{Board: h.board, Chat: h.chat, Metrics: metrics.New(), Clock: clock}, "test", "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/board" {
		t.Errorf("GET / = %d -> %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	for _, path := range []string{"/board", "/api/board", "/api/urgent", "/metrics", "/static/style.css"} {
		resp, err := client.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}

	resp, err = client.Post(ts.URL+"/api/board", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/board: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/board = %d, want 405", resp.StatusCode)
	}
}

func TestSplitTags(t *testing.T) {
	got := splitTags(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("splitTags = %q", got)
	}
	if splitTags("") != nil {
		t.Error("splitTags(\"\") should be nil")
	}
}
