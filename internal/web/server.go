package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/logger"
	"github.com/hpungsan/workboard/internal/metrics"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Deps are the components the server exposes.
type Deps struct {
	Board   *board.Store
	Chat    *chat.Session
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	// Clock resolves relative due dates in the add-card form. Defaults to time.Now.
	Clock func() time.Time

	// HighlightDelay tells the page when to refresh after a card is added.
	HighlightDelay time.Duration
}

// NewServer creates and configures the HTTP server for the workboard UI and API.
func NewServer(deps Deps, version, bind string, port int) (*http.Server, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	log := deps.Logger.With("component", "web")
	h := newHandlers(deps, NewRenderer(templateSub, version, log))

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/board", http.StatusFound)
	})
	mux.HandleFunc("GET /board", h.HandleBoard)
	mux.HandleFunc("GET /api/board", h.HandleBoardJSON)
	mux.HandleFunc("POST /api/cards", h.HandleAddCard)
	mux.HandleFunc("POST /api/cards/{id}/dismiss", h.HandleDismiss)
	mux.HandleFunc("GET /api/due-soon", h.HandleDueSoon)
	mux.HandleFunc("GET /api/urgent", h.HandleUrgent)
	mux.HandleFunc("POST /api/highlight/clear", h.HandleClearHighlight)
	mux.HandleFunc("POST /api/chat", h.HandleChat)
	mux.Handle("GET /metrics", deps.Metrics.Handler())

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Wrap with metrics, then security headers
	handler := securityHeaders(deps.Metrics.Middleware(mux))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

func newHandlers(deps Deps, renderer *Renderer) *Handlers {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	delay := deps.HighlightDelay
	if delay <= 0 {
		delay = board.DefaultHighlightDelay
	}
	return &Handlers{
		board:          deps.Board,
		chat:           deps.Chat,
		renderer:       renderer,
		now:            now,
		highlightDelay: delay,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Infow("workboard UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warnw("server is binding to all interfaces and may be accessible from the network", "addr", srv.Addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Infow("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
