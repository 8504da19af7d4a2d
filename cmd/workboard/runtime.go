package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/hpungsan/workboard/internal/backup"
	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/config"
	"github.com/hpungsan/workboard/internal/db"
	"github.com/hpungsan/workboard/internal/llm"
	"github.com/hpungsan/workboard/internal/logger"
	"github.com/hpungsan/workboard/internal/mcp"
	"github.com/hpungsan/workboard/internal/metrics"
	"github.com/hpungsan/workboard/internal/web"
)

// runtime holds the components commands operate on.
type runtime struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	db      *sql.DB
	board   *board.Store
	now     func() time.Time

	// exportsDir is where board backups go by default.
	exportsDir string

	// completer overrides the configured LLM client (tests).
	completer llm.Completer

	sessionOnce sync.Once
	session     *chat.Session
	sessionErr  error

	closeOnce sync.Once
}

// newRuntime opens the database under baseDir and restores the board.
func newRuntime(baseDir string, cfg *config.Config, log *logger.Logger) (*runtime, error) {
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)
	rt := newRuntimeWithDB(database, cfg, log, time.Now)
	rt.exportsDir = backup.ExportsDir(baseDir)
	return rt, nil
}

func newRuntimeWithDB(database *sql.DB, cfg *config.Config, log *logger.Logger, now func() time.Time) *runtime {
	if log == nil {
		log = logger.Nop()
	}
	m := metrics.New()
	store := board.New(context.Background(), board.Options{
		Persister:      db.NewStateStore(database),
		Clock:          now,
		HighlightDelay: cfg.HighlightDelay(),
		DueSoonDays:    cfg.DueSoonDays,
		Logger:         log,
		OnCardAdded: func(_ card.Card, source string) {
			m.CardCreated(source)
		},
	})
	return &runtime{
		cfg:     cfg,
		log:     log,
		metrics: m,
		db:      database,
		board:   store,
		now:     now,
	}
}

// chat returns the assistant session, building the LLM client on first use.
// A missing API key is fatal here: the assistant cannot start without one.
func (r *runtime) chat() (*chat.Session, error) {
	r.sessionOnce.Do(func() {
		completer := r.completer
		if completer == nil {
			client, err := llm.NewClient(llm.ClientConfig{
				BaseURL:           r.cfg.LLMBaseURL,
				APIKey:            r.cfg.APIKey,
				Model:             r.cfg.LLMModel,
				MaxTokens:         r.cfg.LLMMaxTokens,
				Temperature:       r.cfg.Temperature(),
				Timeout:           r.cfg.LLMTimeout(),
				RequestsPerMinute: r.cfg.LLMRequestsPerMinute,
				KeyEnv:            r.cfg.APIKeyEnv,
				Observe:           r.metrics.LLMRequest,
			}, r.log)
			if err != nil {
				r.sessionErr = err
				return
			}
			completer = client
		}
		r.session = chat.NewSession(chat.Options{
			Completer:  completer,
			Board:      r.board,
			Clock:      r.now,
			MaxHistory: r.cfg.MaxHistory,
			Logger:     r.log,
			OnIntent: func(i chat.Intent) {
				r.metrics.ChatIntent(i.String())
			},
		})
	})
	return r.session, r.sessionErr
}

// serveMCP runs the MCP stdio server until stdin closes.
func (r *runtime) serveMCP() error {
	session, err := r.chat()
	if err != nil {
		return err
	}
	if unknown := mcp.ValidateDisabledTools(r.cfg.DisabledTools); len(unknown) > 0 {
		r.log.Warnw("ignoring unknown disabled tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(r.cfg.DisabledTypes); len(unknown) > 0 {
		r.log.Warnw("ignoring unknown disabled types", "types", unknown)
	}
	return mcp.Run(mcp.Deps{Board: r.board, Chat: session, Clock: r.now}, r.cfg, Version)
}

// serveWeb runs the board UI until SIGINT/SIGTERM.
func (r *runtime) serveWeb(bind string, port int) error {
	session, err := r.chat()
	if err != nil {
		return err
	}
	srv, err := web.NewServer(web.Deps{
		Board:          r.board,
		Chat:           session,
		Metrics:        r.metrics,
		Logger:         r.log,
		Clock:          r.now,
		HighlightDelay: r.cfg.HighlightDelay(),
	}, Version, bind, port)
	if err != nil {
		return err
	}
	return web.Run(srv, r.log)
}

// Close stops highlight timers and closes the database.
func (r *runtime) Close() {
	r.closeOnce.Do(func() {
		r.board.Close()
		if err := r.db.Close(); err != nil {
			r.log.Warnw("failed to close database", "error", err)
		}
	})
}
