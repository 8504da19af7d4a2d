package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/workboard/internal/backup"
	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/dates"
	"github.com/hpungsan/workboard/internal/errors"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(rt *runtime) *cli.App {
	app := &cli.App{
		Name:    "workboard",
		Usage:   "Student workboard with an assignment assistant",
		Version: Version,
		Commands: []*cli.Command{
			addCmd(rt),
			boardCmd(rt),
			dueSoonCmd(rt),
			urgentCmd(rt),
			clearHighlightCmd(rt),
			dismissCmd(rt),
			exportCmd(rt),
			importCmd(rt),
			chatCmd(rt),
			serveCmd(rt),
			mcpCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// addCmd creates the add command.
func addCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add an assignment card",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true, Usage: "Card title"},
			&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Required: true, Usage: "Subject column: " + strings.Join(card.Subjects, "|")},
			&cli.StringFlag{Name: "type", Value: string(card.TypeAssignment), Usage: "Assignment type"},
			&cli.StringFlag{Name: "due", Aliases: []string{"d"}, Required: true, Usage: "Due date: YYYY-MM-DD or a phrase like \"next friday\""},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "score", Usage: "Display-only score, e.g. 0/4"},
			&cli.BoolFlag{Name: "is-due", Usage: "Mark the card as due"},
		},
		Action: func(c *cli.Context) error {
			in := card.Input{
				Title:   strings.TrimSpace(c.String("title")),
				Subject: strings.TrimSpace(c.String("subject")),
				Type:    card.Type(strings.TrimSpace(c.String("type"))),
				DueDate: dates.Resolve(c.String("due"), rt.now()),
				Tags:    parseTags(c.String("tags")),
			}
			if score := strings.TrimSpace(c.String("score")); score != "" {
				in.Score = &score
			}
			if c.IsSet("is-due") {
				isDue := c.Bool("is-due")
				in.IsDue = &isDue
			}

			created, err := rt.board.AddCard(c.Context, board.AddCardInput{Card: in, Source: board.SourceManual})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, created)
		},
	}
}

// boardCmd creates the board command.
func boardCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "board",
		Usage: "Show the board",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "pretty", Aliases: []string{"p"}, Usage: "Render columns as formatted text instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			snap := rt.board.Snapshot()
			if c.Bool("pretty") {
				return renderMarkdown(c.App.Writer, boardMarkdown(snap), false)
			}
			return outputJSON(c.App.Writer, snap)
		},
	}
}

// cardsOutput is the JSON shape of the due-soon and urgent commands.
type cardsOutput struct {
	Days  int         `json:"days,omitempty"`
	Count int         `json:"count"`
	Cards []card.Card `json:"cards"`
}

func newCardsOutput(days int, cards []card.Card) cardsOutput {
	if cards == nil {
		cards = []card.Card{}
	}
	return cardsOutput{Days: days, Count: len(cards), Cards: cards}
}

// dueSoonCmd creates the due-soon command.
func dueSoonCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "due-soon",
		Usage: "List cards due within the next few days, soonest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "days", Aliases: []string{"n"}, Usage: "Window in days (default from config)"},
		},
		Action: func(c *cli.Context) error {
			days := c.Int("days")
			if days < 0 {
				return outputError(errors.NewInvalidRequest("days must be non-negative"))
			}
			if days == 0 {
				days = rt.board.DueSoonDays()
			}
			cards := rt.board.DueSoon(board.DueSoonInput{WindowDays: days})
			return outputJSON(c.App.Writer, newCardsOutput(days, cards))
		},
	}
}

// urgentCmd creates the urgent command.
func urgentCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "urgent",
		Usage: "List cards due today or tomorrow, plus anything overdue",
		Action: func(c *cli.Context) error {
			return outputJSON(c.App.Writer, newCardsOutput(0, rt.board.Urgent()))
		},
	}
}

// clearHighlightCmd creates the clear-highlight command.
func clearHighlightCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "clear-highlight",
		Usage: "Clear the new-card highlight",
		Action: func(c *cli.Context) error {
			rt.board.ClearHighlight(c.Context)
			return outputJSON(c.App.Writer, map[string]any{"cleared": true})
		},
	}
}

// dismissCmd creates the dismiss command.
func dismissCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "dismiss",
		Usage:     "Clear the highlight from one card",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id := strings.TrimSpace(c.Args().First())
			if id == "" {
				return outputError(errors.NewInvalidRequest("card ID is required"))
			}
			if err := rt.board.Dismiss(c.Context, id); err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, map[string]any{"dismissed": true, "id": id})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Back up the board to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: <base>/exports/board-<timestamp>.jsonl)"},
		},
		Action: func(c *cli.Context) error {
			output, err := backup.Export(c.Context, rt.board, rt.cfg, rt.exportsDir, backup.ExportInput{
				Path: c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Restore cards from a JSONL backup",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Bad or colliding records: error|skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := backup.Import(c.Context, rt.board, rt.cfg, rt.exportsDir, backup.ImportInput{
				Path: c.String("path"),
				Mode: backup.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// chatCmd creates the chat command.
func chatCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Talk to the assistant (one message, or an interactive session when no message is given)",
		ArgsUsage: "[message...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "auto", Usage: "Routing: auto|task|chat"},
			&cli.BoolFlag{Name: "json", Usage: "Print the reply as JSON"},
			&cli.BoolFlag{Name: "raw", Usage: "Print replies without terminal formatting"},
		},
		Action: func(c *cli.Context) error {
			session, err := rt.chat()
			if err != nil {
				return outputError(err)
			}
			send, err := sendFunc(session, c.String("mode"))
			if err != nil {
				return outputError(err)
			}

			if c.NArg() == 0 {
				return runREPL(c.Context, c.App.Reader, c.App.Writer, session, send, c.Bool("raw"))
			}

			reply := send(c.Context, strings.Join(c.Args().Slice(), " "))
			if c.Bool("json") {
				return outputJSON(c.App.Writer, reply)
			}
			return renderMarkdown(c.App.Writer, reply.Text, c.Bool("raw"))
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the board UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8765, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			if err := rt.serveWeb(c.String("bind"), c.Int("port")); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			if err := rt.serveMCP(); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// sendFunc maps a --mode value onto a session entry point.
func sendFunc(session *chat.Session, mode string) (sendMessage, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return session.Send, nil
	case "task":
		return session.CreateTaskFromMessage, nil
	case "chat":
		return session.SendChatMessage, nil
	default:
		return nil, errors.NewInvalidRequest("mode must be one of: auto, task, chat")
	}
}

// outputJSON writes v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	wErr := errors.As(err)
	return cli.Exit(fmt.Sprintf("[%s] %s", wErr.Code, wErr.Message), 1)
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
