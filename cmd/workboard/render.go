package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/chat"
	"github.com/hpungsan/workboard/internal/dates"
)

const wrapWidth = 80

// sendMessage is one of the session's message entry points.
type sendMessage func(ctx context.Context, message string) chat.Reply

// renderMarkdown writes md to w, formatted for the terminal unless raw.
func renderMarkdown(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, strings.TrimSpace(md))
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrapWidth),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// boardMarkdown lays the board out as one section per column.
func boardMarkdown(b board.Board) string {
	var sb strings.Builder
	sb.WriteString("# Workboard\n")
	for _, subject := range b.Order {
		cards := b.Column(subject)
		fmt.Fprintf(&sb, "\n## %s (%d)\n\n", subject, len(cards))
		if len(cards) == 0 {
			sb.WriteString("_No cards_\n")
			continue
		}
		for _, c := range cards {
			fmt.Fprintf(&sb, "- **%s**: %s, due %s", c.Type, c.Title, dates.Format(c.DueDate))
			if c.Score != nil {
				fmt.Fprintf(&sb, " (%s)", *c.Score)
			}
			if c.IsNewCard {
				sb.WriteString(" *new*")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// runREPL reads one message per line until EOF or "exit".
// "/reset" starts a fresh conversation.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, session *chat.Session, send sendMessage, raw bool) error {
	if err := renderMarkdown(out, chat.Greeting, raw); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", "/exit", "/quit":
			return nil
		case "/reset":
			session.Reset()
			if err := renderMarkdown(out, chat.Greeting, raw); err != nil {
				return err
			}
			continue
		}

		reply := send(ctx, line)
		if reply.Stale {
			continue
		}
		if err := renderMarkdown(out, reply.Text, raw); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	fmt.Fprintln(out)
	return scanner.Err()
}
