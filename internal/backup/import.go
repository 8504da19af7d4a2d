package backup

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/card"
	"github.com/hpungsan/workboard/internal/config"
	"github.com/hpungsan/workboard/internal/errors"
)

// ImportMode controls what happens to bad or colliding records.
type ImportMode string

const (
	ImportModeError ImportMode = "error" // import nothing if any record is bad (atomic)
	ImportModeSkip  ImportMode = "skip"  // import the good records, report the rest
)

// maxLineBytes bounds one JSONL record.
const maxLineBytes = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string     // required
	Mode ImportMode // default: error
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
}

// ImportError describes one record that was not imported.
type ImportError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type record struct {
	line int
	card card.Card
}

// Import reads an export file and adds its cards to the board, keeping
// their IDs. Cards already on the board count as collisions.
func Import(ctx context.Context, store *board.Store, cfg *config.Config, exportsDir string, input ImportInput) (*ImportOutput, error) {
	if input.Mode == "" {
		input.Mode = ImportModeError
	}
	if input.Mode != ImportModeError && input.Mode != ImportModeSkip {
		return nil, errors.NewInvalidRequest("mode must be one of: error, skip")
	}
	if err := ValidatePath(input.Path, PathCheckRead, cfg, exportsDir); err != nil {
		return nil, err
	}

	file, err := openFileNoFollowRead(input.Path)
	if err != nil {
		if errors.Is(err, errors.ErrFileNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer file.Close()

	records, importErrors := parseExportFile(file)

	var ready []card.Card
	skipped := 0
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("import cancelled: %w", err))
		}
		if store.HasCard(r.card.ID) {
			skipped++
			importErrors = append(importErrors, ImportError{
				Line:    r.line,
				ID:      r.card.ID,
				Code:    "ID_COLLISION",
				Message: fmt.Sprintf("card %q is already on the board", r.card.ID),
			})
			continue
		}
		c, err := board.PrepareImport(r.card)
		if err != nil {
			importErrors = append(importErrors, ImportError{
				Line:    r.line,
				ID:      r.card.ID,
				Code:    string(errors.As(err).Code),
				Message: errors.As(err).Message,
			})
			continue
		}
		ready = append(ready, c)
	}

	if input.Mode == ImportModeError && len(importErrors) > 0 {
		return &ImportOutput{Errors: importErrors}, nil
	}

	if err := store.ImportCards(ctx, ready); err != nil {
		return nil, err
	}
	if importErrors == nil {
		importErrors = []ImportError{}
	}
	return &ImportOutput{
		Imported: len(ready),
		Skipped:  skipped,
		Errors:   importErrors,
	}, nil
}

// parseExportFile reads every card record, reporting lines that are not
// valid JSON or carry no ID. The header line is skipped.
func parseExportFile(r io.Reader) ([]record, []ImportError) {
	var records []record
	var parseErrors []ImportError
	seen := make(map[string]int)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var header ExportHeader
		if err := json.Unmarshal(line, &header); err == nil && header.WorkboardExport {
			continue
		}

		var c card.Card
		if err := json.Unmarshal(line, &c); err != nil {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "PARSE_ERROR",
				Message: fmt.Sprintf("invalid JSON: %v", err),
			})
			continue
		}
		if c.ID == "" {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				Code:    "INVALID_RECORD",
				Message: "missing id field",
			})
			continue
		}
		if first, ok := seen[c.ID]; ok {
			parseErrors = append(parseErrors, ImportError{
				Line:    lineNum,
				ID:      c.ID,
				Code:    "DUPLICATE_RECORD",
				Message: fmt.Sprintf("id already appears on line %d", first),
			})
			continue
		}
		seen[c.ID] = lineNum
		records = append(records, record{line: lineNum, card: c})
	}

	if err := scanner.Err(); err != nil {
		parseErrors = append(parseErrors, ImportError{
			Line:    lineNum,
			Code:    "READ_ERROR",
			Message: fmt.Sprintf("failed to read file: %v", err),
		})
	}
	return records, parseErrors
}
