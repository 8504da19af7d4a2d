// Package backup writes the board to a JSONL file and reads it back.
//
// The first line is a header object; every following line is one card:
//
//	{"_workboard_export":true,"schema_version":"1.0","exported_at":1792400000}
//	{"id":"01J...","title":"Cell Quiz","type":"Quiz","dueDate":"2026-10-23T00:00:00Z","subject":"AP Biology"}
package backup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/workboard/internal/board"
	"github.com/hpungsan/workboard/internal/config"
	"github.com/hpungsan/workboard/internal/errors"
)

// SchemaVersion is written in every export header.
const SchemaVersion = "1.0"

// ExportsDirName is the default backup directory under the base directory.
const ExportsDirName = "exports"

// ExportsDir returns the default backup directory for baseDir.
func ExportsDir(baseDir string) string {
	return filepath.Join(baseDir, ExportsDirName)
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	WorkboardExport bool   `json:"_workboard_export"`
	SchemaVersion   string `json:"schema_version"`
	ExportedAt      int64  `json:"exported_at"`
}

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: <exportsDir>/board-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Count      int    `json:"count"`
	ExportedAt int64  `json:"exported_at"`
}

// Export writes every card on the board to a JSONL file. The file is
// written to a temporary name and renamed into place, so an existing
// backup survives a failed export.
func Export(ctx context.Context, store *board.Store, cfg *config.Config, exportsDir string, input ExportInput) (*ExportOutput, error) {
	now := time.Now()
	exportedAt := now.Unix()

	exportPath := input.Path
	if exportPath == "" {
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("board-%s.jsonl", now.Format("2006-01-02T150405")))
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg, exportsDir); err != nil {
		return nil, err
	}

	if err := checkDestination(exportPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	if err := enc.Encode(ExportHeader{
		WorkboardExport: true,
		SchemaVersion:   SchemaVersion,
		ExportedAt:      exportedAt,
	}); err != nil {
		return nil, errors.NewInternal(err)
	}

	cards := store.Cards()
	for _, c := range cards {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(fmt.Errorf("export cancelled: %w", err))
		}
		c.IsNewCard = false
		if err := enc.Encode(c); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename replaces an existing destination, so check again just before it.
	if err := checkDestination(exportPath); err != nil {
		return nil, err
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Path:       exportPath,
		Count:      len(cards),
		ExportedAt: exportedAt,
	}, nil
}

// checkDestination rejects an export path that already exists. Existing
// backups are never overwritten.
func checkDestination(exportPath string) error {
	info, err := os.Lstat(exportPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to check export path: %w", err))
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("export path is a symlink")
	}
	return errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
}
