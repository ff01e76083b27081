/*
PURPOSE:
  Writes tabular rows to an .xlsx workbook (single sheet).
  Used for the per-folder sum.xlsx summaries.

REQUIREMENTS:
  User-specified:
  - Output to Excel, one row per case, fixed header.

  Implementation-discovered:
  - xlsx is a zip container, so rows are buffered and the file is
    written once on Close (unlike CSV, which flushed per row).
  - Existing file is overwritten (summaries are regenerated from the result files).

ARCHITECTURE INTEGRATION:
  - Called by: internal/classify
  - Dependencies: github.com/xuri/excelize/v2

ERROR HANDLING:
  - Returns error on write or save failure.
  - Callers that fail part way call Abort, which leaves any existing file intact.

IMPLEMENTATION RULES:
  - Header is always row 1.
  - Use Mutex; callers may share a writer.

USAGE:
  w := output.NewSheetWriter("sum.xlsx", []any{"Number", "1.", ...})
  w.Write([]any{1, "a", ...})
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If the summary format changes, update the header passed by the caller.

RELATED FILES:
  - internal/classify/folder.go

MAINTENANCE:
  - None.
*/

package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name excelize creates for new workbooks.
const DefaultSheet = "Sheet1"

// SheetWriter handles writing rows to an xlsx file.
type SheetWriter struct {
	path string
	file *excelize.File
	row  int
	mu   sync.Mutex
}

// NewSheetWriter creates a new SheetWriter with header as its first row.
func NewSheetWriter(path string, header []any) (*SheetWriter, error) {
	sw := &SheetWriter{
		path: path,
		file: excelize.NewFile(),
	}
	if err := sw.Write(header); err != nil {
		sw.file.Close()
		return nil, err
	}
	return sw, nil
}

// Write appends a single row.
func (sw *SheetWriter) Write(row []any) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.row++
	cell, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		return err
	}
	if err := sw.file.SetSheetRow(DefaultSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", sw.row, err)
	}
	return nil
}

// Rows returns the number of rows written, header included.
func (sw *SheetWriter) Rows() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.row
}

// Close saves the workbook to disk. The file is written next to the target
// and renamed over it, so an existing workbook is only replaced by a complete one.
func (sw *SheetWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	defer sw.file.Close()

	tmp, err := os.CreateTemp(filepath.Dir(sw.path), ".sheet-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", sw.path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", sw.path, err)
	}
	if _, err := sw.file.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", sw.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", sw.path, err)
	}
	if err := os.Rename(tmp.Name(), sw.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to save %s: %w", sw.path, err)
	}
	return nil
}

// Abort discards the buffered rows without touching the file on disk.
func (sw *SheetWriter) Abort() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.file.Close()
}
