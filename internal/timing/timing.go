/*
PURPOSE:
  Keeps the per-provider execution-time workbook: one row per
  (case number, temperature, try), rewritten in full on every Save.

REQUIREMENTS:
  User-specified:
  - Resume from an existing table.
  - Re-running a case replaces its row instead of adding one.

  Implementation-discovered:
  - Saved after every case so an interrupted run loses nothing.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Dependencies: github.com/xuri/excelize/v2, internal/output.SheetWriter

ERROR HANDLING:
  - Missing file means an empty table.
  - Malformed rows are logged and dropped.

IMPLEMENTATION RULES:
  - Replacement keeps the row's position.

USAGE:
  t, err := timing.Load("gpt4o_execution_times.xlsx")
  t.Upsert(rec)
  t.Save()

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - None.
*/

package timing

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/model"
	"github.com/daryltucker/medvision-runner/internal/output"
)

// Header is the first row of the workbook.
var Header = []any{"number", "temperature", "try", "time"}

type key struct {
	number      int
	temperature float64
	try         int
}

// Table is an ordered set of timing records keyed by (number, temperature, try).
type Table struct {
	path    string
	records []model.TimingRecord
	index   map[key]int
}

// New returns an empty table that saves to path.
func New(path string) *Table {
	return &Table{path: path, index: make(map[key]int)}
}

// Load reads path. A missing file yields an empty table.
// Rows that do not parse are dropped with a warning.
func Load(path string) (*Table, error) {
	t := New(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	f, err := excelize.OpenFile(path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open timing table %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read timing table %s: %w", path, err)
	}

	for n, row := range rows {
		if n == 0 {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			output.Logger.Warn("Skipping malformed timing row", "file", path, "row", n+1, "err", err)
			continue
		}
		t.Upsert(rec)
	}
	return t, nil
}

func parseRow(row []string) (model.TimingRecord, error) {
	if len(row) < 4 {
		return model.TimingRecord{}, fmt.Errorf("expected 4 columns, got %d", len(row))
	}
	number, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return model.TimingRecord{}, fmt.Errorf("number: %w", err)
	}
	temperature, err := strconv.ParseFloat(strings.TrimSpace(row[1]), 64)
	if err != nil {
		return model.TimingRecord{}, fmt.Errorf("temperature: %w", err)
	}
	try, err := strconv.Atoi(strings.TrimSpace(row[2]))
	if err != nil {
		return model.TimingRecord{}, fmt.Errorf("try: %w", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return model.TimingRecord{}, fmt.Errorf("time: %w", err)
	}
	return model.TimingRecord{Number: number, Temperature: temperature, Try: try, Seconds: seconds}, nil
}

// Upsert inserts rec, or replaces the row with the same key in place.
func (t *Table) Upsert(rec model.TimingRecord) {
	k := key{rec.Number, rec.Temperature, rec.Try}
	if i, ok := t.index[k]; ok {
		t.records[i] = rec
		return
	}
	t.index[k] = len(t.records)
	t.records = append(t.records, rec)
}

// Get returns the record for a key.
func (t *Table) Get(number int, temperature float64, try int) (model.TimingRecord, bool) {
	i, ok := t.index[key{number, temperature, try}]
	if !ok {
		return model.TimingRecord{}, false
	}
	return t.records[i], true
}

// Records returns a copy of all records in insertion order.
func (t *Table) Records() []model.TimingRecord {
	out := make([]model.TimingRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.records) }

// Path returns the file the table saves to.
func (t *Table) Path() string { return t.path }

// Save rewrites the workbook.
func (t *Table) Save() error {
	sw, err := output.NewSheetWriter(t.path, Header)
	if err != nil {
		return err
	}
	for _, r := range t.records {
		if err := sw.Write([]any{r.Number, r.Temperature, r.Try, r.Seconds}); err != nil {
			sw.Abort()
			return err
		}
	}
	return sw.Close()
}
