/*
PURPOSE:
  Classifies every answer file of a result folder and writes sum.xlsx.
  Collects files with empty sections for the problem report.

REQUIREMENTS:
  User-specified:
  - One row per case: id then sections 1 to 6.
  - Missing files are warned about and skipped.
  - Report files with empty sections per folder.

  Implementation-discovered:
  - Numeric ids are stored as numbers so the sheet sorts naturally.
  - An interrupted run must not replace a complete sum.xlsx.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/classify.go
  - Uses: internal/output.SheetWriter

ERROR HANDLING:
  - Classifier errors are logged; the row is written with what was returned.
  - Read, write or cancel errors abort the writer and return.

IMPLEMENTATION RULES:
  - Files are processed in id order.

USAGE:
  report, err := classify.ProcessFolder(ctx, folder, ids, ".png", classify.Heuristic{})

SELF-HEALING INSTRUCTIONS:
  - If the aggregator finds no sheets, check SummaryFile matches.

RELATED FILES:
  - internal/aggregate/aggregate.go

MAINTENANCE:
  - Update Header if the section count changes.
*/

package classify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/daryltucker/medvision-runner/internal/model"
	"github.com/daryltucker/medvision-runner/internal/output"
)

// SummaryFile is the per-folder workbook name.
const SummaryFile = "sum.xlsx"

// Header is the first row of a summary workbook.
var Header = []any{"Number", "1.", "2.", "3.", "4.", "5.", "6."}

// Status is the outcome of classifying one file.
type Status string

const (
	StatusOK         Status = "ok"
	StatusUnparsable Status = "unparsable"
	StatusFailed     Status = "failed"
)

// Classifier turns one answer into six sections.
type Classifier interface {
	Name() string
	Classify(ctx context.Context, content string) (model.Sections, Status, error)
}

// Problem is a file with at least one empty section.
type Problem struct {
	File   string
	Empty  []int
	Status Status
}

// FolderReport describes one processed folder.
type FolderReport struct {
	Folder    string
	Summary   string
	Processed int
	Missing   int
	Problems  []Problem
}

// ProcessFolder classifies "<id><ext>.txt" for every id, in order, and saves
// the rows to sum.xlsx in folder. Missing files are skipped with a warning.
func ProcessFolder(ctx context.Context, folder string, ids []string, ext string, c Classifier) (FolderReport, error) {
	report := FolderReport{Folder: folder, Summary: filepath.Join(folder, SummaryFile)}

	sw, err := output.NewSheetWriter(report.Summary, Header)
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			sw.Abort()
			return report, err
		}

		name := id + ext + ".txt"
		path := filepath.Join(folder, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			output.Logger.Warn("File not found", "file", path)
			report.Missing++
			continue
		}
		if err != nil {
			sw.Abort()
			return report, fmt.Errorf("failed to read %s: %w", path, err)
		}

		sections, status, err := c.Classify(ctx, string(data))
		if err != nil {
			output.Logger.Error("Classification failed", "file", path, "status", status, "error", err)
		}
		preview(path, sections)

		if err := sw.Write(row(id, sections)); err != nil {
			sw.Abort()
			return report, err
		}
		report.Processed++

		if empty := sections.Empty(); len(empty) > 0 {
			report.Problems = append(report.Problems, Problem{File: name, Empty: empty, Status: status})
		}
	}

	if err := sw.Close(); err != nil {
		return report, err
	}
	output.Logger.Info("Excel file saved", "file", report.Summary, "rows", report.Processed, "missing", report.Missing)
	return report, nil
}

// row keeps numeric ids numeric so the sheet sorts naturally.
func row(id string, s model.Sections) []any {
	out := make([]any, 0, model.SectionCount+1)
	if n, err := strconv.Atoi(id); err == nil {
		out = append(out, n)
	} else {
		out = append(out, id)
	}
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

func preview(path string, s model.Sections) {
	for i, v := range s {
		if r := []rune(v); len(r) > 100 {
			v = string(r[:100]) + "..."
		}
		output.Logger.Debug("Section", "file", path, "section", i+1, "text", v)
	}
}

// FormatProblems renders the problematic-files report for every folder.
func FormatProblems(reports []FolderReport) string {
	var sb strings.Builder
	for _, r := range reports {
		if len(r.Problems) == 0 {
			continue
		}
		if sb.Len() == 0 {
			sb.WriteString("Files with classification issues:\n")
		}
		fmt.Fprintf(&sb, "\n%s:\n", r.Folder)
		for _, p := range r.Problems {
			items := make([]string, len(p.Empty))
			for i, n := range p.Empty {
				items[i] = strconv.Itoa(n)
			}
			fmt.Fprintf(&sb, "  File %s: Items %s are empty.", p.File, strings.Join(items, ", "))
			if p.Status != StatusOK && p.Status != "" {
				fmt.Fprintf(&sb, " (%s)", p.Status)
			}
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "All files classified successfully.\n"
	}
	return sb.String()
}
