/*
PURPOSE:
  Merges per-folder sum.xlsx workbooks into one workbook with a sheet per folder.

REQUIREMENTS:
  User-specified:
  - Sheet name is the folder's last path segment.
  - Cell content is copied as is.
  - Missing inputs are warned about, not fatal.

  Implementation-discovered:
  - Excel limits sheet names to 31 characters and forbids []:*?/\ in them.
  - Long folder names collide after truncation, so names are deduplicated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli/aggregate.go, internal/cli/classify.go (--combine)
  - Dependencies: github.com/xuri/excelize/v2

ERROR HANDLING:
  - ErrNoInputs when no folder had a summary; nothing is written.

IMPLEMENTATION RULES:
  - Inputs are read with raw values so numbers stay numbers.

USAGE:
  report, err := aggregate.Combine(folders, "combined_sum.xlsx")

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/classify/folder.go

MAINTENANCE:
  - None.
*/

package aggregate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/classify"
	"github.com/daryltucker/medvision-runner/internal/output"
)

// MaxSheetName is Excel's sheet name length limit.
const MaxSheetName = 31

// ErrNoInputs means none of the folders had a summary workbook.
var ErrNoInputs = errors.New("no summary workbooks found")

// Report describes a Combine call.
type Report struct {
	Dest    string
	Sheets  []string
	Missing []string
}

// SheetName derives a valid, unique sheet name from a folder path.
func SheetName(folder string, taken map[string]bool) string {
	base := filepath.Base(filepath.Clean(filepath.ToSlash(folder)))
	base = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, base)
	base = truncate(base, MaxSheetName)

	name := base
	for n := 2; taken[strings.ToLower(name)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		name = truncate(base, MaxSheetName-len(suffix)) + suffix
	}
	taken[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// Combine copies the first sheet of <folder>/sum.xlsx for every folder into
// dest. Folders without a summary are skipped with a warning.
func Combine(folders []string, dest string) (Report, error) {
	report := Report{Dest: dest}
	out := excelize.NewFile()
	defer out.Close()

	taken := map[string]bool{}
	for _, folder := range folders {
		src := filepath.Join(folder, classify.SummaryFile)
		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			output.Logger.Warn("File not found", "file", src)
			report.Missing = append(report.Missing, src)
			continue
		}

		name := SheetName(folder, taken)
		if len(report.Sheets) == 0 {
			if err := out.SetSheetName(output.DefaultSheet, name); err != nil {
				return report, err
			}
		} else if _, err := out.NewSheet(name); err != nil {
			return report, fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := copySheet(src, out, name); err != nil {
			return report, err
		}
		report.Sheets = append(report.Sheets, name)
	}

	if len(report.Sheets) == 0 {
		return report, ErrNoInputs
	}
	if err := out.SaveAs(dest); err != nil {
		return report, fmt.Errorf("failed to save %s: %w", dest, err)
	}
	output.Logger.Info("Combined Excel file saved", "file", dest, "sheets", len(report.Sheets))
	return report, nil
}

func copySheet(src string, dst *excelize.File, sheet string) error {
	in, err := excelize.OpenFile(src, excelize.Options{RawCellValue: true})
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	from := in.GetSheetName(0)
	rows, err := in.GetRows(from)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}

	for r, row := range rows {
		for c, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			typ, err := in.GetCellType(from, cell)
			if err != nil {
				return err
			}
			if err := dst.SetCellValue(sheet, cell, typed(typ, value)); err != nil {
				return fmt.Errorf("failed to copy %s!%s: %w", src, cell, err)
			}
		}
	}
	return nil
}

// typed restores a cell's Go type from its raw value.
func typed(typ excelize.CellType, value string) any {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return value
	case excelize.CellTypeBool:
		return value == "1" || strings.EqualFold(value, "true")
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
