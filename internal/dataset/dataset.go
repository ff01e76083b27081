/*
PURPOSE:
  Reads the input case workbook.

REQUIREMENTS:
  User-specified:
  - Id column is `no.` or `random_rank`; age, sex and symptom feed the prompt.

  Implementation-discovered:
  - Header names vary in case and spacing between workbooks.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go, internal/cli/classify.go

ERROR HANDLING:
  - Missing sheet or id column is an error.

IMPLEMENTATION RULES:
  - Case number is the data row position, so skipped rows keep numbering stable.

USAGE:
  cases, err := dataset.LoadCases("Radiographics_text_q401_final.xlsx", "", "")

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - None.
*/

package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/model"
	"github.com/daryltucker/medvision-runner/internal/output"
)

// DefaultIDColumns are tried in order when no id column is configured.
var DefaultIDColumns = []string{"no.", "random_rank"}

// LoadCases reads every data row of sheet (the first sheet when empty).
// Row N of the data (1-based, header excluded) becomes case number N, so
// numbering stays stable even when rows with an empty id are skipped.
func LoadCases(path, sheet, idColumn string) ([]model.Case, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open case workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q of %s is empty", sheet, path)
	}

	cols := columnIndex(rows[0])
	idCol, err := pickIDColumn(cols, idColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var cases []model.Case
	for n, row := range rows[1:] {
		c := model.Case{
			Number:  n + 1,
			ID:      cell(row, idCol),
			Age:     cell(row, cols["age"]),
			Sex:     cell(row, cols["sex"]),
			Symptom: cell(row, cols["symptom"]),
		}
		if c.ID == "" {
			output.Logger.Debug("Skipping row without id", "file", path, "case", c.Number)
			continue
		}
		cases = append(cases, c)
	}
	return cases, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, want := range []string{"age", "sex", "symptom"} {
		if _, ok := cols[want]; !ok {
			cols[want] = -1
		}
	}
	return cols
}

func pickIDColumn(cols map[string]int, configured string) (int, error) {
	candidates := DefaultIDColumns
	if configured != "" {
		candidates = []string{configured}
	}
	for _, c := range candidates {
		if i, ok := cols[strings.ToLower(c)]; ok {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no id column found (looked for %v)", candidates)
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
