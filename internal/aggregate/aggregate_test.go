package aggregate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/classify"
)

func writeSummary(t *testing.T, folder string, rows ...[]any) {
	t.Helper()
	require.NoError(t, os.MkdirAll(folder, 0755))
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Number", "1.", "2.", "3.", "4.", "5.", "6."}))
	for n, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, n+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(folder, classify.SummaryFile)))
	require.NoError(t, f.Close())
}

func TestCombine(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "gpt4o_result", "gpt4o_result_temp_0_try1")
	b := filepath.Join(root, "gpt4o_result", "gpt4o_result_temp_0_5_try1")
	missing := filepath.Join(root, "Claude_result", "Claude_result_temp_1_try1")

	writeSummary(t, a, []any{1, "1. CT\n", "2. axial", "", "", "", ""}, []any{2, "x", "y"})
	writeSummary(t, b, []any{1, "1. MR", "2. T2WI"})

	dest := filepath.Join(root, "combined_sum.xlsx")
	report, err := Combine([]string{a, missing, b}, dest)
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt4o_result_temp_0_try1", "gpt4o_result_temp_0_5_try1"}, report.Sheets)
	require.Len(t, report.Missing, 1)

	f, err := excelize.OpenFile(dest)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, report.Sheets, f.GetSheetList())

	rows, err := f.GetRows("gpt4o_result_temp_0_try1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Number", "1.", "2.", "3.", "4.", "5.", "6."}, rows[0])
	assert.Equal(t, []string{"1", "1. CT\n", "2. axial"}, rows[1])

	typ, err := f.GetCellType("gpt4o_result_temp_0_try1", "A2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, typ, "numbers stay numbers")
	v, err := f.GetCellValue("gpt4o_result_temp_0_try1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestCombineNothingFound(t *testing.T) {
	root := t.TempDir()
	report, err := Combine([]string{filepath.Join(root, "a"), filepath.Join(root, "b")}, filepath.Join(root, "out.xlsx"))
	assert.ErrorIs(t, err, ErrNoInputs)
	assert.Len(t, report.Missing, 2)
	assert.NoFileExists(t, filepath.Join(root, "out.xlsx"))
}

func TestSheetName(t *testing.T) {
	taken := map[string]bool{}

	assert.Equal(t, "Claude_3.5_result_temp_0_try1", SheetName("Claude_3.5_result/Claude_3.5_result_temp_0_try1", taken))

	long := strings.Repeat("x", 40)
	first := SheetName("a/"+long, taken)
	assert.Len(t, first, MaxSheetName)
	second := SheetName("b/"+long, taken)
	assert.Len(t, second, MaxSheetName)
	assert.True(t, strings.HasSuffix(second, "~2"))
	assert.NotEqual(t, first, second)

	assert.Equal(t, "a_b", SheetName("root/a?b", taken))
}
