package timing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/model"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	tbl, err := Load(filepath.Join(t.TempDir(), "none.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}

func TestUpsertReplacesSameKey(t *testing.T) {
	tbl := New("unused.xlsx")
	tbl.Upsert(model.TimingRecord{Number: 1, Temperature: 0, Try: 1, Seconds: 3})
	tbl.Upsert(model.TimingRecord{Number: 2, Temperature: 0, Try: 1, Seconds: 4})
	tbl.Upsert(model.TimingRecord{Number: 1, Temperature: 0.5, Try: 1, Seconds: 5})
	tbl.Upsert(model.TimingRecord{Number: 1, Temperature: 0, Try: 1, Seconds: 9})

	require.Equal(t, 3, tbl.Len())
	rec, ok := tbl.Get(1, 0, 1)
	require.True(t, ok)
	assert.Equal(t, 9.0, rec.Seconds)
	assert.Equal(t, 1, tbl.Records()[0].Number, "replacement keeps the original position")
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpt4o_execution_times.xlsx")

	tbl := New(path)
	tbl.Upsert(model.TimingRecord{Number: 1, Temperature: 0.5, Try: 1, Seconds: 12.25})
	tbl.Upsert(model.TimingRecord{Number: 2, Temperature: 0.5, Try: 1, Seconds: 8})
	require.NoError(t, tbl.Save())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"number", "temperature", "try", "time"}, rows[0])

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, tbl.Records(), again.Records())

	again.Upsert(model.TimingRecord{Number: 2, Temperature: 0.5, Try: 1, Seconds: 20})
	require.NoError(t, again.Save())

	third, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, third.Len())
	rec, _ := third.Get(2, 0.5, 1)
	assert.Equal(t, 20.0, rec.Seconds)
}

func TestLoadSkipsMalformedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"number", "temperature", "try", "time"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{1, 0, 1, 2.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"x", 0, 1, 2.5}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{3, 1}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, model.TimingRecord{Number: 1, Temperature: 0, Try: 1, Seconds: 2.5}, tbl.Records()[0])
}
