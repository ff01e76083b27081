package output

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"

	"github.com/daryltucker/medvision-runner/internal/model"
)

func TestEventLogAppends(t *testing.T) {
	var console bytes.Buffer
	prev := Logger
	SetLogger(slog.New(slog.NewTextHandler(&console, nil)))
	t.Cleanup(func() { SetLogger(prev) })

	path := filepath.Join(t.TempDir(), "process_log_gpt4o.txt")
	for i := 0; i < 2; i++ {
		ev, err := OpenEventLog(path)
		require.NoError(t, err)
		ev.Record("Case 3 (Temperature: 0, Try: 1): No results found.")
		require.NoError(t, ev.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("No results found.")))
	assert.Contains(t, console.String(), "No results found.")
}

func TestNilEventLog(t *testing.T) {
	var ev *EventLog
	ev.Record("dropped")
	assert.NoError(t, ev.Close())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("loud"))
}

func TestSheetWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.xlsx")
	sw, err := NewSheetWriter(path, []any{"Number", "1."})
	require.NoError(t, err)
	require.NoError(t, sw.Write([]any{7, "finding"}))
	assert.Equal(t, 2, sw.Rows())
	require.NoError(t, sw.Close())

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(DefaultSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Number", "1."}, {"7", "finding"}}, rows)
}

func TestJSONWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.jsonl")
	for _, status := range []string{model.StatusDone, model.StatusSkipped} {
		jw, err := NewJSONWriter(path)
		require.NoError(t, err)
		require.NoError(t, jw.Write(model.RunRecord{RunID: "r1", CaseID: "17", Status: status}))
		require.NoError(t, jw.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "done", gjson.GetBytes(lines[0], "status").String())
	assert.Equal(t, "skipped", gjson.GetBytes(lines[1], "status").String())
	assert.Equal(t, "17", gjson.GetBytes(lines[1], "case_id").String())
}

func TestSheetWriterAbortKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.xlsx")
	sw, err := NewSheetWriter(path, []any{"Number"})
	require.NoError(t, err)
	require.NoError(t, sw.Write([]any{1}))
	require.NoError(t, sw.Close())
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	partial, err := NewSheetWriter(path, []any{"Number"})
	require.NoError(t, err)
	partial.Abort()

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}
