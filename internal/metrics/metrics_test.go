package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Attempt("openai", "accept")
	r.Attempt("openai", "retry")
	r.Attempt("openai", "retry")
	r.Reencode("gemini", "safety")
	r.Case("openai", "done")
	r.RequestDuration("openai", 3*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("openai", "retry")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.attemptsTotal.WithLabelValues("openai", "accept")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.reencodeTotal.WithLabelValues("gemini", "safety")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.casesTotal.WithLabelValues("openai", "done")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.requestDuration))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Attempt("openai", "accept")
		r.Case("openai", "done")
		r.Reencode("openai", "refusal")
		r.RequestDuration("openai", time.Second)
	})
	assert.NoError(t, r.WriteFile("ignored.prom"))
}

func TestWriteFile(t *testing.T) {
	r := New()
	r.Case("anthropic", "failed")

	path := filepath.Join(t.TempDir(), "run.prom")
	require.NoError(t, r.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `medvision_cases_total{provider="anthropic",status="failed"} 1`)
}
