/*
PURPOSE:
  Writes per-case run records to a JSON Lines file (NDJSON).
  Gives a machine-readable trail of every case outcome next to the result folders.

REQUIREMENTS:
  User-specified:
  - Record what happened to every case (done, skipped, failed).

  Implementation-discovered:
  - JSON Lines is append-friendly, which matters because runs are resumed.
  - The file must be opened in append mode, not truncated.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Consumes: internal/model.RunRecord

ERROR HANDLING:
  - Returns error on file creation or write failure.

IMPLEMENTATION RULES:
  - Use sonic's encoder (same codec as the HTTP providers).
  - Thread-safe.

USAGE:
  w, err := output.NewJSONWriter("gpt4o_result/runs.jsonl")
  w.Write(record)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - None specific.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if the record schema changes.
*/

package output

import (
	"os"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/daryltucker/medvision-runner/internal/model"
)

// JSONWriter handles writing run records to a JSON Lines file.
type JSONWriter struct {
	file    *os.File
	encoder sonic.Encoder
	mu      sync.Mutex
}

// NewJSONWriter opens path for appending, creating it if needed.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{
		file:    f,
		encoder: sonic.ConfigDefault.NewEncoder(f),
	}, nil
}

// Write writes a single record as a JSON line.
func (jw *JSONWriter) Write(r model.RunRecord) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	return jw.encoder.Encode(r)
}

// Close closes the underlying file.
func (jw *JSONWriter) Close() error {
	return jw.file.Close()
}
