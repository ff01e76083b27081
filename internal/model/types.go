/*
PURPOSE:
  Defines the core data structures used throughout MedVision Runner.
  These models represent input cases, run configurations, timing rows,
  classified sections and per-case run records.

REQUIREMENTS:
  User-specified:
  - A case is one spreadsheet row: identifier, age, sex, symptom, image.
  - A run configuration is a (temperature, try) pair.
  - Record elapsed seconds per (case, temperature, try).
  - Six canonical answer sections per result file.

  Implementation-discovered:
  - Need JSON tags for the JSONL run records.
  - Result folder naming must match the existing result folders
    (<provider>_result_temp_0_5_try1).

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/classify, internal/timing, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Keep structs simple and public.
  - Use time.Time and time.Duration for high precision.

USAGE:
  rc := model.RunConfig{Temperature: 0.5, Try: 1}
  dir := rc.FolderName("gpt4o")

SELF-HEALING INSTRUCTIONS:
  - If new per-case metrics are needed, add a field to RunRecord.

RELATED FILES:
  - internal/output/json.go
  - internal/timing/timing.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SectionCount is the number of canonical answer sections.
const SectionCount = 6

// Case is one row of the input spreadsheet.
type Case struct {
	Number  int    `json:"number"` // 1-based row position, used as the timing key
	ID      string `json:"id"`     // value of the `no.` / `random_rank` column
	Age     string `json:"age"`
	Sex     string `json:"sex"`
	Symptom string `json:"symptom"`
}

// ImageName returns the source image file name for the case, e.g. "17.png".
func (c Case) ImageName(ext string) string {
	return c.ID + ext
}

// ResultName returns the result file name for the case, e.g. "17.png.txt".
func (c Case) ResultName(ext string) string {
	return c.ImageName(ext) + ".txt"
}

// RunConfig is one full pass over all cases.
type RunConfig struct {
	Temperature float64 `json:"temperature"`
	Try         int     `json:"try"`
}

// TemperatureLabel formats the temperature the way folder names expect:
// 0 -> "0", 0.5 -> "0_5", 1 -> "1".
func (rc RunConfig) TemperatureLabel() string {
	return strings.ReplaceAll(strconv.FormatFloat(rc.Temperature, 'f', -1, 64), ".", "_")
}

// FolderName returns "<base>_temp_<T>_try<N>".
func (rc RunConfig) FolderName(base string) string {
	return fmt.Sprintf("%s_temp_%s_try%d", base, rc.TemperatureLabel(), rc.Try)
}

func (rc RunConfig) String() string {
	return fmt.Sprintf("Temperature: %s, Try: %d", strconv.FormatFloat(rc.Temperature, 'f', -1, 64), rc.Try)
}

// TimingRecord is one row of the execution-time table.
type TimingRecord struct {
	Number      int     `json:"number"`
	Temperature float64 `json:"temperature"`
	Try         int     `json:"try"`
	Seconds     float64 `json:"time"`
}

// Sections holds the six classified answer fields, index 0 is section "1".
type Sections [SectionCount]string

// Empty returns the 1-based numbers of sections that are blank.
func (s Sections) Empty() []int {
	var out []int
	for i, v := range s {
		if strings.TrimSpace(v) == "" {
			out = append(out, i+1)
		}
	}
	return out
}

// Case status values used in run records and metrics.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	// StatusMissing means the case image could not be loaded; no timing row is written.
	StatusMissing = "missing_image"
)

// RunRecord represents the outcome of a single case within a run configuration.
type RunRecord struct {
	RunID       string        `json:"run_id"`
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	CaseNumber  int           `json:"case_number"`
	CaseID      string        `json:"case_id"`
	Temperature float64       `json:"temperature"`
	Try         int           `json:"try"`
	Timestamp   time.Time     `json:"timestamp"`
	Duration    time.Duration `json:"duration"`
	Attempts    int           `json:"attempts"`
	Images      int           `json:"images"`
	Status      string        `json:"status"`
	ResultFile  string        `json:"result_file,omitempty"`
	Error       string        `json:"error,omitempty"` // If the case failed
}
