/*
PURPOSE:
  High-level runner that orchestrates a batch.
  Loops through temperatures -> tries -> cases and asks the provider.

REQUIREMENTS:
  User-specified:
  - One output folder per (temperature, try).
  - Skip a case whose result file already exists, without looking inside.
  - One timing row per case, success or not.
  - Write the result file only on success.
  - Log every failure to the console and the append-only log file.

  Implementation-discovered:
  - Batches are long and get interrupted, so the timing table is saved
    after every case, not once at the end.
  - The case sheet is re-read for every run configuration so edits made
    between configurations are picked up.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine/client.go, internal/imaging, internal/timing,
    internal/dataset, internal/prompt, internal/output, internal/metrics

ERROR HANDLING:
  - Case-level failures are logged and the batch continues.
  - Quota exhaustion saves the timing table and returns ErrQuotaExceeded.
  - Context cancellation saves the timing table and returns ctx.Err().

IMPLEMENTATION RULES:
  - Strictly sequential.
  - A missing image skips the case without a timing row, so it is
    picked up again on the next run.

USAGE:
  summary, err := engine.Run(ctx, cfg, p)

SELF-HEALING INSTRUCTIONS:
  - If the folder layout changes, update ResultDir and model.RunConfig.FolderName.

RELATED FILES:
  - internal/engine/client.go
  - internal/timing/timing.go

MAINTENANCE:
  - Update iteration logic if parallelism is introduced.
*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/dataset"
	"github.com/daryltucker/medvision-runner/internal/imaging"
	"github.com/daryltucker/medvision-runner/internal/metrics"
	"github.com/daryltucker/medvision-runner/internal/model"
	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/prompt"
	"github.com/daryltucker/medvision-runner/internal/provider"
	"github.com/daryltucker/medvision-runner/internal/timing"
)

// Summary counts case outcomes.
type Summary struct {
	Done    int
	Skipped int
	Failed  int
	Missing int
}

func (s *Summary) add(o Summary) {
	s.Done += o.Done
	s.Skipped += o.Skipped
	s.Failed += o.Failed
	s.Missing += o.Missing
}

// Runner executes batches for one provider.
type Runner struct {
	Config    *config.Config
	Provider  provider.Provider
	Label     string
	RunID     string
	Requester *Requester
	Encoder   *imaging.Encoder
	Prompt    *prompt.Template
	Timing    *timing.Table
	Events    *output.EventLog
	Records   *output.JSONWriter
	Metrics   *metrics.Recorder

	// LoadCases is called once per run configuration.
	LoadCases func() ([]model.Case, error)
}

// ResultBase returns "<root>/<label>_result/<label>_result", the prefix of
// every result folder.
func ResultBase(root, label string) string {
	dir := label + "_result"
	return filepath.Join(root, dir, dir)
}

// ResultDir returns the folder for one run configuration.
func ResultDir(root, label string, rc model.RunConfig) string {
	return rc.FolderName(ResultBase(root, label))
}

// NewRunner wires a Runner with its files opened. Call Close when done.
func NewRunner(cfg *config.Config, p provider.Provider, rec *metrics.Recorder) (*Runner, error) {
	settings := cfg.ProviderSettings(p.Name())

	tmpl, err := prompt.LoadCase(cfg.PromptFile)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(ResultBase(cfg.ResultRoot, settings.Label)), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	table, err := timing.Load(filepath.Join(cfg.ResultRoot, cfg.TimingFile(settings.Label)))
	if err != nil {
		return nil, err
	}

	events, err := output.OpenEventLog(filepath.Join(cfg.ResultRoot, cfg.LogFile(settings.Label)))
	if err != nil {
		return nil, err
	}

	recordsPath := filepath.Join(filepath.Dir(ResultBase(cfg.ResultRoot, settings.Label)), "runs.jsonl")
	records, err := output.NewJSONWriter(recordsPath)
	if err != nil {
		events.Close()
		return nil, fmt.Errorf("failed to init JSON writer at %s: %w", recordsPath, err)
	}

	return &Runner{
		Config:    cfg,
		Provider:  p,
		Label:     settings.Label,
		RunID:     uuid.NewString(),
		Requester: NewRequester(cfg, settings.MaxTokens, &Stats{}, rec),
		Encoder:   imaging.NewEncoder(cfg.MaxImageBytes, cfg.EncodeAttempts),
		Prompt:    tmpl,
		Timing:    table,
		Events:    events,
		Records:   records,
		Metrics:   rec,
		LoadCases: func() ([]model.Case, error) {
			return dataset.LoadCases(cfg.InputFile, cfg.InputSheet, cfg.IDColumn)
		},
	}, nil
}

// Close releases the event log and the record file.
func (r *Runner) Close() error {
	var errs []error
	if r.Records != nil {
		errs = append(errs, r.Records.Close())
	}
	errs = append(errs, r.Events.Close())
	return errors.Join(errs...)
}

// Run executes every configured (temperature, try) pass.
func Run(ctx context.Context, cfg *config.Config, p provider.Provider) (Summary, error) {
	rec := metrics.New()
	r, err := NewRunner(cfg, p, rec)
	if err != nil {
		return Summary{}, err
	}
	defer r.Close()

	output.Logger.Info("Starting run", "run_id", r.RunID, "provider", p.Name(), "model", p.Model(), "label", r.Label)
	summary, runErr := r.Run(ctx)

	if err := rec.WriteFile(cfg.MetricsFile); err != nil {
		output.Logger.Error("Failed to write metrics file", "path", cfg.MetricsFile, "error", err)
	}
	return summary, runErr
}

// Run loops temperatures -> tries -> cases.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var total Summary
	for _, temperature := range r.Config.Temperatures {
		for try := 1; try <= r.Config.Tries; try++ {
			rc := model.RunConfig{Temperature: temperature, Try: try}
			s, err := r.RunConfig(ctx, rc)
			total.add(s)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// RunConfig processes every case for one run configuration.
func (r *Runner) RunConfig(ctx context.Context, rc model.RunConfig) (Summary, error) {
	var s Summary

	dir := ResultDir(r.Config.ResultRoot, r.Label, rc)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return s, fmt.Errorf("failed to create result folder %s: %w", dir, err)
	}

	cases, err := r.LoadCases()
	if err != nil {
		return s, err
	}
	output.Logger.Info("Running configuration", "config", rc.String(), "cases", len(cases), "folder", dir)

	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return s, r.stop(err)
		}

		status, err := r.runCase(ctx, rc, dir, c)
		switch status {
		case model.StatusDone:
			s.Done++
		case model.StatusSkipped:
			s.Skipped++
		case model.StatusMissing:
			s.Missing++
		default:
			s.Failed++
		}
		if err != nil {
			return s, r.stop(err)
		}
	}

	output.Logger.Info("Configuration complete", "config", rc.String(),
		"done", s.Done, "skipped", s.Skipped, "failed", s.Failed, "missing_image", s.Missing)
	return s, nil
}

// stop persists the timing table before a run-ending error propagates.
func (r *Runner) stop(cause error) error {
	if err := r.Timing.Save(); err != nil {
		output.Logger.Error("Failed to save timing table", "path", r.Timing.Path(), "error", err)
	}
	return cause
}

func (r *Runner) runCase(ctx context.Context, rc model.RunConfig, dir string, c model.Case) (string, error) {
	tag := fmt.Sprintf("Case %d (%s)", c.Number, rc)
	resultPath := filepath.Join(dir, c.ResultName(r.Config.ImageExt))
	record := model.RunRecord{
		RunID:       r.RunID,
		Provider:    r.Provider.Name(),
		Model:       r.Provider.Model(),
		CaseNumber:  c.Number,
		CaseID:      c.ID,
		Temperature: rc.Temperature,
		Try:         rc.Try,
		Timestamp:   time.Now(),
	}

	if _, err := os.Stat(resultPath); err == nil {
		output.Logger.Info(tag+": skip", "file", resultPath)
		record.Status = model.StatusSkipped
		r.finish(record)
		return record.Status, nil
	}

	text, err := r.Prompt.Render(c)
	if err != nil {
		r.Events.Record(tag+": prompt failed", "error", err)
		record.Status, record.Error = model.StatusFailed, err.Error()
		r.finish(record)
		return record.Status, nil
	}

	imagePath := filepath.Join(r.Config.ImageDir, c.ImageName(r.Config.ImageExt))
	images, err := imaging.LoadAll([]string{imagePath}, r.Config.MinImageSide, r.Encoder, r.Config.ShrinkRatio)
	if err != nil {
		r.Events.Record(tag+": image unavailable", "image", imagePath, "error", err)
		record.Status, record.Error = model.StatusMissing, err.Error()
		r.finish(record)
		return record.Status, nil
	}
	record.Images = len(images)
	output.Logger.Debug(tag+": images loaded", "requested", 1, "kept", len(images))

	ans, ok, err := r.Requester.Ask(ctx, r.Provider, text, images, rc.Temperature)
	record.Attempts = ans.Attempts
	record.Duration = ans.Total
	if err != nil {
		record.Status, record.Error = model.StatusFailed, err.Error()
		r.finish(record)
		if errors.Is(err, provider.ErrQuotaExceeded) {
			r.Events.Record(tag+": quota exceeded, stopping", "error", err)
		}
		return record.Status, err
	}

	r.Timing.Upsert(model.TimingRecord{
		Number:      c.Number,
		Temperature: rc.Temperature,
		Try:         rc.Try,
		Seconds:     ans.Total.Seconds(),
	})

	if ok {
		if err := os.WriteFile(resultPath, []byte(ans.Text), 0644); err != nil {
			r.Events.Record(tag+": failed to write result", "file", resultPath, "error", err)
			record.Status, record.Error = model.StatusFailed, err.Error()
		} else {
			output.Logger.Info(tag+": Results saved.", "file", resultPath, "attempts", ans.Attempts)
			record.Status, record.ResultFile = model.StatusDone, resultPath
		}
	} else {
		r.Events.Record(tag+": No results found.", "attempts", ans.Attempts, "last_reason", ans.LastReason)
		record.Status, record.Error = model.StatusFailed, "attempts exhausted"
	}

	if err := r.Timing.Save(); err != nil {
		output.Logger.Error("Failed to save timing table", "path", r.Timing.Path(), "error", err)
	}
	r.finish(record)
	return record.Status, nil
}

func (r *Runner) finish(record model.RunRecord) {
	r.Metrics.Case(record.Provider, record.Status)
	if r.Records == nil {
		return
	}
	if err := r.Records.Write(record); err != nil {
		output.Logger.Error("Failed to write run record", "case", strconv.Itoa(record.CaseNumber), "error", err)
	}
}
