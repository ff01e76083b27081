/*
PURPOSE:
  The bounded request loop shared by every provider.
  One call = up to MaxAttempts sends, each classified by the provider.

REQUIREMENTS:
  User-specified:
  - States: Sending -> Accepted | SoftFailure | HardError, then retry,
    Exhausted or Done.
  - SoftFailure re-encodes the images smaller and retries with the same
    prompt and temperature.
  - HardError retries with inputs unchanged.
  - Quota exhaustion stops the whole run.
  - Exhausted returns an empty result, never an error.
  - Done records latency into running statistics and reports them.

  Implementation-discovered:
  - A failed re-encode must not lose the last good payload.
  - Context cancellation is the only other way out with an error.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/runner.go
  - Uses: internal/provider, internal/imaging, internal/metrics, internal/output

ERROR HANDLING:
  - Fatal verdicts return provider.ErrQuotaExceeded (wrapped).
  - Every other failure is logged and absorbed by the loop.

IMPLEMENTATION RULES:
  - Strictly sequential; no goroutines.
  - Stats are owned by the caller, never global.

USAGE:
  rq := engine.NewRequester(cfg, 1024, stats, rec)
  ans, ok, err := rq.Ask(ctx, p, prompt, images, 0.5)

SELF-HEALING INSTRUCTIONS:
  - New failure kinds belong in a provider's Rules table, not here.

RELATED FILES:
  - internal/provider/provider.go
  - internal/engine/stats.go

MAINTENANCE:
  - Keep the attempt ceiling configurable (max_attempts).
*/

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/daryltucker/medvision-runner/internal/config"
	"github.com/daryltucker/medvision-runner/internal/imaging"
	"github.com/daryltucker/medvision-runner/internal/metrics"
	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/provider"
)

// Answer is the outcome of one Ask.
type Answer struct {
	Text string
	// Elapsed is the latency of the accepted attempt.
	Elapsed time.Duration
	// Total is the wall-clock time of the whole call, retries included.
	Total     time.Duration
	Attempts  int
	Reencodes int
	// LastReason is the reason of the last rejected attempt.
	LastReason string
}

// Requester runs the retry loop.
type Requester struct {
	MaxAttempts int
	RetryDelay  time.Duration
	MaxTokens   int

	Stats   *Stats
	Metrics *metrics.Recorder
}

// NewRequester creates a Requester from configuration.
func NewRequester(cfg *config.Config, maxTokens int, stats *Stats, rec *metrics.Recorder) *Requester {
	if stats == nil {
		stats = &Stats{}
	}
	return &Requester{
		MaxAttempts: cfg.MaxAttempts,
		RetryDelay:  cfg.RetryDelay,
		MaxTokens:   maxTokens,
		Stats:       stats,
		Metrics:     rec,
	}
}

// Ask sends prompt and images to p until a reply is accepted or the attempt
// ceiling is reached. ok is false when attempts were exhausted.
func (r *Requester) Ask(ctx context.Context, p provider.Provider, prompt string, images []*imaging.Image, temperature float64) (ans Answer, ok bool, err error) {
	callStart := time.Now()
	defer func() { ans.Total = time.Since(callStart) }()

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return ans, false, cerr
		}
		if attempt > 1 && r.RetryDelay > 0 {
			if werr := wait(ctx, r.RetryDelay); werr != nil {
				return ans, false, werr
			}
		}
		ans.Attempts = attempt

		start := time.Now()
		text, sendErr := p.Send(ctx, provider.Request{
			Prompt:      prompt,
			Images:      imaging.Payloads(images),
			Temperature: temperature,
			MaxTokens:   r.MaxTokens,
		})
		elapsed := time.Since(start)
		if sendErr != nil && ctx.Err() != nil {
			return ans, false, ctx.Err()
		}

		v := p.Classify(text, sendErr)
		r.Metrics.Attempt(p.Name(), v.Action.String())

		switch v.Action {
		case provider.Accept:
			ans.Text = text
			ans.Elapsed = elapsed
			r.done(p, elapsed)
			return ans, true, nil

		case provider.Fatal:
			output.Logger.Error("Quota exhausted, stopping", "provider", p.Name(), "marker", v.Reason, "err", sendErr)
			return ans, false, fmt.Errorf("%w: %s: %v", provider.ErrQuotaExceeded, p.Name(), sendErr)

		case provider.ShrinkPayload, provider.ShrinkPolicy:
			ans.LastReason = v.Reason
			output.Logger.Warn("Soft failure, re-encoding images",
				"provider", p.Name(), "attempt", attempt, "reason", v.Reason, "ratio", v.Ratio, "err", sendErr)
			r.shrink(p, images, v)
			ans.Reencodes++

		default:
			ans.LastReason = v.Reason
			if sendErr != nil {
				ans.LastReason = sendErr.Error()
			}
			output.Logger.Warn("Request failed, retrying",
				"provider", p.Name(), "attempt", attempt, "reason", v.Reason, "err", sendErr)
		}
	}

	output.Logger.Warn("Attempts exhausted", "provider", p.Name(), "attempts", r.MaxAttempts)
	return ans, false, nil
}

func (r *Requester) shrink(p provider.Provider, images []*imaging.Image, v provider.Verdict) {
	for _, img := range images {
		if err := img.Shrink(v.Ratio); err != nil {
			output.Logger.Warn("Re-encode failed, keeping previous payload", "image", img.Path, "err", err)
			continue
		}
		r.Metrics.Reencode(p.Name(), v.Reason)
		cur := img.Current()
		output.Logger.Debug("Image re-encoded", "image", img.Path,
			"width", cur.Width, "height", cur.Height, "bytes", cur.Size())
	}
}

func (r *Requester) done(p provider.Provider, elapsed time.Duration) {
	r.Stats.Add(elapsed)
	r.Metrics.RequestDuration(p.Name(), elapsed)

	s := r.Stats.Summary()
	output.Logger.Info("Response accepted",
		"provider", p.Name(),
		"elapsed", elapsed.Round(time.Millisecond),
		"count", s.Count,
		"mean", s.Mean.Round(time.Millisecond),
		"max", s.Max.Round(time.Millisecond),
		"min", s.Min.Round(time.Millisecond),
		"stddev", s.StdDev.Round(time.Millisecond),
	)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
