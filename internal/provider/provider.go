/*
PURPOSE:
  Defines the capability interface every model provider implements,
  and the verdicts the request loop acts on.

REQUIREMENTS:
  User-specified:
  - Three interchangeable providers behind one request loop.
  - Each provider supplies only its payload shape and its failure markers.

  Implementation-discovered:
  - Provider error shapes differ, so classification is substring sniffing
    on the stringified error (and on the reply text for refusals).
  - Payload-too-large and policy refusals are distinct retry strategies.

ARCHITECTURE INTEGRATION:
  - Implemented by: internal/provider/{openai,anthropic,gemini}
  - Called by: internal/engine

ERROR HANDLING:
  - Send returns transport/API errors verbatim; Classify decides what they mean.

IMPLEMENTATION RULES:
  - Images are passed as base64 JPEG strings.
  - Providers never retry internally.

USAGE:
  text, err := p.Send(ctx, provider.Request{Prompt: q, Images: imgs, Temperature: 0})
  v := p.Classify(text, err)

SELF-HEALING INSTRUCTIONS:
  - If a provider changes its error wording, update its Rules table.

RELATED FILES:
  - internal/provider/rules.go
  - internal/engine/client.go

MAINTENANCE:
  - Add new providers to registry.go.
*/

package provider

import (
	"context"
	"errors"
)

// ErrQuotaExceeded signals a non-recoverable balance/quota failure.
var ErrQuotaExceeded = errors.New("provider quota exceeded")

// Request is one text+image call.
type Request struct {
	Prompt      string
	Images      []string // base64 JPEG payloads
	Temperature float64
	MaxTokens   int
}

// Provider is the capability interface of a single external model API.
type Provider interface {
	Name() string
	Model() string
	Send(ctx context.Context, req Request) (string, error)
	Classify(text string, err error) Verdict
}

// Action is what the request loop does after an attempt.
type Action int

const (
	// Accept: the reply qualifies as a result.
	Accept Action = iota
	// ShrinkPayload: the payload was too large or unparsable; re-encode smaller.
	ShrinkPayload
	// ShrinkPolicy: the reply was a refusal, too short or safety-blocked; re-encode smaller.
	ShrinkPolicy
	// Retry: any other failure; retry with inputs unchanged.
	Retry
	// Fatal: quota or balance exhausted; stop the whole run.
	Fatal
)

func (a Action) String() string {
	switch a {
	case Accept:
		return "accept"
	case ShrinkPayload:
		return "shrink_payload"
	case ShrinkPolicy:
		return "shrink_policy"
	case Retry:
		return "retry"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// Verdict classifies one attempt.
type Verdict struct {
	Action Action
	Ratio  float64 // shrink ratio for the Shrink* actions
	Reason string
}

// Soft reports whether the verdict re-encodes the images.
func (v Verdict) Soft() bool {
	return v.Action == ShrinkPayload || v.Action == ShrinkPolicy
}
