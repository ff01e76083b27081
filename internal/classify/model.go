/*
PURPOSE:
  Model-assisted classifier: asks a chat model to cut an answer into the
  six sections and returns them verbatim.

REQUIREMENTS:
  User-specified:
  - JSON object with keys "1".."6"; "6" is an object with "6.1".."6.3".
  - Nested values are flattened to "key: value" lines.
  - Absent keys are empty sections.
  - Output that is not valid JSON fails the whole file, logged, not retried.

  Implementation-discovered:
  - Unparsable output must be distinguishable from a legitimately empty
    answer, hence StatusUnparsable and ErrUnparsable.
  - Re-classifying unchanged answers is common, so valid replies are cached.

ARCHITECTURE INTEGRATION:
  - Called by: internal/classify/folder.go
  - Uses: internal/prompt (classifier prompts), internal/cache, tidwall/gjson

ERROR HANDLING:
  - Completion errors return StatusFailed with the wrapped error.
  - Cache errors are logged and ignored.

IMPLEMENTATION RULES:
  - Flattening keeps the key order of the reply.

USAGE:
  m := classify.NewModel(client, prompts, "gpt-4o", 0, 1000, nil)
  sections, status, err := m.Classify(ctx, content)

SELF-HEALING INSTRUCTIONS:
  - If the model starts wrapping JSON in fences, strip them in Parse.

RELATED FILES:
  - internal/assets/prompts/classifier.tmpl
  - internal/provider/openai/openai.go

MAINTENANCE:
  - Keep the key layout in sync with the classifier prompt.
*/

package classify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/daryltucker/medvision-runner/internal/cache"
	"github.com/daryltucker/medvision-runner/internal/model"
	"github.com/daryltucker/medvision-runner/internal/output"
	"github.com/daryltucker/medvision-runner/internal/prompt"
)

// ErrUnparsable means the model reply was not a JSON object.
var ErrUnparsable = errors.New("classifier reply is not a JSON object")

// Completer runs one JSON-mode chat completion.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error)
}

// Model is the model-assisted classification strategy.
type Model struct {
	completer   Completer
	prompts     *prompt.Classifier
	model       string
	temperature float64
	maxTokens   int
	cache       cache.Cache
}

// NewModel creates a Model. c may be nil to disable caching.
func NewModel(completer Completer, prompts *prompt.Classifier, modelName string, temperature float64, maxTokens int, c cache.Cache) *Model {
	return &Model{
		completer:   completer,
		prompts:     prompts,
		model:       modelName,
		temperature: temperature,
		maxTokens:   maxTokens,
		cache:       c,
	}
}

// Name identifies the strategy.
func (m *Model) Name() string { return "model" }

// Classify sends content to the model and parses the reply.
func (m *Model) Classify(ctx context.Context, content string) (model.Sections, Status, error) {
	key := cache.Key(m.model, content)
	if m.cache != nil {
		raw, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			output.Logger.Warn("Classifier cache read failed", "error", err)
		} else if ok {
			if s, err := Parse(raw); err == nil {
				output.Logger.Debug("Classifier cache hit", "key", key)
				return s, StatusOK, nil
			}
		}
	}

	user, err := m.prompts.User(content)
	if err != nil {
		return model.Sections{}, StatusFailed, err
	}
	raw, err := m.completer.CompleteJSON(ctx, m.prompts.System, user, m.temperature, m.maxTokens)
	if err != nil {
		return model.Sections{}, StatusFailed, fmt.Errorf("classifier request failed: %w", err)
	}

	s, err := Parse(raw)
	if err != nil {
		output.Logger.Warn("Unparsable classifier reply", "reply", raw)
		return model.Sections{}, StatusUnparsable, err
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, raw); err != nil {
			output.Logger.Warn("Classifier cache write failed", "error", err)
		}
	}
	return s, StatusOK, nil
}

// Parse extracts the six sections from a classifier reply.
func Parse(raw string) (model.Sections, error) {
	var s model.Sections
	raw = strings.TrimSpace(raw)
	if !gjson.Valid(raw) {
		return s, ErrUnparsable
	}
	root := gjson.Parse(raw)
	if !root.IsObject() {
		return s, ErrUnparsable
	}

	for i := range s {
		v := root.Get(strconv.Itoa(i + 1))
		if v.IsObject() {
			s[i] = flatten(v)
			continue
		}
		s[i] = v.String()
	}
	return s, nil
}

// flatten renders an object as "key: value" lines in document order.
func flatten(obj gjson.Result) string {
	var lines []string
	obj.ForEach(func(k, v gjson.Result) bool {
		lines = append(lines, k.String()+": "+v.String())
		return true
	})
	return strings.Join(lines, "\n")
}
