/*
PURPOSE:
  Google Gemini generateContent provider over plain REST.

REQUIREMENTS:
  User-specified:
  - Prompt text followed by inline JPEG parts.
  - Replies shorter than ten characters count as failures.
  - Refusals and safety blocks shrink the images; safety shrinks harder.

  Implementation-discovered:
  - A safety block is not an HTTP error: it arrives as 200 with
    promptFeedback.blockReason or a candidate finishReason of SAFETY.
    Send turns those into errors so Classify can see them.
  - Per-minute rate limits also say RESOURCE_EXHAUSTED; only daily quota
    and billing wording is fatal.

ARCHITECTURE INTEGRATION:
  - Implements: internal/provider.Provider
  - Dependencies: bytedance/sonic (request body), tidwall/gjson (reply)

ERROR HANDLING:
  - Non-2xx statuses become errors carrying the status and body text.

IMPLEMENTATION RULES:
  - API key goes in the x-goog-api-key header, never the query string.

USAGE:
  p := gemini.New(gemini.Options{APIKey: key, Model: "gemini-1.5-pro"})

SELF-HEALING INSTRUCTIONS:
  - If v1beta is retired, update APIVersion.

RELATED FILES:
  - internal/provider/rules.go

MAINTENANCE:
  - Keep Rules in sync with Google's quota wording.
*/

package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/daryltucker/medvision-runner/internal/provider"
)

const (
	// Name is the registry name of this provider.
	Name = "gemini"
	// APIVersion is the path segment of the REST API.
	APIVersion = "v1beta"
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
)

// Rules is the Gemini failure-marker table.
// A per-minute RESOURCE_EXHAUSTED is an ordinary retry; only daily quota and
// billing failures end the run.
var Rules = provider.Rules{
	RefusalPrefixes: provider.RefusalPrefixes,
	RefusalRatio:    0.9,
	MinLength:       10,
	MinLengthRatio:  0.9,
	Shrink: []provider.Marker{
		{Substring: "safety", Action: provider.ShrinkPolicy, Ratio: 0.7},
	},
	Fatal: []string{"perday", "per day", "billing"},
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to models/{model}:generateContent.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
}

// New creates a new Client.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: base,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		http:    &http.Client{Timeout: opts.Timeout},
	}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

// Classify applies the Gemini rules.
func (c *Client) Classify(text string, err error) provider.Verdict {
	return Rules.Judge(text, err)
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

func buildRequest(req provider.Request) generateRequest {
	parts := make([]part, 0, len(req.Images)+1)
	parts = append(parts, part{Text: req.Prompt})
	for _, img := range req.Images {
		parts = append(parts, part{InlineData: &inlineData{MimeType: "image/jpeg", Data: img}})
	}
	return generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			Temperature:     req.Temperature,
			MaxOutputTokens: req.MaxTokens,
		},
	}
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, APIVersion, url.PathEscape(c.model))
}

// Send runs one vision request.
func (c *Client) Send(ctx context.Context, req provider.Request) (string, error) {
	body, err := sonic.Marshal(buildRequest(req))
	if err != nil {
		return "", fmt.Errorf("gemini: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("gemini: network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: server error (%s): %s", resp.Status, string(raw))
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("gemini: invalid JSON response: %s", string(raw))
	}
	return parseReply(raw)
}

func parseReply(raw []byte) (string, error) {
	if reason := gjson.GetBytes(raw, "promptFeedback.blockReason").String(); reason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", reason)
	}

	cand := gjson.GetBytes(raw, "candidates.0")
	if !cand.Exists() {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	cand.Get("content.parts").ForEach(func(_, p gjson.Result) bool {
		sb.WriteString(p.Get("text").String())
		return true
	})

	if sb.Len() == 0 {
		if finish := cand.Get("finishReason").String(); finish == "SAFETY" || finish == "PROHIBITED_CONTENT" {
			return "", fmt.Errorf("gemini: candidate blocked: SAFETY (%s)", finish)
		}
	}
	return sb.String(), nil
}
