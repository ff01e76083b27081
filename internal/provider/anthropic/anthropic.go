/*
PURPOSE:
  Anthropic Messages API provider (Claude vision models) over plain REST.

REQUIREMENTS:
  User-specified:
  - One user turn: the text block, then one image block per image.
  - Honour temperature and max_tokens.

  Implementation-discovered:
  - Oversized images come back as HTTP 400 with "image exceeds" or
    "image_parse_error" in the body.
  - Balance problems say "credit balance" or "exceeded".

ARCHITECTURE INTEGRATION:
  - Implements: internal/provider.Provider
  - Dependencies: bytedance/sonic (request body), tidwall/gjson (reply)

ERROR HANDLING:
  - Non-2xx statuses become errors carrying the status and body text,
    so the rules table can match on them.

IMPLEMENTATION RULES:
  - Reply text is the concatenation of every "text" content block.

USAGE:
  p := anthropic.New(anthropic.Options{APIKey: key, Model: "claude-3-opus-20240229"})

SELF-HEALING INSTRUCTIONS:
  - If the API version header is retired, bump Version.

RELATED FILES:
  - internal/provider/rules.go

MAINTENANCE:
  - Keep Rules in sync with the error wording Anthropic returns.
*/

package anthropic

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tidwall/gjson"

	"github.com/daryltucker/medvision-runner/internal/provider"
)

const (
	// Name is the registry name of this provider.
	Name = "anthropic"
	// Version is the anthropic-version header value.
	Version = "2023-06-01"
	// DefaultBaseURL is the public API root.
	DefaultBaseURL = "https://api.anthropic.com"
)

// Rules is the Anthropic failure-marker table.
var Rules = provider.Rules{
	RefusalPrefixes: provider.RefusalPrefixes,
	RefusalRatio:    0.9,
	Shrink: []provider.Marker{
		{Substring: "image_parse_error", Action: provider.ShrinkPayload, Ratio: 0.9},
		{Substring: "image exceeds", Action: provider.ShrinkPayload, Ratio: 0.9},
	},
	Fatal: []string{"credit balance", "exceeded"},
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to /v1/messages.
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

// Classify applies the Anthropic rules.
func (c *Client) Classify(text string, err error) provider.Verdict {
	return Rules.Judge(text, err)
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

func buildRequest(model string, req provider.Request) messagesRequest {
	blocks := make([]contentBlock, 0, len(req.Images)+1)
	blocks = append(blocks, contentBlock{Type: "text", Text: req.Prompt})
	for _, img := range req.Images {
		blocks = append(blocks, contentBlock{
			Type:   "image",
			Source: &imageSource{Type: "base64", MediaType: "image/jpeg", Data: img},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: blocks}},
	}
}

// Send runs one vision request.
func (c *Client) Send(ctx context.Context, req provider.Request) (string, error) {
	body, err := sonic.Marshal(buildRequest(c.model, req))
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", Version)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("anthropic: network error: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("anthropic: failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic: server error (%s): %s", resp.Status, string(raw))
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("anthropic: invalid JSON response: %s", string(raw))
	}

	var sb strings.Builder
	gjson.GetBytes(raw, "content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
		return true
	})
	return sb.String(), nil
}
