/*
PURPOSE:
  OpenAI chat-completions provider (GPT-4o class vision models).

REQUIREMENTS:
  User-specified:
  - Send one user turn with a text part and data-URI image parts.
  - Honour temperature and the max-output-token cap.

  Implementation-discovered:
  - The SDK retries 429/5xx on its own; that is disabled because the
    engine owns the retry loop.
  - "image_parse_error" comes back inside the API error body.

ARCHITECTURE INTEGRATION:
  - Implements: internal/provider.Provider
  - Also used by: internal/classify (JSON-mode completions)
  - Dependencies: github.com/openai/openai-go/v3

ERROR HANDLING:
  - SDK errors are returned as-is; Classify inspects their text.

IMPLEMENTATION RULES:
  - One choice, first message content is the reply.

USAGE:
  p := openai.New(openai.Options{APIKey: key, Model: "gpt-4o"})

SELF-HEALING INSTRUCTIONS:
  - If the SDK renames content-part helpers, update buildMessages.

RELATED FILES:
  - internal/provider/rules.go

MAINTENANCE:
  - Bump openai-go deliberately; the param unions change between majors.
*/

package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/daryltucker/medvision-runner/internal/provider"
)

// Name is the registry name of this provider.
const Name = "openai"

// Rules is the OpenAI failure-marker table.
var Rules = provider.Rules{
	RefusalPrefixes: provider.RefusalPrefixes,
	RefusalRatio:    0.9,
	Shrink: []provider.Marker{
		{Substring: "image_parse_error", Action: provider.ShrinkPayload, Ratio: 0.9},
	},
	Fatal: []string{"insufficient_quota", "exceeded your current quota"},
}

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client talks to the chat-completions endpoint.
type Client struct {
	client openai.Client
	model  string
}

// New creates a new Client.
func New(opts Options) *Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  opts.Model,
	}
}

func (c *Client) Name() string  { return Name }
func (c *Client) Model() string { return c.model }

// Classify applies the OpenAI rules.
func (c *Client) Classify(text string, err error) provider.Verdict {
	return Rules.Judge(text, err)
}

// Send runs one vision completion.
func (c *Client) Send(ctx context.Context, req provider.Request) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    buildMessages(req),
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	return c.complete(ctx, params)
}

// CompleteJSON runs a text-only completion constrained to a JSON object.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(temperature),
		TopP:        openai.Float(1),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	return c.complete(ctx, params)
}

func (c *Client) complete(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildMessages(req provider.Request) []openai.ChatCompletionMessageParamUnion {
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(req.Prompt),
	}
	for _, img := range req.Images {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:image/jpeg;base64," + img,
		}))
	}
	return []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(parts),
	}
}
