package generate

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/tiktoken-go/tokenizer"

	"github.com/voltgrid/supportbot/internal/domain"
)

const systemPrompt = "You are a technical support assistant for EV charging stations. " +
	"Answer briefly and practically. If the user describes a station fault, suggest they " +
	"share the error code shown on the display. Do not invent error codes or solutions."

// defaultPromptBudget caps how many tokens of user text are sent upstream.
const defaultPromptBudget = 512

const defaultModel = openai.GPT4oMini

// OpenAI generates fallback responses through the chat completions API.
// Upstream failures are masked: callers always get a usable reply, never an
// error, so a provider outage degrades to canned answers.
type OpenAI struct {
	client *openai.Client
	model  string
	budget int
	codec  tokenizer.Codec
	logger *slog.Logger
}

var _ domain.Generator = (*OpenAI)(nil)

// Option configures the OpenAI generator.
type Option func(*options)

type options struct {
	model      string
	budget     int
	httpClient *http.Client
	baseURL    string
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithPromptBudget overrides the user-prompt token budget.
func WithPromptBudget(budget int) Option {
	return func(o *options) { o.budget = budget }
}

// WithHTTPClient substitutes the transport, used by tests to replay
// recorded exchanges.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// NewOpenAI builds the generator. The tokenizer codec is resolved once at
// construction; an unresolvable model falls back to cl100k_base.
func NewOpenAI(apiKey string, logger *slog.Logger, opts ...Option) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}

	o := options{model: defaultModel, budget: defaultPromptBudget}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}

	codec, err := tokenizer.ForModel(tokenizer.Model(o.model))
	if err != nil {
		codec, _ = tokenizer.Get(tokenizer.Cl100kBase)
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  o.model,
		budget: o.budget,
		codec:  codec,
		logger: logger,
	}
}

// Generate asks the model for a reply. Any upstream error, empty choice
// list, or blank content falls back to the canned table.
func (g *OpenAI) Generate(ctx context.Context, message string) string {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: g.truncate(message)},
		},
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		g.logger.Warn("fallback generation failed, serving canned response",
			slog.String("error", err.Error()))
		return canned(message)
	}
	if len(resp.Choices) == 0 {
		g.logger.Warn("fallback generation returned no choices")
		return canned(message)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return canned(message)
	}
	return text
}

// truncate trims the user text to the prompt token budget.
func (g *OpenAI) truncate(message string) string {
	if g.codec == nil {
		return message
	}
	ids, _, err := g.codec.Encode(message)
	if err != nil || len(ids) <= g.budget {
		return message
	}
	trimmed, err := g.codec.Decode(ids[:g.budget])
	if err != nil {
		return message
	}
	return trimmed
}
