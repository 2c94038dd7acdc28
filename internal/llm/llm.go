// Package llm wraps the OpenAI API behind the two narrow calls the rest
// of the application needs: free-text completion and embedding. All
// calls share one rate limiter and one per-call timeout so no caller
// can hang on a slow upstream.
package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/invenzis/brain/internal/log"
)

// api is the slice of the OpenAI client surface the wrapper uses.
// *openai.Client satisfies it.
type api interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client provides rate-limited, deadline-bounded access to the chat and
// embedding models. Safe for concurrent use.
type Client struct {
	api            api
	model          string
	embeddingModel string
	dimensions     int
	timeout        time.Duration
	limiter        *rate.Limiter
	logger         log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each upstream call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRateLimit caps sustained upstream calls per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

// withAPI swaps the upstream client, for tests.
func withAPI(a api) Option {
	return func(c *Client) { c.api = a }
}

// New creates a Client for the given API key and models.
func New(apiKey, model, embeddingModel string, dimensions int, logger log.Logger, opts ...Option) *Client {
	c := &Client{
		api:            openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
		dimensions:     dimensions,
		timeout:        15 * time.Second,
		limiter:        rate.NewLimiter(rate.Limit(5), 10),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends prompt as a single user message and returns the raw
// model text. Generation paths that need determinism call with
// temperature 0.
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	// The request marshals temperature with omitempty, so a literal 0
	// would vanish from the wire and run at the API default. The
	// smallest positive value keeps the field present.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty response")
	}

	c.logger.Debug("completion finished",
		"model", c.model,
		"duration", time.Since(start),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      openai.EmbeddingModel(c.embeddingModel),
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("creating embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
