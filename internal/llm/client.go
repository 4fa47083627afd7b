// ABOUTME: OpenAI-compatible client for embeddings and grounded generation
// ABOUTME: Batches embedding requests with bounded concurrency, preserving input order
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stillpoint/stillpoint/internal/util"
)

const (
	// DefaultChatModel is the default model for grounded answers
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default embedding model
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultBatchSize bounds each embedding request
	DefaultBatchSize = 32
	// DefaultConcurrency bounds in-flight embedding batches
	DefaultConcurrency = 4
)

// Config holds client configuration. BaseURL may point at any
// OpenAI-compatible endpoint (a local server works too).
type Config struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	EmbeddingModel  openai.EmbeddingModel
	BatchSize       int
	Concurrency     int
	MaxRetries      int
	RetryDelay      time.Duration
	RequestTimeout  time.Duration
	GenerateTimeout time.Duration
}

// DefaultConfig returns the standard client configuration
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:          apiKey,
		ChatModel:       DefaultChatModel,
		EmbeddingModel:  DefaultEmbeddingModel,
		BatchSize:       DefaultBatchSize,
		Concurrency:     DefaultConcurrency,
		MaxRetries:      3,
		RetryDelay:      2 * time.Second,
		RequestTimeout:  30 * time.Second,
		GenerateTimeout: 60 * time.Second,
	}
}

// BatchError reports which embedding batch failed so the caller can
// retry just that batch
type BatchError struct {
	Batch int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("embedding batch %d failed: %v", e.Batch, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Client wraps the OpenAI API with retry and batching behavior
type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	batchSize      int
	concurrency    int
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
}

// NewClient creates a client from config. The API key is required
// unless a custom BaseURL is set (local servers often need none).
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	def := DefaultConfig(cfg.APIKey)
	if cfg.ChatModel == "" {
		cfg.ChatModel = def.ChatModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = def.EmbeddingModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	return &Client{
		api:            openai.NewClientWithConfig(apiCfg),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		batchSize:      cfg.BatchSize,
		concurrency:    cfg.Concurrency,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// EmbeddingModelID returns the model name recorded in vector metadata
func (c *Client) EmbeddingModelID() string {
	return string(c.embeddingModel)
}

// EmbedBatch embeds texts in internal batches dispatched with bounded
// concurrency. Results come back in input order regardless of batch
// completion order. On failure the returned error wraps a *BatchError
// naming the first failed batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	type batch struct {
		index int
		start int
		texts []string
	}

	var batches []batch
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{index: len(batches), start: start, texts: texts[start:end]})
	}

	results := make([][]float32, len(texts))
	errs := make([]error, len(batches))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			vectors, err := c.embedOnce(ctx, b.texts)
			if err != nil {
				errs[b.index] = &BatchError{Batch: b.index, Err: err}
				return
			}
			for i, v := range vectors {
				results[b.start+i] = v
			}
		}(b)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// EmbedQuery embeds a single query string
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedOnce(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embedOnce runs one embedding request with retries
func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		resp, err := c.api.CreateEmbeddings(reqCtx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: c.embeddingModel,
		})
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Data) != len(texts) {
			lastErr = fmt.Errorf("attempt %d: got %d embeddings for %d inputs", attempt+1, len(resp.Data), len(texts))
			continue
		}

		vectors := make([][]float32, len(texts))
		for i, d := range resp.Data {
			vectors[i] = d.Embedding
		}
		return vectors, nil
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// Generate produces one completion for the prompt. Temperature stays
// moderate; the grounding prompt carries the real constraints.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.CalculateBackoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.chatModel,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: 0.7,
		})

		if err != nil {
			lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("attempt %d: no completion choices returned", attempt+1)
			continue
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("generation failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
