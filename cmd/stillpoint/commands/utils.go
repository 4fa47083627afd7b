// ABOUTME: Shared helpers for CLI commands
// ABOUTME: Component wiring from config plus small formatting utilities
package commands

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/stillpoint/stillpoint/internal/config"
	"github.com/stillpoint/stillpoint/internal/core"
	"github.com/stillpoint/stillpoint/internal/llm"
	"github.com/stillpoint/stillpoint/internal/vector/weaviate"
)

// newLLMClient builds the OpenAI-compatible client from config
func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	return llm.NewClient(llm.Config{
		APIKey:         cfg.OpenAIKey,
		BaseURL:        cfg.OpenAIBaseURL,
		ChatModel:      cfg.ChatModel,
		EmbeddingModel: openai.EmbeddingModel(cfg.EmbeddingModel),
		BatchSize:      cfg.EmbedBatchSize,
		Concurrency:    cfg.EmbedConcurrency,
		MaxRetries:     cfg.MaxRetries,
		RetryDelay:     cfg.RetryDelay,
		RequestTimeout: cfg.RequestTimeout,
	})
}

// newVectorClient builds the Weaviate client from config
func newVectorClient(cfg *config.Config) *weaviate.Client {
	return weaviate.New(weaviate.Config{
		BaseURL:    cfg.WeaviateURL,
		APIKey:     cfg.WeaviateAPIKey,
		Collection: cfg.Collection,
		Timeout:    cfg.RequestTimeout,
	})
}

// newRetriever wires a Retriever with its external clients
func newRetriever(cfg *config.Config) (*core.Retriever, *llm.Client, error) {
	client, err := newLLMClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	retriever := core.NewRetriever(client, newVectorClient(cfg), core.RetrieverOptions{
		Limit:             cfg.SearchLimit,
		DistanceThreshold: cfg.DistanceThreshold,
		EmbedTimeout:      cfg.RequestTimeout,
		SearchTimeout:     cfg.SearchTimeout,
	})
	return retriever, client, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// validatePositiveInt returns an error if n is not positive
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
