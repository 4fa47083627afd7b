// ABOUTME: Centralized configuration for the stillpoint pipeline
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for indexing and retrieval
type Config struct {
	// OpenAI-compatible service settings
	OpenAIKey      string
	OpenAIBaseURL  string
	ChatModel      string
	EmbeddingModel string

	// Vector store settings
	WeaviateURL    string
	WeaviateAPIKey string
	Collection     string

	// Relational corpus source
	SourceDB string

	// Chunking
	CapTier1 int
	CapTier2 int
	CapTier3 int

	// Indexing
	EmbedBatchSize   int
	EmbedConcurrency int
	PageSize         int
	MinReplyScore    int

	// Retrieval
	SearchLimit       int
	DistanceThreshold float64

	// Timeouts and retries
	RequestTimeout  time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		ChatModel:         getEnv("STILLPOINT_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:    getEnv("STILLPOINT_EMBEDDING_MODEL", "text-embedding-3-small"),
		WeaviateURL:       getEnv("WEAVIATE_URL", "http://localhost:6060"),
		WeaviateAPIKey:    os.Getenv("WEAVIATE_API_KEY"),
		Collection:        getEnv("STILLPOINT_COLLECTION", "MindfulnessContent"),
		SourceDB:          getEnv("STILLPOINT_SOURCE_DB", "corpus.db"),
		CapTier1:          getEnvInt("STILLPOINT_CAP_TIER1", 1200),
		CapTier2:          getEnvInt("STILLPOINT_CAP_TIER2", 600),
		CapTier3:          getEnvInt("STILLPOINT_CAP_TIER3", 400),
		EmbedBatchSize:    getEnvInt("STILLPOINT_EMBED_BATCH", 32),
		EmbedConcurrency:  getEnvInt("STILLPOINT_EMBED_CONCURRENCY", 4),
		PageSize:          getEnvInt("STILLPOINT_PAGE_SIZE", 100),
		MinReplyScore:     getEnvInt("STILLPOINT_MIN_REPLY_SCORE", 3),
		SearchLimit:       getEnvInt("STILLPOINT_SEARCH_LIMIT", 5),
		DistanceThreshold: getEnvFloat("STILLPOINT_DISTANCE_THRESHOLD", 0.7),
		RequestTimeout:    getEnvDuration("STILLPOINT_REQUEST_TIMEOUT", 30*time.Second),
		SearchTimeout:     getEnvDuration("STILLPOINT_SEARCH_TIMEOUT", 10*time.Second),
		GenerateTimeout:   getEnvDuration("STILLPOINT_GENERATE_TIMEOUT", 60*time.Second),
		MaxRetries:        getEnvInt("STILLPOINT_MAX_RETRIES", 3),
		RetryDelay:        getEnvDuration("STILLPOINT_RETRY_DELAY", 2*time.Second),
	}

	return cfg, cfg.Validate()
}

// Validate checks value ranges. Endpoint/credential presence is
// checked by RequireServices at command startup, since read-only
// subcommands need less.
func (c *Config) Validate() error {
	if c.CapTier1 <= 0 || c.CapTier2 <= 0 || c.CapTier3 <= 0 {
		return fmt.Errorf("tier caps must be positive, got %d/%d/%d", c.CapTier1, c.CapTier2, c.CapTier3)
	}
	// Cosine distance spans [0, 2]
	if c.DistanceThreshold <= 0 || c.DistanceThreshold > 2 {
		return fmt.Errorf("STILLPOINT_DISTANCE_THRESHOLD must be in (0, 2], got %f", c.DistanceThreshold)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("STILLPOINT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("STILLPOINT_EMBED_BATCH must be positive, got %d", c.EmbedBatchSize)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("STILLPOINT_SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}
	return nil
}

// RequireServices checks that the external endpoints a command needs
// are configured. Missing credentials are fatal at startup, not
// recoverable by retry.
func (c *Config) RequireServices(embedding, generation bool) error {
	if c.WeaviateURL == "" {
		return fmt.Errorf("WEAVIATE_URL is required")
	}
	if embedding && c.OpenAIKey == "" && c.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY is required (or set OPENAI_BASE_URL for a local endpoint)")
	}
	if generation && c.OpenAIKey == "" && c.OpenAIBaseURL == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for generation")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
