// ABOUTME: Retriever answers a text query with ranked, threshold-filtered chunks
// ABOUTME: Embeds the query, runs nearest-neighbor search, formats the grounding context
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stillpoint/stillpoint/internal/logger"
	"github.com/stillpoint/stillpoint/internal/models"
)

const (
	// DefaultSearchLimit is the nearest-neighbor result count per query
	DefaultSearchLimit = 5
	// DefaultDistanceThreshold is the maximum cosine distance a result
	// may have and still count as relevant
	DefaultDistanceThreshold = 0.7
)

// RetrieverOptions configures per-call defaults and timeouts
type RetrieverOptions struct {
	Limit             int
	DistanceThreshold float64
	EmbedTimeout      time.Duration
	SearchTimeout     time.Duration
}

// Retriever turns a query into a small set of relevant chunks.
// Service failures and timeouts degrade to an empty result set; they
// are logged, never surfaced to the end user.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	opts     RetrieverOptions
}

// NewRetriever creates a Retriever over the given external services
func NewRetriever(embedder Embedder, index VectorIndex, opts RetrieverOptions) *Retriever {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.DistanceThreshold <= 0 {
		opts.DistanceThreshold = DefaultDistanceThreshold
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 10 * time.Second
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 10 * time.Second
	}
	return &Retriever{embedder: embedder, index: index, opts: opts}
}

// Retrieve runs the retrieval algorithm with the configured defaults
func (r *Retriever) Retrieve(ctx context.Context, query string) []models.RetrievalResult {
	return r.RetrieveWithOptions(ctx, query, r.opts.Limit, r.opts.DistanceThreshold)
}

// RetrieveWithOptions embeds the query, fetches the limit nearest
// neighbors, and keeps results whose distance is at or below the
// threshold. The store's ascending-distance order is the final ranking;
// relevance (1 - distance) is computed for presentation only.
func (r *Retriever) RetrieveWithOptions(ctx context.Context, query string, limit int, threshold float64) []models.RetrievalResult {
	if limit <= 0 {
		limit = r.opts.Limit
	}

	embedCtx, cancel := context.WithTimeout(ctx, r.opts.EmbedTimeout)
	vector, err := r.embedder.EmbedQuery(embedCtx, NormalizeText(query))
	cancel()
	if err != nil {
		logger.Warn("query embedding failed: %v", err)
		return nil
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.opts.SearchTimeout)
	hits, err := r.index.NearestNeighbors(searchCtx, vector, limit, nil)
	cancel()
	if err != nil {
		logger.Warn("vector search failed: %v", err)
		return nil
	}

	results := make([]models.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		// Lower distance means more similar; the threshold is inclusive
		if hit.Distance > threshold {
			continue
		}
		results = append(results, models.RetrievalResult{
			ChunkID:      hit.Metadata.ChunkID,
			Tier:         hit.Metadata.Tier,
			ContentKind:  models.ContentKind(hit.Metadata.ContentKind),
			Content:      hit.Metadata.Content,
			Title:        hit.Metadata.Title,
			Author:       hit.Metadata.Author,
			Score:        hit.Metadata.Score,
			SourcePostID: hit.Metadata.SourcePostID,
			Permalink:    hit.Metadata.Permalink,
			Distance:     hit.Distance,
			Relevance:    1 - hit.Distance,
		})
	}

	logger.Debug("retrieved %d of %d hits within distance %.2f for query %q",
		len(results), len(hits), threshold, query)
	return results
}

// FormatContext renders retrieval results as the grounding context
// block passed to the generation model. Each result gets a delimited,
// numbered section so the generator can attribute claims to a source.
// Empty input yields an empty string.
func FormatContext(results []models.RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Here is relevant mindfulness content from the community archive:\n\n")

	for i, result := range results {
		fmt.Fprintf(&sb, "--- Source %d ---\n", i+1)
		fmt.Fprintf(&sb, "Type: %s\n", result.ContentKind)
		if result.Title != "" {
			fmt.Fprintf(&sb, "Title: %s\n", result.Title)
		}
		fmt.Fprintf(&sb, "Author: %s\n", displayAuthor(result.Author))
		fmt.Fprintf(&sb, "Community Score: %d\n", result.Score)
		fmt.Fprintf(&sb, "Relevance: %.2f\n", result.Relevance)
		fmt.Fprintf(&sb, "Content: %s\n\n", result.Content)
	}

	return strings.TrimRight(sb.String(), "\n")
}
