// ABOUTME: Interfaces the core depends on for its external collaborators
// ABOUTME: Embedding service, vector index, generation service, relational source
package core

import (
	"context"

	"github.com/stillpoint/stillpoint/internal/models"
)

// Embedder maps text to fixed-length vectors via the external
// embedding service. EmbedBatch preserves input order one-to-one.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the external vector store. Distances follow the
// lower-is-more-similar convention (cosine distance); implementations
// using a reversed similarity score must convert before returning.
// NearestNeighbors results are ordered by ascending distance with ties
// left in the store's insertion order.
type VectorIndex interface {
	// EnsureCollection replaces the target collection wholesale with
	// the predeclared schema. Idempotent.
	EnsureCollection(ctx context.Context) error

	// UpsertMany writes vectors with metadata. Individual item
	// failures do not abort the batch; they are returned per item.
	UpsertMany(ctx context.Context, items []models.IndexedVector) (inserted int, failures []models.UpsertFailure, err error)

	NearestNeighbors(ctx context.Context, vector []float32, limit int, filter *models.MetadataFilter) ([]models.NeighborHit, error)
}

// Generator is the external text-generation service
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SourceReader is the narrow read interface over the relational
// corpus store. The core never writes to it.
type SourceReader interface {
	// PostsWithReplies returns a page of posts, each carrying its
	// replies. limit <= 0 means no limit.
	PostsWithReplies(ctx context.Context, limit, offset int) ([]models.ThreadRecord, error)

	// HighValueReplies returns replies with score >= minScore, sorted
	// by score descending, each carrying its parent post title.
	HighValueReplies(ctx context.Context, minScore, limit int) ([]models.ReplyRecord, error)

	PostCount(ctx context.Context) (int, error)

	Stats(ctx context.Context) (models.CorpusStats, error)
}
