// ABOUTME: Indexer drives the end-to-end corpus build: read, chunk, embed, upsert
// ABOUTME: Pages the source, replaces the collection wholesale, reports per-item failures
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stillpoint/stillpoint/internal/logger"
	"github.com/stillpoint/stillpoint/internal/models"
)

const (
	// DefaultPageSize is how many posts each source page holds
	DefaultPageSize = 100
	// DefaultMinReplyScore selects replies for tier-3 chunking
	DefaultMinReplyScore = 3
)

// IndexerOptions configures a corpus build run
type IndexerOptions struct {
	// PageSize bounds each source read; non-positive uses the default.
	PageSize int
	// Offset resumes a run partway through the post listing. A
	// non-zero offset skips the wholesale collection replacement so
	// already-committed vectors survive.
	Offset int
	// MinReplyScore is the tier-3 high-value selection threshold.
	MinReplyScore int
	// HighValueLimit caps tier-3 input; non-positive means no cap.
	HighValueLimit int
	// EmbeddingModel is recorded in every vector's metadata.
	EmbeddingModel string
}

// IndexReport summarizes a completed (or failed partway) run
type IndexReport struct {
	RunID          string                 `json:"run_id"`
	PostsProcessed int                    `json:"posts_processed"`
	ChunksBuilt    int                    `json:"chunks_built"`
	Inserted       int                    `json:"inserted"`
	Failures       []models.UpsertFailure `json:"failures,omitempty"`
	NextOffset     int                    `json:"next_offset"`
	Elapsed        time.Duration          `json:"elapsed"`
}

// Indexer pipes source records through the chunk builder and embedding
// service into the vector store
type Indexer struct {
	source   SourceReader
	builder  *ChunkBuilder
	embedder Embedder
	index    VectorIndex
	opts     IndexerOptions
}

// NewIndexer wires an Indexer from its collaborators
func NewIndexer(source SourceReader, builder *ChunkBuilder, embedder Embedder, index VectorIndex, opts IndexerOptions) *Indexer {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MinReplyScore <= 0 {
		opts.MinReplyScore = DefaultMinReplyScore
	}
	return &Indexer{source: source, builder: builder, embedder: embedder, index: index, opts: opts}
}

// Run builds and indexes the whole corpus. A batch-level embedding
// failure is fatal for the run; the report carries the resumable offset
// reached so far. Per-item upsert failures are collected, not fatal.
func (ix *Indexer) Run(ctx context.Context) (*IndexReport, error) {
	start := time.Now()
	report := &IndexReport{
		RunID:      "run_" + uuid.New().String()[:8],
		NextOffset: ix.opts.Offset,
	}

	if ix.opts.Offset == 0 {
		if err := ix.index.EnsureCollection(ctx); err != nil {
			return report, fmt.Errorf("ensuring collection: %w", err)
		}
	} else {
		logger.Info("resuming at offset %d, keeping existing collection", ix.opts.Offset)
	}

	offset := ix.opts.Offset
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		posts, err := ix.source.PostsWithReplies(ctx, ix.opts.PageSize, offset)
		if err != nil {
			return report, fmt.Errorf("reading posts at offset %d: %w", offset, err)
		}
		if len(posts) == 0 {
			break
		}

		chunks := ix.builder.BuildTier1(posts)
		chunks = append(chunks, ix.builder.BuildTier2(posts)...)
		logger.Info("page at offset %d: %d posts, %d chunks", offset, len(posts), len(chunks))

		if err := ix.indexChunks(ctx, chunks, report); err != nil {
			return report, err
		}

		report.PostsProcessed += len(posts)
		offset += len(posts)
		report.NextOffset = offset

		if len(posts) < ix.opts.PageSize {
			break
		}
	}

	highValue, err := ix.source.HighValueReplies(ctx, ix.opts.MinReplyScore, ix.opts.HighValueLimit)
	if err != nil {
		return report, fmt.Errorf("reading high-value replies: %w", err)
	}
	if err := ix.indexChunks(ctx, ix.builder.BuildTier3(highValue), report); err != nil {
		return report, err
	}

	report.Elapsed = time.Since(start)
	return report, nil
}

// BuildChunks builds the full chunk set without touching the vector
// store. Used for the stable chunk interchange file.
func (ix *Indexer) BuildChunks(ctx context.Context) ([]models.Chunk, error) {
	var all []models.Chunk
	offset := ix.opts.Offset
	for {
		posts, err := ix.source.PostsWithReplies(ctx, ix.opts.PageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("reading posts at offset %d: %w", offset, err)
		}
		if len(posts) == 0 {
			break
		}
		all = append(all, ix.builder.BuildTier1(posts)...)
		all = append(all, ix.builder.BuildTier2(posts)...)
		offset += len(posts)
		if len(posts) < ix.opts.PageSize {
			break
		}
	}

	highValue, err := ix.source.HighValueReplies(ctx, ix.opts.MinReplyScore, ix.opts.HighValueLimit)
	if err != nil {
		return nil, fmt.Errorf("reading high-value replies: %w", err)
	}
	return append(all, ix.builder.BuildTier3(highValue)...), nil
}

// IndexPrebuilt replaces the collection and indexes an
// externally-supplied chunk set, e.g. one loaded from an interchange file
func (ix *Indexer) IndexPrebuilt(ctx context.Context, chunks []models.Chunk) (*IndexReport, error) {
	start := time.Now()
	report := &IndexReport{RunID: "run_" + uuid.New().String()[:8]}

	if err := ix.index.EnsureCollection(ctx); err != nil {
		return report, fmt.Errorf("ensuring collection: %w", err)
	}
	if err := ix.indexChunks(ctx, chunks, report); err != nil {
		return report, err
	}
	report.Elapsed = time.Since(start)
	return report, nil
}

// indexChunks embeds one chunk batch and upserts it with full metadata.
// Embedding failures abort the run; upsert item failures accumulate.
func (ix *Indexer) indexChunks(ctx context.Context, chunks []models.Chunk, report *IndexReport) error {
	if len(chunks) == 0 {
		return nil
	}
	report.ChunksBuilt += len(chunks)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding %d chunks: %w", len(chunks), err)
	}

	indexedAt := time.Now().UTC()
	items := make([]models.IndexedVector, len(chunks))
	for i, c := range chunks {
		items[i] = models.IndexedVector{
			Vector: vectors[i],
			Metadata: models.IndexedMetadata{
				Content:        c.Content,
				ChunkID:        c.ID,
				Tier:           int(c.Tier),
				ContentKind:    string(c.Metadata.ContentKind),
				SourcePostID:   c.Metadata.SourcePostID,
				Author:         c.Metadata.Author,
				Score:          c.Metadata.Score,
				CreatedAt:      c.Metadata.CreatedAt,
				Title:          c.Metadata.Title,
				Permalink:      c.Metadata.Permalink,
				EmbeddingModel: ix.opts.EmbeddingModel,
				IndexedAt:      indexedAt,
			},
		}
	}

	inserted, failures, err := ix.index.UpsertMany(ctx, items)
	if err != nil {
		return fmt.Errorf("upserting %d vectors: %w", len(items), err)
	}
	report.Inserted += inserted
	report.Failures = append(report.Failures, failures...)
	for _, f := range failures {
		logger.Warn("upsert failed for chunk %s: %s", f.ChunkID, f.Reason)
	}
	return nil
}
