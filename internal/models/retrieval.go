// ABOUTME: Vector store interchange types and per-query retrieval results
// ABOUTME: IndexedVector is the stored form; NeighborHit and RetrievalResult are query-time
package models

import "time"

// IndexedMetadata is the flat property set stored alongside each vector.
// Field names mirror the collection schema one-to-one.
type IndexedMetadata struct {
	Content        string    `json:"content"`
	ChunkID        string    `json:"chunkId"`
	Tier           int       `json:"tier"`
	ContentKind    string    `json:"contentKind"`
	SourcePostID   string    `json:"sourcePostId"`
	Author         string    `json:"author"`
	Score          int       `json:"score"`
	CreatedAt      time.Time `json:"createdAt"`
	Title          string    `json:"title"`
	Permalink      string    `json:"permalink"`
	EmbeddingModel string    `json:"embeddingModel"`
	IndexedAt      time.Time `json:"indexedAt"`
}

// IndexedVector pairs an embedding with its metadata for upsert
type IndexedVector struct {
	Vector   []float32
	Metadata IndexedMetadata
}

// NeighborHit is one nearest-neighbor result, ordered by ascending distance
type NeighborHit struct {
	Metadata IndexedMetadata
	Distance float64
}

// UpsertFailure reports a single item that the vector store rejected
type UpsertFailure struct {
	ChunkID string `json:"chunk_id"`
	Reason  string `json:"reason"`
}

// MetadataFilter is an equality filter on one named metadata field.
// Value must be a string or an int.
type MetadataFilter struct {
	Field string
	Value any
}

// RetrievalResult is the ephemeral per-query unit handed to the responder.
// Relevance is 1 - Distance; lower distance means more similar.
type RetrievalResult struct {
	ChunkID      string      `json:"chunk_id"`
	Tier         int         `json:"tier"`
	ContentKind  ContentKind `json:"content_kind"`
	Content      string      `json:"content"`
	Title        string      `json:"title,omitempty"`
	Author       string      `json:"author,omitempty"`
	Score        int         `json:"score"`
	SourcePostID string      `json:"source_post_id"`
	Permalink    string      `json:"permalink,omitempty"`
	Distance     float64     `json:"distance"`
	Relevance    float64     `json:"relevance"`
}
