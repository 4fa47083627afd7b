// ABOUTME: Tests for threshold-filtered retrieval and context formatting
// ABOUTME: Uses fake embedder and vector index collaborators
package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stillpoint/stillpoint/internal/models"
)

type fakeEmbedder struct {
	batchCalls int
	queryCalls int
	err        error
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i), 1}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.queryCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type fakeIndex struct {
	hits      []models.NeighborHit
	searchErr error
	upsertErr error

	ensureCalls int
	upserted    [][]models.IndexedVector
	failAt      map[int]string // item index -> failure reason
}

func (f *fakeIndex) EnsureCollection(ctx context.Context) error {
	f.ensureCalls++
	return nil
}

func (f *fakeIndex) UpsertMany(ctx context.Context, items []models.IndexedVector) (int, []models.UpsertFailure, error) {
	if f.upsertErr != nil {
		return 0, nil, f.upsertErr
	}
	f.upserted = append(f.upserted, items)
	var failures []models.UpsertFailure
	inserted := 0
	for i, item := range items {
		if reason, ok := f.failAt[i]; ok {
			failures = append(failures, models.UpsertFailure{ChunkID: item.Metadata.ChunkID, Reason: reason})
			continue
		}
		inserted++
	}
	return inserted, failures, nil
}

func (f *fakeIndex) NearestNeighbors(ctx context.Context, vector []float32, limit int, filter *models.MetadataFilter) ([]models.NeighborHit, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.hits) {
		return f.hits[:limit], nil
	}
	return f.hits, nil
}

func hitAt(distance float64, chunkID string) models.NeighborHit {
	return models.NeighborHit{
		Distance: distance,
		Metadata: models.IndexedMetadata{
			ChunkID:     chunkID,
			Content:     "content of " + chunkID,
			ContentKind: string(models.KindHighValueReply),
			Author:      "someone",
			Score:       5,
		},
	}
}

func TestRetrieve_ThresholdInclusive(t *testing.T) {
	index := &fakeIndex{hits: []models.NeighborHit{
		hitAt(0.10, "close"),
		hitAt(0.70, "boundary"),
		hitAt(0.71, "beyond"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, RetrieverOptions{})

	results := r.Retrieve(context.Background(), "how to sit")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ChunkID != "close" || results[1].ChunkID != "boundary" {
		t.Errorf("results = %q, %q; want close, boundary", results[0].ChunkID, results[1].ChunkID)
	}
	if results[1].Distance != 0.70 {
		t.Errorf("boundary distance = %f, want exactly 0.70 kept", results[1].Distance)
	}
}

func TestRetrieve_RelevanceAndOrder(t *testing.T) {
	index := &fakeIndex{hits: []models.NeighborHit{
		hitAt(0.20, "first"),
		hitAt(0.35, "second"),
		hitAt(0.50, "third"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, RetrieverOptions{})

	results := r.Retrieve(context.Background(), "query")
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"first", "second", "third"} {
		if results[i].ChunkID != want {
			t.Errorf("result %d = %q, want %q (store order must be preserved)", i, results[i].ChunkID, want)
		}
	}
	if got := results[0].Relevance; got != 0.8 {
		t.Errorf("relevance = %f, want 0.8", got)
	}
}

func TestRetrieve_EmbedFailureDegradesToEmpty(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{err: errors.New("service down")}, &fakeIndex{}, RetrieverOptions{})
	if results := r.Retrieve(context.Background(), "query"); results != nil {
		t.Errorf("got %d results on embed failure, want none", len(results))
	}
}

func TestRetrieve_SearchFailureDegradesToEmpty(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{}, &fakeIndex{searchErr: errors.New("store down")}, RetrieverOptions{})
	if results := r.Retrieve(context.Background(), "query"); results != nil {
		t.Errorf("got %d results on search failure, want none", len(results))
	}
}

func TestRetrieveWithOptions_LimitOverride(t *testing.T) {
	index := &fakeIndex{hits: []models.NeighborHit{
		hitAt(0.1, "a"), hitAt(0.2, "b"), hitAt(0.3, "c"),
	}}
	r := NewRetriever(&fakeEmbedder{}, index, RetrieverOptions{})

	results := r.RetrieveWithOptions(context.Background(), "query", 2, 0.7)
	if len(results) != 2 {
		t.Errorf("got %d results, want 2", len(results))
	}
}

func TestFormatContext(t *testing.T) {
	results := []models.RetrievalResult{
		{
			ContentKind: models.KindPostWithReplies,
			Title:       "Evening practice",
			Author:      "alice",
			Score:       14,
			Relevance:   0.82,
			Content:     "Title: Evening practice ...",
		},
		{
			ContentKind: models.KindHighValueReply,
			Author:      "",
			Score:       30,
			Relevance:   0.63,
			Content:     "High-Value Response: ...",
		},
	}

	got := FormatContext(results)
	for _, want := range []string{
		"Here is relevant mindfulness content from the community archive:",
		"--- Source 1 ---",
		"Type: post_with_comments",
		"Title: Evening practice",
		"Author: alice",
		"Community Score: 14",
		"Relevance: 0.82",
		"--- Source 2 ---",
		"Author: Unknown",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("context missing %q\ngot:\n%s", want, got)
		}
	}
	if strings.HasSuffix(got, "\n") {
		t.Error("context should not end with trailing newlines")
	}
}

func TestFormatContext_Empty(t *testing.T) {
	if got := FormatContext(nil); got != "" {
		t.Errorf("FormatContext(nil) = %q, want empty", got)
	}
}
