// ABOUTME: Minimal REST client for a Weaviate vector store
// ABOUTME: Create-or-replace collection, batch upsert with per-item failures, nearVector search
package weaviate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stillpoint/stillpoint/internal/models"
)

// DefaultCollection is the class name the corpus is indexed under
const DefaultCollection = "MindfulnessContent"

// collectionProperties is the fixed, predeclared property schema.
// Weaviate property names must be lowerCamel.
var collectionProperties = []property{
	{Name: "content", DataType: []string{"text"}},
	{Name: "chunkId", DataType: []string{"text"}},
	{Name: "tier", DataType: []string{"int"}},
	{Name: "contentKind", DataType: []string{"text"}},
	{Name: "sourcePostId", DataType: []string{"text"}},
	{Name: "author", DataType: []string{"text"}},
	{Name: "score", DataType: []string{"int"}},
	{Name: "createdAt", DataType: []string{"date"}},
	{Name: "title", DataType: []string{"text"}},
	{Name: "permalink", DataType: []string{"text"}},
	{Name: "embeddingModel", DataType: []string{"text"}},
	{Name: "indexedAt", DataType: []string{"date"}},
}

type property struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

// StoreError is a connection-level or request-level vector store
// failure. Per-item upsert failures are reported separately and never
// carried as a StoreError.
type StoreError struct {
	Op     string
	Status int
	Msg    string
}

func (e *StoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("weaviate %s: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("weaviate %s: %s", e.Op, e.Msg)
}

// Config holds connection settings for the store
type Config struct {
	BaseURL    string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Client speaks Weaviate's REST and GraphQL APIs. Distances returned
// by NearestNeighbors are cosine distances: lower is more similar,
// matching the retriever's threshold convention.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	http       *http.Client
}

// New creates a store client
func New(cfg Config) *Client {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		http:       &http.Client{Timeout: timeout},
	}
}

// Collection returns the class name this client targets
func (c *Client) Collection() string {
	return c.collection
}

// EnsureCollection drops any existing class of this name and recreates
// it with the predeclared schema. The store is the vectorizer-none
// kind; vectors are always supplied by the caller.
func (c *Client) EnsureCollection(ctx context.Context) error {
	// Delete is idempotent; a missing class is not an error
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/v1/schema/"+c.collection, nil)
	if err != nil {
		return &StoreError{Op: "delete collection", Msg: err.Error()}
	}
	c.setHeaders(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return &StoreError{Op: "delete collection", Msg: err.Error()}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	body := map[string]any{
		"class":      c.collection,
		"vectorizer": "none",
		"properties": collectionProperties,
	}
	return c.postJSON(ctx, "/v1/schema", "create collection", body, nil)
}

// UpsertMany writes vectors in one batch request. Items the store
// rejects are returned as failures; they do not abort the batch.
func (c *Client) UpsertMany(ctx context.Context, items []models.IndexedVector) (int, []models.UpsertFailure, error) {
	if len(items) == 0 {
		return 0, nil, nil
	}

	objects := make([]map[string]any, len(items))
	for i, item := range items {
		objects[i] = map[string]any{
			"class":      c.collection,
			"id":         objectID(item.Metadata.ChunkID),
			"properties": propertiesFor(item.Metadata),
			"vector":     item.Vector,
		}
	}

	var results []struct {
		Result struct {
			Status string `json:"status"`
			Errors struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := c.postJSON(ctx, "/v1/batch/objects", "batch upsert", map[string]any{"objects": objects}, &results); err != nil {
		return 0, nil, err
	}

	inserted := 0
	var failures []models.UpsertFailure
	for i, r := range results {
		if len(r.Result.Errors.Error) > 0 {
			failures = append(failures, models.UpsertFailure{
				ChunkID: items[i].Metadata.ChunkID,
				Reason:  r.Result.Errors.Error[0].Message,
			})
			continue
		}
		inserted++
	}
	// A response shorter than the request means the tail was dropped
	for i := len(results); i < len(items); i++ {
		failures = append(failures, models.UpsertFailure{
			ChunkID: items[i].Metadata.ChunkID,
			Reason:  "no result returned for item",
		})
	}
	return inserted, failures, nil
}

// NearestNeighbors runs a nearVector query. Results arrive ordered by
// ascending distance; ties keep the store's insertion order and are
// not re-sorted here.
func (c *Client) NearestNeighbors(ctx context.Context, vector []float32, limit int, filter *models.MetadataFilter) ([]models.NeighborHit, error) {
	if limit <= 0 {
		limit = 5
	}

	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return nil, &StoreError{Op: "search", Msg: err.Error()}
	}

	where := ""
	if filter != nil {
		switch v := filter.Value.(type) {
		case string:
			where = fmt.Sprintf(`, where: {path: [%q], operator: Equal, valueText: %q}`, filter.Field, v)
		case int:
			where = fmt.Sprintf(`, where: {path: [%q], operator: Equal, valueInt: %d}`, filter.Field, v)
		default:
			return nil, &StoreError{Op: "search", Msg: fmt.Sprintf("unsupported filter value type %T", filter.Value)}
		}
	}

	query := fmt.Sprintf(`{
  Get {
    %s(nearVector: {vector: %s}, limit: %d%s) {
      content chunkId tier contentKind sourcePostId author score createdAt title permalink embeddingModel indexedAt
      _additional { distance }
    }
  }
}`, c.collection, vectorJSON, limit, where)

	var resp struct {
		Data struct {
			Get map[string]json.RawMessage `json:"Get"`
		} `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := c.postJSON(ctx, "/v1/graphql", "search", map[string]any{"query": query}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Errors) > 0 {
		return nil, &StoreError{Op: "search", Msg: resp.Errors[0].Message}
	}

	raw, ok := resp.Data.Get[c.collection]
	if !ok {
		return nil, nil
	}

	var rows []struct {
		models.IndexedMetadata
		Additional struct {
			Distance float64 `json:"distance"`
		} `json:"_additional"`
	}
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &StoreError{Op: "search", Msg: "malformed response: " + err.Error()}
	}

	hits := make([]models.NeighborHit, len(rows))
	for i, row := range rows {
		hits[i] = models.NeighborHit{Metadata: row.IndexedMetadata, Distance: row.Additional.Distance}
	}
	return hits, nil
}

// objectID derives a stable object UUID from the chunk ID, so writing
// the same chunk twice overwrites instead of duplicating. Resumed index
// runs depend on this.
func objectID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func propertiesFor(m models.IndexedMetadata) map[string]any {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = m.IndexedAt
	}
	return map[string]any{
		"content":        m.Content,
		"chunkId":        m.ChunkID,
		"tier":           m.Tier,
		"contentKind":    m.ContentKind,
		"sourcePostId":   m.SourcePostID,
		"author":         m.Author,
		"score":          m.Score,
		"createdAt":      createdAt.UTC().Format(time.RFC3339),
		"title":          m.Title,
		"permalink":      m.Permalink,
		"embeddingModel": m.EmbeddingModel,
		"indexedAt":      m.IndexedAt.UTC().Format(time.RFC3339),
	}
}

func (c *Client) postJSON(ctx context.Context, path, op string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return &StoreError{Op: op, Msg: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &StoreError{Op: op, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &StoreError{Op: op, Msg: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &StoreError{Op: op, Status: resp.StatusCode, Msg: string(msg)}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &StoreError{Op: op, Msg: "malformed response: " + err.Error()}
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
