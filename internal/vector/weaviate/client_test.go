// ABOUTME: Tests for the Weaviate REST client against a local fake server
// ABOUTME: Verifies schema replacement, per-item upsert failures, and search parsing
package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stillpoint/stillpoint/internal/models"
)

func TestEnsureCollection_DeletesThenCreates(t *testing.T) {
	var calls []string
	var createBody map[string]any

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/schema/MindfulnessContent":
			// Missing class: Weaviate answers 200 anyway
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
			json.NewDecoder(r.Body).Decode(&createBody)
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	if err := client.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}

	want := []string{
		"DELETE /v1/schema/MindfulnessContent",
		"POST /v1/schema",
	}
	if len(calls) != 2 || calls[0] != want[0] || calls[1] != want[1] {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	if createBody["class"] != "MindfulnessContent" {
		t.Errorf("class = %v, want MindfulnessContent", createBody["class"])
	}
	if createBody["vectorizer"] != "none" {
		t.Errorf("vectorizer = %v, want none", createBody["vectorizer"])
	}
	props, _ := createBody["properties"].([]any)
	if len(props) != 12 {
		t.Errorf("schema has %d properties, want 12", len(props))
	}
}

func TestEnsureCollection_CreateFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, `{"error":"schema rejected"}`, http.StatusUnprocessableEntity)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	err := client.EnsureCollection(context.Background())
	if err == nil {
		t.Fatal("EnsureCollection() should surface a create failure")
	}
	storeErr, ok := err.(*StoreError)
	if !ok {
		t.Fatalf("error type = %T, want *StoreError", err)
	}
	if storeErr.Status != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", storeErr.Status)
	}
}

func testVector(chunkID string) models.IndexedVector {
	return models.IndexedVector{
		Vector: []float32{0.1, 0.2},
		Metadata: models.IndexedMetadata{
			Content:     "content of " + chunkID,
			ChunkID:     chunkID,
			Tier:        1,
			ContentKind: "post_with_comments",
			CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			IndexedAt:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestUpsertMany_PerItemFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/batch/objects" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[
			{"result": {"status": "SUCCESS"}},
			{"result": {"status": "FAILED", "errors": {"error": [{"message": "invalid date"}]}}},
			{"result": {"status": "SUCCESS"}}
		]`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	items := []models.IndexedVector{testVector("l1_a"), testVector("l1_b"), testVector("l1_c")}

	inserted, failures, err := client.UpsertMany(context.Background(), items)
	if err != nil {
		t.Fatalf("UpsertMany() error = %v, per-item failures must not be an error", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	if failures[0].ChunkID != "l1_b" || failures[0].Reason != "invalid date" {
		t.Errorf("failure = %+v, want l1_b / invalid date", failures[0])
	}
}

func TestUpsertMany_ShortResponseMarksTailFailed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"result": {"status": "SUCCESS"}}]`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	inserted, failures, err := client.UpsertMany(context.Background(),
		[]models.IndexedVector{testVector("a"), testVector("b")})
	if err != nil {
		t.Fatalf("UpsertMany() error = %v", err)
	}
	if inserted != 1 || len(failures) != 1 {
		t.Fatalf("inserted %d failures %d, want 1 and 1", inserted, len(failures))
	}
	if failures[0].ChunkID != "b" {
		t.Errorf("tail failure = %q, want b", failures[0].ChunkID)
	}
}

func TestUpsertMany_StableObjectIDs(t *testing.T) {
	// The same chunk must map to the same object ID on every write, so
	// a resumed index run overwrites instead of duplicating
	var batches [][]struct {
		ID string `json:"id"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Objects []struct {
				ID string `json:"id"`
			} `json:"objects"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		batches = append(batches, body.Objects)
		fmt.Fprint(w, `[{"result": {"status": "SUCCESS"}}]`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	for i := 0; i < 2; i++ {
		if _, _, err := client.UpsertMany(context.Background(), []models.IndexedVector{testVector("l3_hv1")}); err != nil {
			t.Fatalf("UpsertMany() error = %v", err)
		}
	}

	if len(batches) != 2 || len(batches[0]) != 1 || len(batches[1]) != 1 {
		t.Fatalf("batches = %v, want two single-object batches", batches)
	}
	first, second := batches[0][0].ID, batches[1][0].ID
	if first == "" {
		t.Fatal("batch object carries no id; the store would assign a fresh one per write")
	}
	if first != second {
		t.Errorf("object ids differ across writes: %q vs %q", first, second)
	}
	if first != objectID("l3_hv1") {
		t.Errorf("object id = %q, want the chunk-derived id %q", first, objectID("l3_hv1"))
	}
	if other := objectID("l3_hv2"); other == first {
		t.Error("distinct chunks must map to distinct object ids")
	}
}

func TestUpsertMany_RequestLevelFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	_, _, err := client.UpsertMany(context.Background(), []models.IndexedVector{testVector("a")})
	if err == nil {
		t.Fatal("UpsertMany() should surface a request-level failure")
	}
}

func TestUpsertMany_Empty(t *testing.T) {
	client := New(Config{BaseURL: "http://localhost:1"})
	inserted, failures, err := client.UpsertMany(context.Background(), nil)
	if inserted != 0 || failures != nil || err != nil {
		t.Errorf("empty upsert = %d, %v, %v; want all zero without a request", inserted, failures, err)
	}
}

func TestNearestNeighbors(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/graphql" {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Query

		fmt.Fprint(w, `{"data": {"Get": {"MindfulnessContent": [
			{"content": "c1", "chunkId": "l1_a", "tier": 1, "score": 7, "author": "alice", "_additional": {"distance": 0.12}},
			{"content": "c2", "chunkId": "l3_b", "tier": 3, "score": 30, "_additional": {"distance": 0.44}}
		]}}}`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	hits, err := client.NearestNeighbors(context.Background(), []float32{0.5, 0.5}, 5, nil)
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Metadata.ChunkID != "l1_a" || hits[0].Distance != 0.12 {
		t.Errorf("hit 0 = %q at %f, want l1_a at 0.12", hits[0].Metadata.ChunkID, hits[0].Distance)
	}
	if hits[1].Metadata.Tier != 3 || hits[1].Metadata.Score != 30 {
		t.Errorf("hit 1 metadata = %+v", hits[1].Metadata)
	}

	for _, want := range []string{"nearVector", "limit: 5", "_additional { distance }", "MindfulnessContent"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query missing %q:\n%s", want, gotQuery)
		}
	}
	if strings.Contains(gotQuery, "where:") {
		t.Error("query must not carry a where clause without a filter")
	}
}

func TestNearestNeighbors_Filter(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		gotQuery = body.Query
		fmt.Fprint(w, `{"data": {"Get": {"MindfulnessContent": []}}}`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})

	_, err := client.NearestNeighbors(context.Background(), []float32{1}, 3,
		&models.MetadataFilter{Field: "tier", Value: 3})
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if !strings.Contains(gotQuery, `where: {path: ["tier"], operator: Equal, valueInt: 3}`) {
		t.Errorf("query missing int filter:\n%s", gotQuery)
	}

	_, err = client.NearestNeighbors(context.Background(), []float32{1}, 3,
		&models.MetadataFilter{Field: "sourcePostId", Value: "p1"})
	if err != nil {
		t.Fatalf("NearestNeighbors() error = %v", err)
	}
	if !strings.Contains(gotQuery, `where: {path: ["sourcePostId"], operator: Equal, valueText: "p1"}`) {
		t.Errorf("query missing text filter:\n%s", gotQuery)
	}

	if _, err := client.NearestNeighbors(context.Background(), []float32{1}, 3,
		&models.MetadataFilter{Field: "score", Value: 1.5}); err == nil {
		t.Error("unsupported filter value type should fail")
	}
}

func TestNearestNeighbors_GraphQLErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "class not found"}]}`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL})
	_, err := client.NearestNeighbors(context.Background(), []float32{1}, 3, nil)
	if err == nil || !strings.Contains(err.Error(), "class not found") {
		t.Errorf("error = %v, want the GraphQL error surfaced", err)
	}
}

func TestSetHeaders_BearerAuth(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data": {"Get": {}}}`)
	}))
	defer ts.Close()

	client := New(Config{BaseURL: ts.URL, APIKey: "secret"})
	client.NearestNeighbors(context.Background(), []float32{1}, 1, nil)
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
}

func TestPropertiesFor_ZeroCreatedAtFallsBack(t *testing.T) {
	indexedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	props := propertiesFor(models.IndexedMetadata{ChunkID: "x", IndexedAt: indexedAt})
	if props["createdAt"] != "2024-06-01T12:00:00Z" {
		t.Errorf("createdAt = %v, want the indexedAt fallback", props["createdAt"])
	}
}
