package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type stubEmbedder struct {
	vector []float32
	err    error
	closed bool
}

func (s *stubEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func (s *stubEmbedder) Close() error {
	s.closed = true
	return nil
}

func TestNewSemanticSearch_Validation(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{0.1}}

	if _, err := NewSemanticSearch("", "legal_chunks", emb); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewSemanticSearch("http://localhost:6333", "", emb); err == nil {
		t.Error("expected error for empty collection")
	}
	if _, err := NewSemanticSearch("http://localhost:6333", "legal_chunks", nil); err == nil {
		t.Error("expected error for nil embedder")
	}
}

func TestSemanticSearch_Query_RanksResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/legal_chunks/points/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.Limit != 3 || !req.WithPayload {
			t.Errorf("unexpected request %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":[
			{"id":1,"score":0.95,"payload":{"chunk_id":"chunk-7"}},
			{"id":2,"score":0.81,"payload":{"chunk_id":"chunk-2"}},
			{"id":"chunk-9","score":0.64,"payload":{}}
		],"status":"ok"}`))
	}))
	defer server.Close()

	svc, err := NewSemanticSearch(server.URL, "legal_chunks", &stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := svc.Query(context.Background(), []float32{0.1, 0.2}, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ChunkID != "chunk-7" || entries[0].Rank != 1 || entries[0].Score != 0.95 {
		t.Errorf("unexpected first entry %+v", entries[0])
	}
	// payload without chunk_id falls back to the point ID
	if entries[2].ChunkID != "chunk-9" || entries[2].Rank != 3 {
		t.Errorf("unexpected third entry %+v", entries[2])
	}
}

func TestSemanticSearch_Query_EmptyEmbedding(t *testing.T) {
	svc, err := NewSemanticSearch("http://localhost:6333", "legal_chunks", &stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Query(context.Background(), nil, 5); err == nil {
		t.Error("expected error for empty embedding")
	}
}

func TestSemanticSearch_Query_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	svc, err := NewSemanticSearch(server.URL, "legal_chunks", &stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Query(context.Background(), []float32{0.1}, 5); err == nil {
		t.Error("expected error from server failure")
	}
}

func TestSemanticSearch_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/legal_chunks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":{"status":"green"},"status":"ok"}`))
	}))
	defer server.Close()

	svc, err := NewSemanticSearch(server.URL, "legal_chunks", &stubEmbedder{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected health check error: %v", err)
	}
}

func TestSemanticSearch_Close_ReleasesEmbedder(t *testing.T) {
	emb := &stubEmbedder{}
	svc, err := NewSemanticSearch("http://localhost:6333", "legal_chunks", emb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := svc.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !emb.closed {
		t.Error("expected embedder closed")
	}
}
