package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Ensure SemanticSearch implements SemanticSearcher
var _ driven.SemanticSearcher = (*SemanticSearch)(nil)

// QueryEmbedder turns query text into a vector. The OpenAI embedding
// client satisfies this.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Close() error
}

// SemanticSearch implements the semantic retrieval path against a Qdrant
// collection holding the chunk corpus mirror. Points carry the chunk ID
// in their payload; ingestion is owned by an external indexing job.
type SemanticSearch struct {
	baseURL    string
	collection string
	embedder   QueryEmbedder
	client     *http.Client
}

// NewSemanticSearch creates a semantic searcher over a Qdrant collection
func NewSemanticSearch(baseURL, collection string, embedder QueryEmbedder) (*SemanticSearch, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("Qdrant URL is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("Qdrant collection is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("query embedder is required")
	}

	return &SemanticSearch{
		baseURL:    baseURL,
		collection: collection,
		embedder:   embedder,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// searchRequest is the body for the Qdrant points search API
type searchRequest struct {
	Vector      []float32 `json:"vector"`
	Limit       int       `json:"limit"`
	WithPayload bool      `json:"with_payload"`
}

// searchResponse is the response from the Qdrant points search API
type searchResponse struct {
	Result []struct {
		ID      json.RawMessage        `json:"id"`
		Score   float64                `json:"score"`
		Payload map[string]interface{} `json:"payload"`
	} `json:"result"`
	Status interface{} `json:"status"`
}

// Embed generates an embedding for a query text
func (s *SemanticSearch) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.embedder.EmbedQuery(ctx, text)
}

// Query returns the k nearest chunks for the embedding, rank 1-based,
// nearest first
func (s *SemanticSearch) Query(ctx context.Context, embedding []float32, k int) ([]domain.RankedEntry, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", domain.ErrInvalidInput)
	}
	if k <= 0 {
		return nil, nil
	}

	body, err := json.Marshal(searchRequest{
		Vector:      embedding,
		Limit:       k,
		WithPayload: true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", s.baseURL, s.collection)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Qdrant returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var searchResp searchResponse
	if err := json.Unmarshal(respBody, &searchResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	entries := make([]domain.RankedEntry, 0, len(searchResp.Result))
	for i, point := range searchResp.Result {
		chunkID := payloadChunkID(point.Payload)
		if chunkID == "" {
			// fall back to the point ID for collections indexed by chunk ID
			chunkID = rawID(point.ID)
		}
		if chunkID == "" {
			continue
		}
		entries = append(entries, domain.RankedEntry{
			ChunkID: chunkID,
			Rank:    i + 1,
			Score:   point.Score,
		})
	}
	return entries, nil
}

// HealthCheck verifies the collection exists and is reachable
func (s *SemanticSearch) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", s.baseURL, s.collection)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: collection %s returned status %d", domain.ErrServiceUnavailable, s.collection, resp.StatusCode)
	}
	return nil
}

// Close releases the embedder and idle connections
func (s *SemanticSearch) Close() error {
	s.client.CloseIdleConnections()
	return s.embedder.Close()
}

func payloadChunkID(payload map[string]interface{}) string {
	if payload == nil {
		return ""
	}
	if v, ok := payload["chunk_id"].(string); ok {
		return v
	}
	return ""
}

func rawID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
