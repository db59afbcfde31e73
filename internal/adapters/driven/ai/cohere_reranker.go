package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/clauseguard/clauseguard-core/internal/core/domain"
	"github.com/clauseguard/clauseguard-core/internal/core/ports/driven"
)

// Ensure CohereReranker implements Reranker
var _ driven.Reranker = (*CohereReranker)(nil)

// CohereReranker implements Reranker using Cohere's rerank API behind a
// circuit breaker. Rerank is a best-effort refinement, so when Cohere is
// unhealthy the breaker fails calls fast and callers fall back to the
// fusion ordering instead of waiting out the timeout on every search.
type CohereReranker struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewCohereReranker creates a new Cohere rerank client
func NewCohereReranker(apiKey, model, baseURL string) (driven.Reranker, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Cohere API key is required")
	}

	if model == "" {
		model = "rerank-v3.5"
	}

	if baseURL == "" {
		baseURL = "https://api.cohere.com/v2"
	}

	settings := gobreaker.Settings{
		Name:    "cohere-rerank",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &CohereReranker{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}, nil
}

// rerankRequest is the request body for the Cohere rerank API
type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

// rerankResponse is the response from the Cohere rerank API
type rerankResponse struct {
	ID      string `json:"id"`
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

// Rerank scores candidates against the query and returns at most topN
// entries ordered by descending relevance
func (r *CohereReranker) Rerank(ctx context.Context, query string, candidates []driven.RerankCandidate, topN int) ([]domain.RerankedEntry, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Content
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.doRequest(ctx, rerankRequest{
			Model:     r.model,
			Query:     query,
			Documents: docs,
			TopN:      topN,
		})
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: rerank circuit open", domain.ErrServiceUnavailable)
		}
		return nil, err
	}

	resp := result.(*rerankResponse)
	entries := make([]domain.RerankedEntry, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		entries = append(entries, domain.RerankedEntry{
			ChunkID:   candidates[res.Index].ChunkID,
			Relevance: res.RelevanceScore,
		})
	}
	return entries, nil
}

// Model returns the model identifier for logging
func (r *CohereReranker) Model() string {
	return r.model
}

// doRequest makes a request to the Cohere rerank API
func (r *CohereReranker) doRequest(ctx context.Context, reqBody rerankRequest) (*rerankResponse, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var rerankResp rerankResponse
	if err := json.Unmarshal(respBody, &rerankResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if rerankResp.Message != "" {
			return nil, fmt.Errorf("Cohere API error %d: %s", resp.StatusCode, rerankResp.Message)
		}
		return nil, fmt.Errorf("Cohere API returned status %d", resp.StatusCode)
	}

	return &rerankResp, nil
}
