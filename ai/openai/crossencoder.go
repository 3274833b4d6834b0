package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/poiesic/noesis/ai"
)

const defaultRerankTimeout = 30 * time.Second

// CrossEncoder implements ai.CrossEncoder against a Jina-style
// /rerank HTTP endpoint. A circuit breaker shields callers from a
// flapping rerank service: once it opens, calls fail fast and the
// caller can fall back to vector-order results.
type CrossEncoder struct {
	host    string
	model   string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// newCrossEncoder is an internal constructor that returns the concrete type.
func newCrossEncoder(config *ai.Config) (*CrossEncoder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rerank",
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &CrossEncoder{
		host:    config.RerankHost,
		model:   config.RerankModel,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: defaultRerankTimeout},
		breaker: breaker,
		logger:  slog.Default().With("component", "openai-crossencoder"),
	}, nil
}

// NewCrossEncoder creates a rerank client using the provided configuration.
//
// Returns ai.CrossEncoder interface to enforce abstraction.
func NewCrossEncoder(config *ai.Config) (ai.CrossEncoder, error) {
	return newCrossEncoder(config)
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float32 `json:"relevance_score"`
	} `json:"results"`
}

// ScorePairs scores each document against the query. Scores are
// returned in input order regardless of the order the service ranks
// them in.
func (c *CrossEncoder) ScorePairs(ctx context.Context, query string, documents []string) ([]float32, error) {
	if len(documents) == 0 {
		return []float32{}, nil
	}

	c.logger.Debug("scoring pairs", "documents", len(documents))

	result, err := c.breaker.Execute(func() (any, error) {
		return c.doRerank(ctx, query, documents)
	})
	if err != nil {
		c.logger.Error("rerank call failed", "err", err)
		return nil, err
	}
	return result.([]float32), nil
}

func (c *CrossEncoder) doRerank(ctx context.Context, query string, documents []string) ([]float32, error) {
	payload, err := json.Marshal(rerankRequest{
		Query:     query,
		Documents: documents,
		Model:     c.model,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/rerank", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rerank request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rerank service error: status=%d body=%s", resp.StatusCode, string(body))
	}

	var decoded rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}

	scores := make([]float32, len(documents))
	for _, r := range decoded.Results {
		if r.Index < 0 || r.Index >= len(documents) {
			return nil, fmt.Errorf("rerank service returned out-of-range index %d", r.Index)
		}
		scores[r.Index] = r.RelevanceScore
	}
	return scores, nil
}
