package mock

import (
	"context"
	"strings"
)

// MockCrossEncoder is a test double for ai.CrossEncoder.
// It allows custom behavior injection via function fields.
type MockCrossEncoder struct {
	// ScorePairsFunc is called by ScorePairs if set.
	// If nil, uses default token-overlap scoring.
	ScorePairsFunc func(ctx context.Context, query string, documents []string) ([]float32, error)

	callCount int
}

// NewMockCrossEncoder creates a mock cross-encoder with default
// deterministic behavior.
// Note: Returns concrete type to allow test assertions.
func NewMockCrossEncoder() *MockCrossEncoder {
	return &MockCrossEncoder{}
}

// ScorePairs scores each document by the fraction of query tokens it
// contains. A document containing every query token scores 1.
func (m *MockCrossEncoder) ScorePairs(ctx context.Context, query string, documents []string) ([]float32, error) {
	m.callCount++

	if m.ScorePairsFunc != nil {
		return m.ScorePairsFunc(ctx, query, documents)
	}

	queryTokens := strings.Fields(strings.ToLower(query))
	scores := make([]float32, len(documents))
	for i, doc := range documents {
		scores[i] = tokenOverlap(queryTokens, strings.ToLower(doc))
	}
	return scores, nil
}

// CallCount returns the number of times ScorePairs was called.
func (m *MockCrossEncoder) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockCrossEncoder) Reset() {
	m.callCount = 0
	m.ScorePairsFunc = nil
}

func tokenOverlap(queryTokens []string, doc string) float32 {
	if len(queryTokens) == 0 {
		return 0
	}
	var hits int
	for _, tok := range queryTokens {
		if strings.Contains(doc, tok) {
			hits++
		}
	}
	return float32(hits) / float32(len(queryTokens))
}
