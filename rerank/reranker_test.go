package rerank

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/noesis/ai/mock"
	"github.com/poiesic/noesis/core"
)

func TestRerankOrdersByScore(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	encoder.ScorePairsFunc = func(ctx context.Context, query string, documents []string) ([]float32, error) {
		return []float32{0.1, 0.9, 0.5}, nil
	}
	r := New(encoder)

	ranked, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("failed to rerank: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("expected 3 results, got %d", len(ranked))
	}
	if ranked[0].Index != 1 || ranked[1].Index != 2 || ranked[2].Index != 0 {
		t.Fatalf("wrong order: %+v", ranked)
	}
	if ranked[0].Text != "b" {
		t.Fatalf("text not carried: %+v", ranked[0])
	}
}

func TestRerankTopK(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	encoder.ScorePairsFunc = func(ctx context.Context, query string, documents []string) ([]float32, error) {
		return []float32{0.1, 0.9, 0.5}, nil
	}
	r := New(encoder)

	ranked, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 2)
	if err != nil {
		t.Fatalf("failed to rerank: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].Index != 1 || ranked[1].Index != 2 {
		t.Fatalf("wrong order: %+v", ranked)
	}
}

func TestRerankTiesPreserveInputOrder(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	encoder.ScorePairsFunc = func(ctx context.Context, query string, documents []string) ([]float32, error) {
		return []float32{0.5, 0.5, 0.5}, nil
	}
	r := New(encoder)

	ranked, err := r.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 0)
	if err != nil {
		t.Fatalf("failed to rerank: %v", err)
	}
	for i, rd := range ranked {
		if rd.Index != i {
			t.Fatalf("tie order broken: %+v", ranked)
		}
	}
}

func TestRerankEmptyInput(t *testing.T) {
	r := New(mock.NewMockCrossEncoder())

	ranked, err := r.Rerank(context.Background(), "q", nil, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 0 {
		t.Fatalf("expected empty result, got %d", len(ranked))
	}
}

func TestRerankEncoderError(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	wantErr := errors.New("service down")
	encoder.ScorePairsFunc = func(ctx context.Context, query string, documents []string) ([]float32, error) {
		return nil, wantErr
	}
	r := New(encoder)

	if _, err := r.Rerank(context.Background(), "q", []string{"a"}, 0); !errors.Is(err, wantErr) {
		t.Fatalf("expected encoder error, got %v", err)
	}
}

func TestRerankResultsStampsProvenance(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	encoder.ScorePairsFunc = func(ctx context.Context, query string, documents []string) ([]float32, error) {
		return []float32{0.2, 0.8}, nil
	}
	r := New(encoder)

	input := []*core.RetrievalResult{
		{ID: 1, Score: 0.99, Content: "first"},
		{ID: 2, Score: 0.98, Content: "second"},
	}
	reranked, err := r.RerankResults(context.Background(), "q", input, 0)
	if err != nil {
		t.Fatalf("failed to rerank results: %v", err)
	}

	if reranked[0].ID != 2 {
		t.Fatalf("expected id 2 first, got %d", reranked[0].ID)
	}
	if reranked[0].Score != 0.8 || reranked[0].OriginalScore != 0.98 {
		t.Fatalf("scores not stamped: %+v", reranked[0])
	}
	if !reranked[0].Reranked || !reranked[1].Reranked {
		t.Fatal("results not marked reranked")
	}
	// inputs untouched
	if input[0].Reranked || input[0].Score != 0.99 {
		t.Fatalf("input mutated: %+v", input[0])
	}
}

func TestResolveModel(t *testing.T) {
	info := ResolveModel(DefaultModel)
	if info.Name != "cross-encoder/ms-marco-MiniLM-L-6-v2" {
		t.Fatalf("unexpected model name %q", info.Name)
	}

	custom := ResolveModel("my-org/my-reranker")
	if custom.Name != "my-org/my-reranker" || custom.MaxLength != 512 {
		t.Fatalf("unexpected custom model info: %+v", custom)
	}

	models := ListAvailableModels()
	if len(models) != 5 {
		t.Fatalf("expected 5 known models, got %d", len(models))
	}
}
