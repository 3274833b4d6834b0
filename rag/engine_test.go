package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/noesis/ai/mock"
	"github.com/poiesic/noesis/core"
	"github.com/poiesic/noesis/graph"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/vector"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()

	vectors, err := vector.New(mock.DefaultDimension)
	if err != nil {
		t.Fatalf("failed to create vector store: %v", err)
	}
	graphStore := graph.NewMemoryStore(t)

	engine, err := New(vectors, graphStore, mock.NewMockProvider(), opts...)
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func ingest(t *testing.T, e *Engine, id, content string, entities ...core.EntityMention) {
	t.Helper()
	err := e.AddDocument(context.Background(), &core.Document{
		ID:      id,
		Title:   id,
		Content: content,
	}, entities)
	if err != nil {
		t.Fatalf("failed to ingest %s: %v", id, err)
	}
}

func TestAddDocumentAndRetrieve(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "artificial intelligence and machine learning")
	ingest(t, engine, "doc2", "cooking pasta with fresh tomatoes")

	results, err := engine.Retrieve(ctx, "artificial intelligence and machine learning", 1, false, false)
	if err != nil {
		t.Fatalf("failed to retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "artificial intelligence and machine learning" {
		t.Fatalf("wrong result: %+v", results[0])
	}
	if results[0].Score <= 0 {
		t.Fatalf("expected positive cosine score, got %f", results[0].Score)
	}

	docID, err := engine.graph.DocumentIDByVectorID(ctx, results[0].ID)
	if err != nil {
		t.Fatalf("vector id not mapped: %v", err)
	}
	if docID != "doc1" {
		t.Fatalf("expected doc1, got %q", docID)
	}
}

func TestAddDocumentInvalid(t *testing.T) {
	engine := newTestEngine(t)

	err := engine.AddDocument(context.Background(), &core.Document{Content: "no id"}, nil)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestReingestTombstonesOldVector(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "first version")
	firstID, err := engine.graph.VectorID(ctx, "doc1")
	if err != nil {
		t.Fatalf("failed to get vector id: %v", err)
	}

	ingest(t, engine, "doc1", "second version")
	secondID, err := engine.graph.VectorID(ctx, "doc1")
	if err != nil {
		t.Fatalf("failed to get vector id: %v", err)
	}

	if firstID == secondID {
		t.Fatalf("expected fresh vector id on re-ingest, got %d twice", firstID)
	}
	if engine.vectors.Len() != 1 {
		t.Fatalf("expected 1 live vector, got %d", engine.vectors.Len())
	}

	results, err := engine.Retrieve(ctx, "second version", 5, false, false)
	if err != nil {
		t.Fatalf("failed to retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Content != "second version" {
		t.Fatalf("old vector still searchable: %+v", results)
	}
}

func TestRetrieveGraphContext(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "the go programming language",
		core.EntityMention{ID: "go", Name: "Go", Type: core.EntityTypeTechnology},
		core.EntityMention{ID: "google", Name: "Google", Type: core.EntityTypeOrganization},
	)

	results, err := engine.Retrieve(ctx, "the go programming language", 1, true, false)
	if err != nil {
		t.Fatalf("failed to retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if len(results[0].Entities) != 2 {
		t.Fatalf("expected 2 attached entities, got %d", len(results[0].Entities))
	}
}

func TestRetrieveEmptyEntityTypeDefaultsToOther(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "something",
		core.EntityMention{ID: "x", Name: "X"},
	)

	entity, err := engine.graph.GetEntity(ctx, "x")
	if err != nil {
		t.Fatalf("failed to get entity: %v", err)
	}
	if entity.Type != core.EntityTypeOther {
		t.Fatalf("expected type other, got %q", entity.Type)
	}
}

func TestRetrieveWithReranker(t *testing.T) {
	encoder := mock.NewMockCrossEncoder()
	reranker := rerank.New(encoder)
	engine := newTestEngine(t, WithReranker(reranker))
	ctx := context.Background()

	ingest(t, engine, "doc1", "go channels and goroutines")
	ingest(t, engine, "doc2", "gardening in spring")
	ingest(t, engine, "doc3", "go garbage collector internals")

	results, err := engine.Retrieve(ctx, "go goroutines", 2, false, true)
	if err != nil {
		t.Fatalf("failed to retrieve: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Reranked {
			t.Fatalf("result not reranked: %+v", r)
		}
	}
	// token overlap puts the doc containing both query words first
	if results[0].Content != "go channels and goroutines" {
		t.Fatalf("unexpected top result: %+v", results[0])
	}
	if encoder.CallCount() != 1 {
		t.Fatalf("expected 1 cross-encoder call, got %d", encoder.CallCount())
	}
}

func TestRetrieveRerankerRequestedButAbsent(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "plain vector retrieval")

	results, err := engine.Retrieve(ctx, "plain vector retrieval", 1, false, true)
	if err != nil {
		t.Fatalf("failed to retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Reranked {
		t.Fatalf("expected plain vector result, got %+v", results)
	}
}

func TestRetrieveWithGraph(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "the go programming language",
		core.EntityMention{ID: "go", Name: "Go", Type: core.EntityTypeTechnology},
	)
	if err := engine.graph.AddEntity(ctx, &core.Entity{ID: "pike", Name: "Rob Pike", Type: core.EntityTypePerson}); err != nil {
		t.Fatalf("failed to add entity: %v", err)
	}
	if err := engine.graph.LinkEntities(ctx, "go", "pike", "created_by"); err != nil {
		t.Fatalf("failed to link entities: %v", err)
	}

	out, err := engine.RetrieveWithGraph(ctx, "go language", "Go", 3)
	if err != nil {
		t.Fatalf("failed to retrieve with graph: %v", err)
	}
	if len(out.VectorResults) != 1 {
		t.Fatalf("expected 1 vector result, got %d", len(out.VectorResults))
	}
	if len(out.Entities) != 1 {
		t.Fatalf("expected 1 entity match, got %d", len(out.Entities))
	}
	match := out.Entities[0]
	if match.Entity.ID != "go" {
		t.Fatalf("unexpected entity %+v", match.Entity)
	}
	if len(match.Related) != 1 || match.Related[0].Entity.ID != "pike" {
		t.Fatalf("unexpected related entities %+v", match.Related)
	}
	if match.Related[0].RelationType != "created_by" {
		t.Fatalf("relation type missing: %+v", match.Related[0])
	}
}

func TestRetrieveWithGraphNoEntityName(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "something")

	out, err := engine.RetrieveWithGraph(ctx, "something", "", 3)
	if err != nil {
		t.Fatalf("failed to retrieve with graph: %v", err)
	}
	if len(out.Entities) != 0 {
		t.Fatalf("expected no entity matches, got %d", len(out.Entities))
	}
}

func TestGetContextPacksWholeResults(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "alpha beta gamma")
	ingest(t, engine, "doc2", "delta epsilon zeta")

	// Large budget fits everything in ranking order.
	full, err := engine.GetContext(ctx, "alpha beta gamma", 2, 1000)
	if err != nil {
		t.Fatalf("failed to get context: %v", err)
	}
	parts := strings.Split(full, contextSeparator)
	if len(parts) != 2 {
		t.Fatalf("expected 2 context blocks, got %d", len(parts))
	}
	if parts[0] != "alpha beta gamma" {
		t.Fatalf("ranking order not preserved: %q", parts[0])
	}

	// Budget for one result only: no partial splicing of the second.
	small, err := engine.GetContext(ctx, "alpha beta gamma", 2, 4)
	if err != nil {
		t.Fatalf("failed to get context: %v", err)
	}
	if small != "alpha beta gamma" {
		t.Fatalf("expected single whole block, got %q", small)
	}

	tok := ApproxTokenizer{}
	if tok.CountTokens(small) > 4 {
		t.Fatalf("context exceeds budget: %d tokens", tok.CountTokens(small))
	}
}

func TestGetContextBudgetTooSmall(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "one two three four five")

	out, err := engine.GetContext(ctx, "one two three", 1, 2)
	if err != nil {
		t.Fatalf("failed to get context: %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty context, got %q", out)
	}
}

func TestDeleteDocument(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	ingest(t, engine, "doc1", "ephemeral")

	if err := engine.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatalf("failed to delete document: %v", err)
	}

	if _, err := engine.graph.GetDocument(ctx, "doc1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if engine.vectors.Len() != 0 {
		t.Fatalf("expected vector tombstoned, live=%d", engine.vectors.Len())
	}
}

func TestEmbedBatchMatchesSingle(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	single, err := engine.EmbedText(ctx, "consistency check")
	if err != nil {
		t.Fatalf("failed to embed: %v", err)
	}
	batch, err := engine.EmbedTexts(ctx, []string{"consistency check"})
	if err != nil {
		t.Fatalf("failed to embed batch: %v", err)
	}
	if len(batch) != 1 || len(batch[0]) != len(single) {
		t.Fatalf("batch shape mismatch")
	}
	for i := range single {
		if single[i] != batch[0][i] {
			t.Fatalf("batch embedding differs at %d", i)
		}
	}
}

func TestApproxTokenizer(t *testing.T) {
	tok := ApproxTokenizer{}
	if n := tok.CountTokens("hello, world - again"); n != 3 {
		t.Fatalf("expected 3 tokens, got %d", n)
	}
	if n := tok.CountTokens(""); n != 0 {
		t.Fatalf("expected 0 tokens, got %d", n)
	}
}
