package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/noesis/ai"
	"github.com/poiesic/noesis/core"
	"github.com/poiesic/noesis/graph"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/vector"
)

// DefaultExpansionFactor is how many times topK candidates are fetched
// for the reranker to choose from.
const DefaultExpansionFactor = 3

// contextSeparator joins packed context blocks.
const contextSeparator = "\n\n---\n\n"

// EntityWithRelated is an entity match with its one-hop neighborhood.
type EntityWithRelated struct {
	Entity  *core.Entity
	Related []*core.RelatedEntity
}

// GraphRetrieval holds vector and graph signals unmerged, for callers
// that fuse themselves.
type GraphRetrieval struct {
	VectorResults []*core.RetrievalResult
	Entities      []*EntityWithRelated
}

// Engine combines vector similarity search with graph-based knowledge
// retrieval.
type Engine struct {
	vectors  *vector.Store
	graph    *graph.Store
	provider ai.Provider

	reranker  *rerank.Reranker
	expansion int
	tokenizer Tokenizer
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithReranker enables cross-encoder reranking for queries that ask
// for it.
func WithReranker(r *rerank.Reranker) Option {
	return func(e *Engine) error {
		e.reranker = r
		return nil
	}
}

// WithExpansionFactor sets the candidate multiplier used when
// reranking. Default is DefaultExpansionFactor.
func WithExpansionFactor(factor int) Option {
	return func(e *Engine) error {
		if factor < 1 {
			return fmt.Errorf("%w: expansion factor must be >= 1, got %d", core.ErrInvalidInput, factor)
		}
		e.expansion = factor
		return nil
	}
}

// WithTokenizer sets the tokenizer used for context packing.
// Default is ApproxTokenizer.
func WithTokenizer(t Tokenizer) Option {
	return func(e *Engine) error {
		if t == nil {
			return fmt.Errorf("%w: tokenizer is nil", core.ErrInvalidInput)
		}
		e.tokenizer = t
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// New creates a retrieval engine over the given stores and model
// provider.
func New(vectors *vector.Store, graphStore *graph.Store, provider ai.Provider, opts ...Option) (*Engine, error) {
	if vectors == nil || graphStore == nil || provider == nil {
		return nil, fmt.Errorf("%w: vector store, graph store and provider are required", core.ErrInvalidInput)
	}

	e := &Engine{
		vectors:   vectors,
		graph:     graphStore,
		provider:  provider,
		expansion: DefaultExpansionFactor,
		tokenizer: ApproxTokenizer{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// EmbedText generates an embedding for a single text.
func (e *Engine) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.provider.Embedder().EmbedText(ctx, text)
}

// EmbedTexts generates embeddings for a batch of texts.
func (e *Engine) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	return e.provider.Embedder().EmbedTexts(ctx, texts)
}

// AddDocument ingests a document into both stores. The graph write
// happens first; the embedding and vector insert second; the vector-id
// mapping last. Re-ingesting a doc_id upserts the document node and
// tombstones the previously mapped vector.
func (e *Engine) AddDocument(ctx context.Context, doc *core.Document, entities []core.EntityMention) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	if err := e.graph.AddDocument(ctx, doc); err != nil {
		return err
	}

	for _, mention := range entities {
		entityType := mention.Type
		if entityType == "" {
			entityType = core.EntityTypeOther
		}
		entity := &core.Entity{
			ID:          mention.ID,
			Name:        mention.Name,
			Type:        entityType,
			Description: mention.Description,
		}
		if err := e.graph.AddEntity(ctx, entity); err != nil {
			return err
		}
		if err := e.graph.LinkDocumentEntity(ctx, doc.ID, mention.ID); err != nil {
			return err
		}
	}

	embedding, err := e.EmbedText(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding failed for document %q: %w", doc.ID, err)
	}

	// Re-ingest: retire the old vector before inserting the new one.
	if oldID, err := e.graph.VectorID(ctx, doc.ID); err == nil {
		e.vectors.Delete(oldID)
	}

	ids, err := e.vectors.Add([][]float32{embedding}, []string{doc.Content}, nil)
	if err != nil {
		return err
	}

	if err := e.graph.SetVectorID(ctx, doc.ID, ids[0]); err != nil {
		return err
	}

	e.logger.Debug("document ingested", "doc_id", doc.ID, "vector_id", ids[0], "entities", len(entities))
	return nil
}

// Retrieve returns the most relevant documents for a query, in
// vector-similarity order. With includeGraphContext, each result
// carries the entities its source document mentions. With useReranker
// (and a configured reranker), topK*expansion candidates are fetched
// and rescored down to topK.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, includeGraphContext, useReranker bool) ([]*core.RetrievalResult, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: topK must be >= 1, got %d", core.ErrInvalidInput, topK)
	}

	shouldRerank := useReranker && e.reranker != nil
	fetchK := topK
	if shouldRerank {
		fetchK = topK * e.expansion
	}

	embedding, err := e.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := e.vectors.Search(embedding, fetchK)
	if err != nil {
		return nil, err
	}

	results := make([]*core.RetrievalResult, len(matches))
	for i, m := range matches {
		results[i] = &core.RetrievalResult{
			ID:      m.ID,
			Score:   m.Score,
			Content: m.Text,
		}
	}

	if includeGraphContext {
		if err := e.attachGraphContext(ctx, results); err != nil {
			return nil, err
		}
	}

	if shouldRerank && len(results) > 0 {
		results, err = e.reranker.RerankResults(ctx, query, results, topK)
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}

// attachGraphContext resolves each result's source document and
// attaches the entities it mentions. Results whose vector id has no
// document mapping keep an empty entity list.
func (e *Engine) attachGraphContext(ctx context.Context, results []*core.RetrievalResult) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, result := range results {
		g.Go(func() error {
			docID, err := e.graph.DocumentIDByVectorID(ctx, result.ID)
			if err != nil {
				result.Entities = []*core.Entity{}
				return nil
			}
			entities, err := e.graph.GetDocumentEntities(ctx, docID)
			if err != nil {
				return err
			}
			if entities == nil {
				entities = []*core.Entity{}
			}
			result.Entities = entities
			return nil
		})
	}
	return g.Wait()
}

// RetrieveWithGraph runs vector retrieval and, when entityName is
// non-empty, entity search with one-hop neighborhoods. The two signals
// return unmerged. Vector search and graph lookup execute
// concurrently.
func (e *Engine) RetrieveWithGraph(ctx context.Context, query, entityName string, topK int) (*GraphRetrieval, error) {
	out := &GraphRetrieval{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := e.Retrieve(ctx, query, topK, false, false)
		if err != nil {
			return err
		}
		out.VectorResults = results
		return nil
	})
	if entityName != "" {
		g.Go(func() error {
			entities, err := e.graph.SearchEntities(ctx, entityName, "")
			if err != nil {
				return err
			}
			matches := make([]*EntityWithRelated, len(entities))
			for i, entity := range entities {
				related, err := e.graph.GetRelatedEntities(ctx, entity.ID, "")
				if err != nil {
					return err
				}
				matches[i] = &EntityWithRelated{Entity: entity, Related: related}
			}
			out.Entities = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetContext retrieves topK results and packs their contents into a
// generation context of at most maxTokens tokens. Results are added
// whole, in ranking order; packing stops at the first result that
// would exceed the budget. Separators are not charged against it.
func (e *Engine) GetContext(ctx context.Context, query string, topK, maxTokens int) (string, error) {
	if maxTokens < 1 {
		return "", fmt.Errorf("%w: maxTokens must be >= 1, got %d", core.ErrInvalidInput, maxTokens)
	}

	results, err := e.Retrieve(ctx, query, topK, false, false)
	if err != nil {
		return "", err
	}

	var parts []string
	total := 0
	for _, result := range results {
		if result.Content == "" {
			continue
		}
		n := e.tokenizer.CountTokens(result.Content)
		if total+n > maxTokens {
			break
		}
		parts = append(parts, result.Content)
		total += n
	}

	return strings.Join(parts, contextSeparator), nil
}

// DeleteDocument removes a document from both stores: the graph node
// with its edges and mapping first, then the vector tombstone.
func (e *Engine) DeleteDocument(ctx context.Context, docID string) error {
	vectorID, hadVector, err := e.graph.DeleteDocument(ctx, docID)
	if err != nil {
		return err
	}
	if hadVector {
		e.vectors.Delete(vectorID)
	}
	return nil
}
