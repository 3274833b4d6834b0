package ai

import "context"

// Embedder generates vector embeddings from text for semantic
// similarity search. Implementations must be safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates embeddings for a batch of texts. The result
	// is in the same order as the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// CrossEncoder scores query/document pairs for relevance. Higher
// scores mean a better match. Implementations must be safe for
// concurrent use.
type CrossEncoder interface {
	// ScorePairs returns one relevance score per document, in input
	// order. The scale is model-dependent; only the ordering is
	// meaningful across documents of a single call.
	ScorePairs(ctx context.Context, query string, documents []string) ([]float32, error)
}

// Provider aggregates model services for convenient initialization and
// lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// CrossEncoder returns the relevance scoring service.
	CrossEncoder() CrossEncoder

	// Close releases resources held by the provider and its services.
	Close() error
}
