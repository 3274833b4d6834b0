// Copyright 2025 The Poiesic Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rerank improves retrieval quality by rescoring candidates
// with a cross-encoder. Cross-encoders read the query and document
// together, which gives sharper relevance judgments than bi-encoder
// similarity alone.
package rerank

import (
	"context"
	"log/slog"
	"sort"

	"github.com/poiesic/noesis/ai"
	"github.com/poiesic/noesis/core"
)

// RankedDocument is one reranked document with its original position.
type RankedDocument struct {
	// Index is the document's position in the input slice.
	Index int

	// Score is the cross-encoder relevance score.
	Score float32

	// Text is the document content.
	Text string
}

// Reranker rescores retrieval candidates with a cross-encoder.
type Reranker struct {
	encoder ai.CrossEncoder
	model   ModelInfo
	logger  *slog.Logger
}

// Option configures a Reranker.
type Option func(*Reranker)

// WithModel selects the cross-encoder model by short or full name.
// Default is DefaultModel.
func WithModel(name string) Option {
	return func(r *Reranker) {
		r.model = ResolveModel(name)
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reranker) {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
	}
}

// New creates a Reranker on the given cross-encoder.
func New(encoder ai.CrossEncoder, opts ...Option) *Reranker {
	r := &Reranker{
		encoder: encoder,
		model:   ResolveModel(DefaultModel),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ModelInfo returns information about the configured model.
func (r *Reranker) ModelInfo() ModelInfo {
	return r.model
}

// Rerank scores documents against the query and returns them sorted by
// relevance, best first. Ties preserve input order. topK <= 0 returns
// all documents.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, topK int) ([]RankedDocument, error) {
	if len(documents) == 0 {
		return []RankedDocument{}, nil
	}

	scores, err := r.encoder.ScorePairs(ctx, query, documents)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(documents) {
		r.logger.Error("cross-encoder returned wrong score count",
			"want", len(documents), "got", len(scores))
		return nil, core.ErrInvalidInput
	}

	ranked := make([]RankedDocument, len(documents))
	for i, doc := range documents {
		ranked[i] = RankedDocument{Index: i, Score: scores[i], Text: doc}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if topK > 0 && topK < len(ranked) {
		ranked = ranked[:topK]
	}
	return ranked, nil
}

// RerankResults rescores retrieval results in place of their vector
// scores. Each surviving result keeps its prior score in OriginalScore
// and is marked Reranked. topK <= 0 returns all results.
func (r *Reranker) RerankResults(ctx context.Context, query string, results []*core.RetrievalResult, topK int) ([]*core.RetrievalResult, error) {
	if len(results) == 0 {
		return []*core.RetrievalResult{}, nil
	}

	documents := make([]string, len(results))
	for i, res := range results {
		documents[i] = res.Content
	}

	ranked, err := r.Rerank(ctx, query, documents, 0)
	if err != nil {
		return nil, err
	}

	reranked := make([]*core.RetrievalResult, 0, len(ranked))
	for _, rd := range ranked {
		original := results[rd.Index]
		updated := *original
		updated.OriginalScore = original.Score
		updated.Score = rd.Score
		updated.Reranked = true
		reranked = append(reranked, &updated)
	}

	if topK > 0 && topK < len(reranked) {
		reranked = reranked[:topK]
	}
	return reranked, nil
}
