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

// Package noesis assembles the hybrid retrieval engine: a vector index
// and an entity/relation graph under one knowledge base, with
// OpenAI-compatible model services, cross-encoder reranking, and a
// guarded web scraper.
package noesis

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/noesis/ai"
	"github.com/poiesic/noesis/ai/openai"
	"github.com/poiesic/noesis/graph"
	"github.com/poiesic/noesis/rag"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/scrape"
	"github.com/poiesic/noesis/vector"
)

// DefaultDimension matches the all-MiniLM-family embedding models.
const DefaultDimension = 384

// vectorIndexFile is the vector snapshot name inside the data dir.
const vectorIndexFile = "index.nvix"

// KnowledgeBase owns the stores, the model provider, and the engine
// built on them.
type KnowledgeBase struct {
	backend  *graph.Backend
	graph    *graph.Store
	vectors  *vector.Store
	provider ai.Provider
	engine   *rag.Engine

	vectorPath string
	logger     *slog.Logger
}

// Option configures a KnowledgeBase.
type Option func(*kbOptions)

type kbOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	dimension   int
	metric      vector.Metric
	useReranker bool
	rerankModel string
	engineOpts  []rag.Option
}

// WithAIConfig sets the model-service configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *kbOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider injects a model provider directly, bypassing the
// OpenAI-compatible clients. Used for tests and embedded setups.
func WithProvider(p ai.Provider) Option {
	return func(o *kbOptions) {
		o.provider = p
	}
}

// WithDimension sets the embedding dimensionality.
// Default is DefaultDimension.
func WithDimension(d int) Option {
	return func(o *kbOptions) {
		o.dimension = d
	}
}

// WithMetric sets the vector similarity metric.
// Default is cosine.
func WithMetric(m vector.Metric) Option {
	return func(o *kbOptions) {
		o.metric = m
	}
}

// WithReranker enables cross-encoder reranking with the given model
// (short or full name; empty selects the default model).
func WithReranker(model string) Option {
	return func(o *kbOptions) {
		o.useReranker = true
		o.rerankModel = model
	}
}

// WithEngineOptions passes extra options through to the retrieval
// engine.
func WithEngineOptions(opts ...rag.Option) Option {
	return func(o *kbOptions) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// Open creates or reopens a knowledge base rooted at dataDir. The
// graph store lives under graph_store/, the vector snapshot under
// vector_store/. A missing vector snapshot starts an empty index.
func Open(dataDir string, opts ...Option) (*KnowledgeBase, error) {
	options := &kbOptions{
		aiConfig:  ai.DefaultConfig(),
		dimension: DefaultDimension,
		metric:    vector.MetricCosine,
	}
	for _, opt := range opts {
		opt(options)
	}

	vectorDir := filepath.Join(dataDir, "vector_store")
	if err := os.MkdirAll(vectorDir, 0o755); err != nil {
		return nil, err
	}
	vectorPath := filepath.Join(vectorDir, vectorIndexFile)

	backend, err := graph.OpenBackend(filepath.Join(dataDir, "graph_store"), false)
	if err != nil {
		return nil, err
	}

	graphStore, err := graph.NewStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	vectors, err := vector.New(options.dimension, vector.WithMetric(options.metric))
	if err != nil {
		backend.Close()
		return nil, err
	}
	if _, statErr := os.Stat(vectorPath); statErr == nil {
		if err := vectors.Load(vectorPath); err != nil {
			backend.Close()
			return nil, err
		}
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	engineOpts := options.engineOpts
	if options.useReranker {
		reranker := rerank.New(provider.CrossEncoder(), rerank.WithModel(firstNonEmpty(options.rerankModel, rerank.DefaultModel)))
		engineOpts = append(engineOpts, rag.WithReranker(reranker))
	}

	engine, err := rag.New(vectors, graphStore, provider, engineOpts...)
	if err != nil {
		provider.Close()
		backend.Close()
		return nil, err
	}

	return &KnowledgeBase{
		backend:    backend,
		graph:      graphStore,
		vectors:    vectors,
		provider:   provider,
		engine:     engine,
		vectorPath: vectorPath,
		logger:     slog.Default(),
	}, nil
}

// Save snapshots the vector index to disk. The graph store persists
// continuously through its own engine.
func (kb *KnowledgeBase) Save() error {
	return kb.vectors.Save(kb.vectorPath)
}

// Close saves the vector snapshot and releases every component.
func (kb *KnowledgeBase) Close() error {
	if err := kb.Save(); err != nil {
		kb.logger.Error("error saving vector snapshot", "err", err)
	}
	if err := kb.provider.Close(); err != nil {
		kb.logger.Error("error closing model provider", "err", err)
	}
	if err := kb.graph.Close(); err != nil {
		kb.logger.Error("error closing graph store", "err", err)
		return err
	}
	if err := kb.backend.Close(); err != nil {
		kb.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Engine returns the retrieval engine.
func (kb *KnowledgeBase) Engine() *rag.Engine {
	return kb.engine
}

// Graph returns the graph store.
func (kb *KnowledgeBase) Graph() *graph.Store {
	return kb.graph
}

// Vectors returns the vector store.
func (kb *KnowledgeBase) Vectors() *vector.Store {
	return kb.vectors
}

// NewScraper creates a scraper wired to this knowledge base's
// politeness defaults.
func (kb *KnowledgeBase) NewScraper(opts ...scrape.Option) (*scrape.Scraper, error) {
	return scrape.New(opts...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
