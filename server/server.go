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

// Package server exposes the knowledge base over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/noesis/graph"
	"github.com/poiesic/noesis/rag"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/scrape"
)

// Config holds server settings.
type Config struct {
	Host string
	Port int

	// RerankingEnabled reports whether the engine was built with a
	// reranker; surfaced through GET /rerankers.
	RerankingEnabled bool

	// RerankModel is the configured cross-encoder, if any.
	RerankModel *rerank.ModelInfo
}

// DefaultConfig listens on all interfaces, port 8000.
func DefaultConfig() Config {
	return Config{Host: "0.0.0.0", Port: 8000}
}

// Server is the HTTP front end over the retrieval engine.
type Server struct {
	config  Config
	engine  *rag.Engine
	graph   *graph.Store
	scraper *scrape.Scraper
	router  *gin.Engine
	server  *http.Server
	logger  *slog.Logger
}

// New creates a server. The scraper may be nil, which disables the
// scrape endpoint.
func New(config Config, engine *rag.Engine, graphStore *graph.Store, scraper *scrape.Scraper) *Server {
	s := &Server{
		config:  config,
		engine:  engine,
		graph:   graphStore,
		scraper: scraper,
		logger:  slog.Default().With("component", "server"),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	s.router = gin.New()
	s.router.Use(gin.Recovery())

	s.router.GET("/health", s.handleHealth)

	s.router.POST("/documents", s.handleAddDocument)
	s.router.GET("/documents/:doc_id", s.handleGetDocument)
	s.router.DELETE("/documents/:doc_id", s.handleDeleteDocument)

	s.router.POST("/entities", s.handleAddEntity)
	s.router.GET("/entities/search", s.handleSearchEntities)
	s.router.GET("/entities/:entity_id", s.handleGetEntity)
	s.router.GET("/entities/:entity_id/related", s.handleGetRelated)
	s.router.POST("/entities/link", s.handleLinkEntities)

	s.router.POST("/search", s.handleSearch)
	s.router.POST("/context", s.handleContext)
	s.router.POST("/scrape", s.handleScrape)
	s.router.GET("/rerankers", s.handleListRerankers)

	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler: s.router,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}
