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

package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/noesis"
	"github.com/poiesic/noesis/ai"
	"github.com/poiesic/noesis/core"
	"github.com/poiesic/noesis/rag"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/scrape"
	"github.com/poiesic/noesis/server"
	"github.com/urfave/cli/v2"
)

func main() {
	dataFlag := &cli.StringFlag{
		Name:     "data",
		Aliases:  []string{"d"},
		Usage:    "Path to the knowledge base data directory",
		Required: true,
	}
	aiFlags := []cli.Flag{
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "rerank-host",
			Usage: "Cross-encoder rerank service host URL",
			Value: "http://localhost:9300",
		},
		&cli.StringFlag{
			Name:  "rerank-model",
			Usage: "Cross-encoder model name",
			Value: rerank.DefaultModel,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the embedding and rerank services",
			EnvVars: []string{"NOESIS_API_KEY"},
		},
	}
	scrapeFlags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "allowed-domain",
			Usage: "Restrict scraping to this domain (repeatable; empty allows all public hosts)",
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Number of concurrent page fetches",
			Value: scrape.DefaultConcurrency,
		},
		&cli.DurationFlag{
			Name:  "request-interval",
			Usage: "Minimum delay between page fetches",
			Value: scrape.DefaultRequestInterval,
		},
		&cli.BoolFlag{
			Name:  "allow-private",
			Usage: "Permit fetching from loopback and private network addresses",
		},
	}

	app := &cli.App{
		Name:  "noesis",
		Usage: "Hybrid retrieval engine combining vector search with a knowledge graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
				Flags: append(append([]cli.Flag{
					dataFlag,
					&cli.StringFlag{
						Name:  "host",
						Usage: "Address to listen on",
						Value: "0.0.0.0",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Port to listen on",
						Value: 8000,
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Enable cross-encoder reranking of search results",
					},
				}, aiFlags...), scrapeFlags...),
			},
			{
				Name:      "add",
				Usage:     "Add a document to the knowledge base",
				ArgsUsage: "<doc-id>",
				Action:    addCommand,
				Flags: append([]cli.Flag{
					dataFlag,
					&cli.StringFlag{
						Name:  "title",
						Usage: "Document title",
					},
					&cli.StringFlag{
						Name:  "url",
						Usage: "Source URL of the document",
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Document content (reads stdin when omitted)",
					},
					&cli.StringSliceFlag{
						Name:  "entity",
						Usage: "Entity mention as name:type (repeatable)",
					},
				}, aiFlags...),
			},
			{
				Name:      "search",
				Usage:     "Search the knowledge base",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append([]cli.Flag{
					dataFlag,
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results",
						Value: 5,
					},
					&cli.BoolFlag{
						Name:  "graph",
						Usage: "Attach graph entities to each result",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "rerank",
						Usage: "Rerank results with the cross-encoder",
					},
					&cli.StringFlag{
						Name:  "entity",
						Usage: "Also traverse the graph from this entity name",
					},
				}, aiFlags...),
			},
			{
				Name:      "context",
				Usage:     "Assemble a token-bounded context block for a query",
				ArgsUsage: "<query>",
				Action:    contextCommand,
				Flags: append([]cli.Flag{
					dataFlag,
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum number of results to pack",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "max-tokens",
						Usage: "Token budget for the assembled context",
						Value: 2000,
					},
				}, aiFlags...),
			},
			{
				Name:      "scrape",
				Usage:     "Scrape web pages and ingest them into the knowledge base",
				ArgsUsage: "<url> [<url>...]",
				Action:    scrapeCommand,
				Flags: append(append([]cli.Flag{
					dataFlag,
					&cli.BoolFlag{
						Name:  "ingest",
						Usage: "Add scraped pages to the knowledge base",
						Value: true,
					},
				}, aiFlags...), scrapeFlags...),
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its graph links",
				ArgsUsage: "<doc-id>",
				Action:    deleteCommand,
				Flags:     append([]cli.Flag{dataFlag}, aiFlags...),
			},
			{
				Name:   "compact",
				Usage:  "Rewrite the vector index without tombstoned records",
				Action: compactCommand,
				Flags:  append([]cli.Flag{dataFlag}, aiFlags...),
			},
			{
				Name:   "rerankers",
				Usage:  "List the known cross-encoder rerank models",
				Action: rerankersCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithRerankHost(c.String("rerank-host")),
		ai.WithRerankModel(c.String("rerank-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
}

func openKnowledgeBase(c *cli.Context, withReranker bool) (*noesis.KnowledgeBase, error) {
	opts := []noesis.Option{noesis.WithAIConfig(aiConfigFromFlags(c))}
	if withReranker {
		opts = append(opts, noesis.WithReranker(c.String("rerank-model")))
	}
	kb, err := noesis.Open(c.String("data"), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return kb, nil
}

func scraperOptions(c *cli.Context) []scrape.Option {
	opts := []scrape.Option{
		scrape.WithConcurrency(c.Int("concurrency")),
		scrape.WithRequestInterval(c.Duration("request-interval")),
	}
	if domains := c.StringSlice("allowed-domain"); len(domains) > 0 {
		opts = append(opts, scrape.WithAllowedDomains(domains))
	}
	if c.Bool("allow-private") {
		opts = append(opts, scrape.WithPrivateNetworkAllowed())
	}
	return opts
}

func serveCommand(c *cli.Context) error {
	useReranker := c.Bool("rerank")

	kb, err := openKnowledgeBase(c, useReranker)
	if err != nil {
		return err
	}
	defer func() {
		if err := kb.Close(); err != nil {
			slog.Error("failed to close knowledge base", "error", err)
		}
	}()

	scraper, err := kb.NewScraper(scraperOptions(c)...)
	if err != nil {
		return fmt.Errorf("failed to create scraper: %w", err)
	}
	defer scraper.Close()

	config := server.Config{
		Host:             c.String("host"),
		Port:             c.Int("port"),
		RerankingEnabled: useReranker,
	}
	if useReranker {
		info := rerank.ResolveModel(c.String("rerank-model"))
		config.RerankModel = &info
	}

	srv := server.New(config, kb.Engine(), kb.Graph(), scraper)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Listening on %s:%d\n", config.Host, config.Port)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	return nil
}

func addCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document id argument")
	}
	docID := c.Args().First()

	content := c.String("content")
	if content == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read content from stdin: %w", err)
		}
		content = string(data)
	}

	mentions, err := parseEntityFlags(c.StringSlice("entity"))
	if err != nil {
		return err
	}

	kb, err := openKnowledgeBase(c, false)
	if err != nil {
		return err
	}
	defer kb.Close()

	doc := &core.Document{
		ID:      docID,
		Title:   c.String("title"),
		Content: content,
		URL:     c.String("url"),
	}
	if err := kb.Engine().AddDocument(c.Context, doc, mentions); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Added document %s (%d entities)\n", docID, len(mentions))
	return nil
}

// parseEntityFlags converts repeated name:type flag values into mentions.
// The type is optional and defaults to "other". Entity IDs are the
// lowercased name with spaces replaced by underscores.
func parseEntityFlags(values []string) ([]core.EntityMention, error) {
	mentions := make([]core.EntityMention, 0, len(values))
	for _, v := range values {
		name, typ, _ := strings.Cut(v, ":")
		if name == "" {
			return nil, fmt.Errorf("invalid entity flag %q: expected name:type", v)
		}
		if typ == "" {
			typ = string(core.EntityTypeOther)
		}
		id := strings.ReplaceAll(strings.ToLower(name), " ", "_")
		mentions = append(mentions, core.EntityMention{
			ID:   id,
			Name: name,
			Type: core.EntityType(typ),
		})
	}
	return mentions, nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}
	query := c.Args().First()

	kb, err := openKnowledgeBase(c, c.Bool("rerank"))
	if err != nil {
		return err
	}
	defer kb.Close()

	engine := kb.Engine()

	if entityName := c.String("entity"); entityName != "" {
		retrieval, err := engine.RetrieveWithGraph(c.Context, query, entityName, c.Int("top-k"))
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		printGraphRetrieval(os.Stdout, retrieval)
		return nil
	}

	results, err := engine.Retrieve(c.Context, query, c.Int("top-k"), c.Bool("graph"), c.Bool("rerank"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	printResults(os.Stdout, results)
	return nil
}

func printResults(w io.Writer, results []*core.RetrievalResult) {
	for i, r := range results {
		fmt.Fprintf(w, "%d. [%.4f] %s\n", i+1, r.Score, firstLine(r.Content))
		for _, e := range r.Entities {
			fmt.Fprintf(w, "   entity: %s (%s)\n", e.Name, e.Type)
		}
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
	}
}

func printGraphRetrieval(w io.Writer, retrieval *rag.GraphRetrieval) {
	printResults(w, retrieval.VectorResults)
	for _, ewr := range retrieval.Entities {
		fmt.Fprintf(w, "entity %s (%s)\n", ewr.Entity.Name, ewr.Entity.Type)
		for _, rel := range ewr.Related {
			fmt.Fprintf(w, "  -[%s]-> %s (%s)\n", rel.RelationType, rel.Entity.Name, rel.Entity.Type)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func contextCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one query argument")
	}
	query := c.Args().First()

	kb, err := openKnowledgeBase(c, false)
	if err != nil {
		return err
	}
	defer kb.Close()

	block, err := kb.Engine().GetContext(c.Context, query, c.Int("top-k"), c.Int("max-tokens"))
	if err != nil {
		return fmt.Errorf("failed to build context: %w", err)
	}
	fmt.Println(block)
	return nil
}

func scrapeCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("expected one or more URL arguments")
	}
	urls := c.Args().Slice()

	kb, err := openKnowledgeBase(c, false)
	if err != nil {
		return err
	}
	defer kb.Close()

	scraper, err := kb.NewScraper(scraperOptions(c)...)
	if err != nil {
		return fmt.Errorf("failed to create scraper: %w", err)
	}
	defer scraper.Close()

	ingest := c.Bool("ingest")
	failures := 0
	for _, result := range scraper.ScrapeURLs(c.Context, urls) {
		if result.Err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "failed %s: %v\n", result.URL, result.Err)
			continue
		}
		page := result.Page
		fmt.Fprintf(os.Stderr, "scraped %s: %q (%d links)\n", page.URL, page.Title, len(page.Links))
		if !ingest {
			continue
		}
		doc := &core.Document{
			ID:      scrape.DocumentID(result.URL),
			Title:   page.Title,
			Content: page.Content,
			URL:     page.URL,
		}
		if err := kb.Engine().AddDocument(c.Context, doc, nil); err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "failed to ingest %s: %v\n", page.URL, err)
			continue
		}
		fmt.Println(doc.ID)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d pages failed", failures, len(urls))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one document id argument")
	}
	docID := c.Args().First()

	kb, err := openKnowledgeBase(c, false)
	if err != nil {
		return err
	}
	defer kb.Close()

	if err := kb.Engine().DeleteDocument(c.Context, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Deleted document %s\n", docID)
	return nil
}

func compactCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c, false)
	if err != nil {
		return err
	}
	defer kb.Close()

	removed := kb.Vectors().Compact()
	if err := kb.Save(); err != nil {
		return fmt.Errorf("failed to save compacted index: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Compacted vector index: removed %d tombstones, %d live records\n",
		removed, kb.Vectors().Len())
	return nil
}

func rerankersCommand(c *cli.Context) error {
	models := rerank.ListAvailableModels()
	names := make([]string, 0, len(models))
	for name := range models {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := models[name]
		marker := " "
		if name == rerank.DefaultModel {
			marker = "*"
		}
		fmt.Printf("%s %s (max length %d)\n    %s\n", marker, name, info.MaxLength, info.Description)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
