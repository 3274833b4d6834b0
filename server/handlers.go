package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/poiesic/noesis/core"
	"github.com/poiesic/noesis/rerank"
	"github.com/poiesic/noesis/scrape"
)

type entityPayload struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type documentRequest struct {
	DocID    string          `json:"doc_id" binding:"required"`
	Title    string          `json:"title"`
	Content  string          `json:"content" binding:"required"`
	URL      string          `json:"url"`
	Entities []entityPayload `json:"entities"`
}

type entityRequest struct {
	EntityID    string `json:"entity_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	EntityType  string `json:"entity_type" binding:"required"`
	Description string `json:"description"`
}

type entityLinkRequest struct {
	SourceID     string `json:"source_id" binding:"required"`
	TargetID     string `json:"target_id" binding:"required"`
	RelationType string `json:"relation_type" binding:"required"`
}

type searchRequest struct {
	Query        string `json:"query" binding:"required"`
	TopK         int    `json:"top_k"`
	IncludeGraph *bool  `json:"include_graph"`
	EntityName   string `json:"entity_name"`
	UseReranker  bool   `json:"use_reranker"`
}

type contextRequest struct {
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"top_k"`
	MaxTokens int    `json:"max_tokens"`
}

type scrapeRequest struct {
	URLs               []string `json:"urls" binding:"required"`
	AddToKnowledgeBase *bool    `json:"add_to_knowledge_base"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) handleAddDocument(c *gin.Context) {
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entities := make([]core.EntityMention, len(req.Entities))
	for i, e := range req.Entities {
		entities[i] = core.EntityMention{
			ID:          e.ID,
			Name:        e.Name,
			Type:        core.EntityType(e.Type),
			Description: e.Description,
		}
	}

	doc := &core.Document{
		ID:      req.DocID,
		Title:   req.Title,
		Content: req.Content,
		URL:     req.URL,
	}
	if err := s.engine.AddDocument(c.Request.Context(), doc, entities); err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "doc_id": req.DocID})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	doc, err := s.graph.GetDocument(c.Request.Context(), c.Param("doc_id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, documentView(doc))
}

func (s *Server) handleDeleteDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	if err := s.engine.DeleteDocument(c.Request.Context(), docID); err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "doc_id": docID})
}

func (s *Server) handleAddEntity(c *gin.Context) {
	var req entityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entity := &core.Entity{
		ID:          req.EntityID,
		Name:        req.Name,
		Type:        core.EntityType(req.EntityType),
		Description: req.Description,
	}
	if err := s.graph.AddEntity(c.Request.Context(), entity); err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "entity_id": req.EntityID})
}

func (s *Server) handleGetEntity(c *gin.Context) {
	entity, err := s.graph.GetEntity(c.Request.Context(), c.Param("entity_id"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, entityView(entity))
}

func (s *Server) handleSearchEntities(c *gin.Context) {
	name := c.Query("name")
	entityType := core.EntityType(c.Query("type"))
	if entityType != "" && !entityType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entity type"})
		return
	}

	entities, err := s.graph.SearchEntities(c.Request.Context(), name, entityType)
	if err != nil {
		s.renderError(c, err)
		return
	}
	views := make([]gin.H, len(entities))
	for i, e := range entities {
		views[i] = entityView(e)
	}
	c.JSON(http.StatusOK, gin.H{"entities": views})
}

func (s *Server) handleLinkEntities(c *gin.Context) {
	var req entityLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.graph.LinkEntities(c.Request.Context(), req.SourceID, req.TargetID, req.RelationType)
	if err != nil {
		s.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (s *Server) handleGetRelated(c *gin.Context) {
	related, err := s.graph.GetRelatedEntities(c.Request.Context(), c.Param("entity_id"), c.Query("relation_type"))
	if err != nil {
		s.renderError(c, err)
		return
	}
	views := make([]gin.H, len(related))
	for i, r := range related {
		view := entityView(r.Entity)
		view["relation_type"] = r.RelationType
		views[i] = view
	}
	c.JSON(http.StatusOK, gin.H{"related": views})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 5
	}
	includeGraph := true
	if req.IncludeGraph != nil {
		includeGraph = *req.IncludeGraph
	}

	ctx := c.Request.Context()

	if req.EntityName != "" {
		combined, err := s.engine.RetrieveWithGraph(ctx, req.Query, req.EntityName, req.TopK)
		if err != nil {
			s.renderError(c, err)
			return
		}
		graphResults := make([]gin.H, len(combined.Entities))
		for i, match := range combined.Entities {
			entity := entityView(match.Entity)
			related := make([]gin.H, len(match.Related))
			for j, r := range match.Related {
				view := entityView(r.Entity)
				view["relation_type"] = r.RelationType
				related[j] = view
			}
			entity["related_entities"] = related
			graphResults[i] = entity
		}
		c.JSON(http.StatusOK, gin.H{
			"results":       renderResults(combined.VectorResults),
			"graph_results": graphResults,
		})
		return
	}

	results, err := s.engine.Retrieve(ctx, req.Query, req.TopK, includeGraph, req.UseReranker)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": renderResults(results)})
}

func (s *Server) handleContext(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TopK <= 0 {
		req.TopK = 3
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = 2000
	}

	context, err := s.engine.GetContext(c.Request.Context(), req.Query, req.TopK, req.MaxTokens)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"context": context})
}

func (s *Server) handleScrape(c *gin.Context) {
	if s.scraper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scraping not enabled"})
		return
	}

	var req scrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	addToKB := true
	if req.AddToKnowledgeBase != nil {
		addToKB = *req.AddToKnowledgeBase
	}

	ctx := c.Request.Context()
	results := s.scraper.ScrapeURLs(ctx, req.URLs)

	scraped := make([]gin.H, 0, len(results))
	for _, result := range results {
		if result.Err != nil {
			scraped = append(scraped, gin.H{"url": result.URL, "error": result.Err.Error()})
			continue
		}

		entry := gin.H{
			"url":     result.Page.URL,
			"title":   result.Page.Title,
			"content": result.Page.Content,
		}
		if addToKB {
			doc := &core.Document{
				ID:      scrape.DocumentID(result.URL),
				Title:   result.Page.Title,
				Content: result.Page.Content,
				URL:     result.URL,
			}
			if err := s.engine.AddDocument(ctx, doc, nil); err != nil {
				entry["error"] = err.Error()
			} else {
				entry["doc_id"] = doc.ID
			}
		}
		scraped = append(scraped, entry)
	}

	c.JSON(http.StatusOK, gin.H{"scraped": scraped})
}

func (s *Server) handleListRerankers(c *gin.Context) {
	resp := gin.H{
		"available_models":  rerank.ListAvailableModels(),
		"reranking_enabled": s.config.RerankingEnabled,
	}
	if s.config.RerankModel != nil {
		resp["current_model"] = s.config.RerankModel
	}
	c.JSON(http.StatusOK, resp)
}

type resultView struct {
	ID            int64    `json:"id"`
	Score         float32  `json:"score"`
	Content       string   `json:"content,omitempty"`
	Entities      []gin.H  `json:"entities,omitempty"`
	OriginalScore *float32 `json:"original_score,omitempty"`
	Reranked      bool     `json:"reranked,omitempty"`
}

func renderResults(results []*core.RetrievalResult) []resultView {
	views := make([]resultView, len(results))
	for i, r := range results {
		views[i] = resultView{
			ID:       r.ID,
			Score:    r.Score,
			Content:  r.Content,
			Reranked: r.Reranked,
		}
		for _, e := range r.Entities {
			views[i].Entities = append(views[i].Entities, entityView(e))
		}
		if r.Reranked {
			original := r.OriginalScore
			views[i].OriginalScore = &original
		}
	}
	return views
}

func documentView(doc *core.Document) gin.H {
	return gin.H{
		"doc_id":      doc.ID,
		"title":       doc.Title,
		"content":     doc.Content,
		"url":         doc.URL,
		"inserted_at": doc.InsertedAt,
		"updated_at":  doc.UpdatedAt,
	}
}

func entityView(entity *core.Entity) gin.H {
	return gin.H{
		"entity_id":   entity.ID,
		"name":        entity.Name,
		"type":        entity.Type,
		"description": entity.Description,
	}
}

// renderError maps store errors onto HTTP statuses.
func (s *Server) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidEntityType),
		errors.Is(err, core.ErrDuplicateID),
		errors.Is(err, core.ErrDimensionMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
