package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DoctorSilver-XAI/Axora-sub000/internal/domain"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/logger"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/repository"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/schema"
	"github.com/DoctorSilver-XAI/Axora-sub000/internal/service"
)

// IndexHandler handles index definition and document listing endpoints.
type IndexHandler struct {
	indexes  *repository.CustomIndexRepository
	registry *schema.Registry
	store    service.DocumentStore
	logger   *logger.Logger
}

// NewIndexHandler creates a new index handler.
// Parameters:
//   - indexes: custom index repository.
//   - registry: schema registry covering built-in and custom indexes.
//   - store: document store for listing and counting.
//   - log: logger instance.
// Returns:
//   - *IndexHandler: initialized handler.
func NewIndexHandler(indexes *repository.CustomIndexRepository, registry *schema.Registry, store service.DocumentStore, log *logger.Logger) *IndexHandler {
	return &IndexHandler{
		indexes:  indexes,
		registry: registry,
		store:    store,
		logger:   log,
	}
}

// IndexRequest is the create/update payload for a custom index.
type IndexRequest struct {
	Name        string                      `json:"name" binding:"required"`
	Description string                      `json:"description"`
	Fields      map[string]domain.FieldSpec `json:"fields" binding:"required"`
}

// ListIndexes returns every known index schema, built-in and custom.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) ListIndexes(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.registry.LoadCustom(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to load custom indexes: error=%v", err)
	}
	c.JSON(http.StatusOK, gin.H{"indexes": h.registry.GetAll()})
}

// GetIndex returns one index schema by ID.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) GetIndex(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.registry.LoadCustom(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to load custom indexes: error=%v", err)
	}

	indexSchema, ok := h.registry.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "index not found: " + c.Param("id")})
		return
	}
	c.JSON(http.StatusOK, indexSchema)
}

// CreateIndex creates a custom index definition. The slug is normalized
// server-side from the name.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) CreateIndex(c *gin.Context) {
	ctx := c.Request.Context()

	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slug := schema.NormalizeSlug(req.Name)
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index name yields an empty slug"})
		return
	}
	if _, exists := h.registry.Get(slug); exists {
		c.JSON(http.StatusConflict, gin.H{"error": "index slug already in use: " + slug})
		return
	}

	index := &domain.CustomIndex{
		ID:          uuid.New().String(),
		Slug:        slug,
		Name:        req.Name,
		Description: req.Description,
		Fields:      req.Fields,
	}

	if err := h.indexes.Create(ctx, index); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.CtxError(ctx, "Failed to create index: slug=%s, error=%v", slug, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create index"})
		return
	}

	if err := h.registry.Reload(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to reload registry after create: error=%v", err)
	}

	c.JSON(http.StatusCreated, index)
}

// UpdateIndex updates a custom index definition by its stored ID.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) UpdateIndex(c *gin.Context) {
	ctx := c.Request.Context()

	var req IndexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	index, err := h.indexes.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load index"})
		return
	}

	index.Name = req.Name
	index.Slug = schema.NormalizeSlug(req.Name)
	index.Description = req.Description
	index.Fields = req.Fields

	if err := h.indexes.Update(ctx, index); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.CtxError(ctx, "Failed to update index: id=%s, error=%v", index.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update index"})
		return
	}

	if err := h.registry.Reload(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to reload registry after update: error=%v", err)
	}

	c.JSON(http.StatusOK, index)
}

// DeleteIndex removes a custom index definition by its stored ID.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) DeleteIndex(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.indexes.Delete(ctx, c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.CtxError(ctx, "Failed to delete index: id=%s, error=%v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete index"})
		return
	}

	if err := h.registry.Reload(ctx); err != nil {
		logger.CtxWarn(ctx, "Failed to reload registry after delete: error=%v", err)
	}

	c.JSON(http.StatusOK, gin.H{"message": "index deleted"})
}

// ListDocuments lists an index's stored documents with pagination and an
// optional full-text search filter.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	indexID := c.Param("id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := c.Query("search")

	docs, err := h.store.GetDocuments(ctx, indexID, search, limit, (page-1)*limit)
	if err != nil {
		logger.CtxError(ctx, "Failed to list documents: index_id=%s, error=%v", indexID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"page":      page,
		"limit":     limit,
	})
}

// CountDocuments returns the number of documents stored for an index.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *IndexHandler) CountDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	indexID := c.Param("id")

	count, err := h.store.GetDocumentCount(ctx, indexID)
	if err != nil {
		logger.CtxError(ctx, "Failed to count documents: index_id=%s, error=%v", indexID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"index_id": indexID, "count": count})
}
