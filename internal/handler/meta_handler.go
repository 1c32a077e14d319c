package handler

import (
	"context"
	"net/http"

	"vomprater-server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetaService is the read-model surface for keywords and authors.
type MetaService interface {
	ListKeywords(ctx context.Context) ([]models.Keyword, error)
	ListStoryKeywords(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)
}

// MetaHandler serves the keyword and author read models.
type MetaHandler struct {
	meta   MetaService
	logger *zap.Logger
}

func NewMetaHandler(meta MetaService, logger *zap.Logger) *MetaHandler {
	return &MetaHandler{meta: meta, logger: logger.Named("MetaHandler")}
}

func (h *MetaHandler) listKeywords(c *gin.Context) {
	keywords, err := h.meta.ListKeywords(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := make([]keywordResponse, 0, len(keywords))
	for _, k := range keywords {
		resp = append(resp, keywordResponse{ID: k.ID.String(), Word: k.Word})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MetaHandler) listStoryKeywords(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	keywords, err := h.meta.ListStoryKeywords(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := make([]keywordResponse, 0, len(keywords))
	for _, k := range keywords {
		resp = append(resp, keywordResponse{ID: k.ID.String(), Word: k.Word})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MetaHandler) listAuthors(c *gin.Context) {
	authors, err := h.meta.ListAuthors(c.Request.Context())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	// Author emails stay private; the read model exposes names only.
	resp := make([]authorResponse, 0, len(authors))
	for _, a := range authors {
		resp = append(resp, authorResponse{Name: a.Name})
	}
	c.JSON(http.StatusOK, resp)
}
