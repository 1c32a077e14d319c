package handler

import (
	"context"
	"net/http"

	"vomprater-server/internal/models"
	"vomprater-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PageService is the page use-case surface the handlers need.
type PageService interface {
	List(ctx context.Context, actor service.Actor, storyID uuid.UUID) ([]models.StoryPage, error)
	Create(ctx context.Context, actor service.Actor, storyID uuid.UUID, input service.CreatePageInput) (*models.StoryPage, error)
	Update(ctx context.Context, actor service.Actor, storyID, pageID uuid.UUID, input service.UpdatePageInput) (*models.StoryPage, error)
	Delete(ctx context.Context, actor service.Actor, storyID, pageID uuid.UUID) error
}

// PageHandler serves the story-page endpoints.
type PageHandler struct {
	pages  PageService
	logger *zap.Logger
}

// NewPageHandler creates the page handler.
func NewPageHandler(pages PageService, logger *zap.Logger) *PageHandler {
	return &PageHandler{pages: pages, logger: logger.Named("PageHandler")}
}

func (h *PageHandler) list(c *gin.Context) {
	storyID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	pages, err := h.pages.List(c.Request.Context(), currentActor(c), storyID)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := make([]pageResponse, 0, len(pages))
	for _, p := range pages {
		resp = append(resp, toPageResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PageHandler) create(c *gin.Context) {
	storyID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req createPageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request data: " + err.Error()})
		return
	}

	page, err := h.pages.Create(c.Request.Context(), currentActor(c), storyID, service.CreatePageInput{
		Layout: models.PageLayout(req.Layout),
		Text:   req.Text,
		Image:  req.Image,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toPageResponse(*page))
}

func (h *PageHandler) update(c *gin.Context) {
	storyID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pageID, ok := uuidParam(c, "pageId")
	if !ok {
		return
	}
	var req updatePageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request data: " + err.Error()})
		return
	}

	page, err := h.pages.Update(c.Request.Context(), currentActor(c), storyID, pageID, req.toInput())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toPageResponse(*page))
}

func (h *PageHandler) delete(c *gin.Context) {
	storyID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	pageID, ok := uuidParam(c, "pageId")
	if !ok {
		return
	}

	if err := h.pages.Delete(c.Request.Context(), currentActor(c), storyID, pageID); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
