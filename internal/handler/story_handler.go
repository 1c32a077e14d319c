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

// StoryService is the story use-case surface the handlers need.
type StoryService interface {
	Create(ctx context.Context, input service.CreateStoryInput) (*models.Story, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error)
	GetPublicBySlug(ctx context.Context, slug string) (*models.Story, error)
	List(ctx context.Context, input service.ListStoriesInput) ([]models.Story, error)
	Update(ctx context.Context, actor service.Actor, id uuid.UUID, input service.UpdateStoryInput) (*models.Story, error)
	Submit(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Story, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Story, error)
	Publish(ctx context.Context, id uuid.UUID) (*models.Story, error)
	Delete(ctx context.Context, actor service.Actor, id uuid.UUID) error
	VerifyPassword(ctx context.Context, id uuid.UUID, password string) (string, error)
}

// StoryHandler serves the story endpoints.
type StoryHandler struct {
	stories StoryService
	logger  *zap.Logger
}

// NewStoryHandler creates the story handler.
func NewStoryHandler(stories StoryService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{stories: stories, logger: logger.Named("StoryHandler")}
}

func (h *StoryHandler) create(c *gin.Context) {
	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request data: " + err.Error()})
		return
	}

	story, err := h.stories.Create(c.Request.Context(), req.toInput())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	// The password and the editor key travel only in the creation email.
	c.JSON(http.StatusCreated, toStoryResponse(story, false))
}

func (h *StoryHandler) list(c *gin.Context) {
	var query struct {
		Featured *bool   `form:"featured"`
		Locale   *string `form:"locale" binding:"omitempty,oneof=de en"`
		Limit    int     `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}

	actor := currentActor(c)
	stories, err := h.stories.List(c.Request.Context(), service.ListStoriesInput{
		Featured:          query.Featured,
		Locale:            query.Locale,
		Limit:             query.Limit,
		IncludeUnreviewed: actor.Moderator,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	resp := make([]storyResponse, 0, len(stories))
	for i := range stories {
		resp = append(resp, toStoryResponse(&stories[i], actor.Moderator))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *StoryHandler) getByID(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	story, err := h.stories.GetByID(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}

	actor := currentActor(c)
	if !story.PubliclyVisible() && !actor.Moderator && actor.StoryID != story.ID {
		// Unpublished stories are indistinguishable from absent ones.
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, actor.Moderator || actor.StoryID == story.ID))
}

func (h *StoryHandler) getBySlug(c *gin.Context) {
	slug := c.Param("slug")
	if slug == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "missing slug"})
		return
	}

	story, err := h.stories.GetPublicBySlug(c.Request.Context(), slug)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, false))
}

func (h *StoryHandler) getByEditorKey(c *gin.Context) {
	key, ok := uuidParam(c, "editorKey")
	if !ok {
		return
	}

	story, err := h.stories.GetByEditorKey(c.Request.Context(), key)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) update(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req updateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request data: " + err.Error()})
		return
	}

	story, err := h.stories.Update(c.Request.Context(), currentActor(c), id, req.toInput())
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	actor := currentActor(c)
	c.JSON(http.StatusOK, toStoryResponse(story, actor.Moderator || actor.StoryID == story.ID))
}

func (h *StoryHandler) submit(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	story, err := h.stories.Submit(c.Request.Context(), currentActor(c), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) reject(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request data: " + err.Error()})
		return
	}

	story, err := h.stories.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) publish(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	story, err := h.stories.Publish(c.Request.Context(), id)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toStoryResponse(story, true))
}

func (h *StoryHandler) delete(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.stories.Delete(c.Request.Context(), currentActor(c), id); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) verifyPassword(c *gin.Context) {
	var req verifyPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "storyId and password are required"})
		return
	}
	storyID, err := uuid.Parse(req.StoryID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid storyId format"})
		return
	}

	token, err := h.stories.VerifyPassword(c.Request.Context(), storyID, req.Password)
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, verifyPasswordResponse{Token: token})
}
