package service

import (
	"context"
	"fmt"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreatePageInput and the page update below mirror the story page fields; new
// pages always append at the end of the sequence.

// UpdatePageInput is a partial page update. A non-nil PageOrder additionally
// moves the page within the sequence.
type UpdatePageInput struct {
	Layout    *models.PageLayout
	Text      *string
	ClearText bool
	Image     *string
	PageOrder *int
}

// PageService implements the page use cases.
type PageService struct {
	stories storage.StoryRepository
	pages   storage.PageRepository
	logger  *zap.Logger
}

// NewPageService creates the page service.
func NewPageService(stories storage.StoryRepository, pages storage.PageRepository, logger *zap.Logger) *PageService {
	return &PageService{
		stories: stories,
		pages:   pages,
		logger:  logger.Named("PageService"),
	}
}

// authorize loads the story and checks that the actor may edit its pages.
// Page edits follow the same rule as content edits: authors only while the
// story is pending, moderators always.
func (s *PageService) authorize(ctx context.Context, actor Actor, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !actor.mayTouch(story.ID) {
		return nil, models.ErrForbidden
	}
	if !actor.Moderator {
		prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
		if !lifecycle.CanAuthorEdit(prev) {
			return nil, models.ErrInvalidTransition
		}
	}
	return story, nil
}

// List returns the story's pages in order.
func (s *PageService) List(ctx context.Context, actor Actor, storyID uuid.UUID) ([]models.StoryPage, error) {
	story, err := s.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if !story.PubliclyVisible() && !actor.mayTouch(story.ID) {
		return nil, models.ErrNotFound
	}
	return s.pages.ListByStory(ctx, storyID)
}

// Create appends a page at the end of the story.
func (s *PageService) Create(ctx context.Context, actor Actor, storyID uuid.UUID, input CreatePageInput) (*models.StoryPage, error) {
	if !input.Layout.Valid() {
		return nil, fmt.Errorf("%w: unknown page layout %q", models.ErrValidation, input.Layout)
	}
	if _, err := s.authorize(ctx, actor, storyID); err != nil {
		return nil, err
	}

	page := &models.StoryPage{
		ID:      uuid.New(),
		StoryID: storyID,
		Layout:  input.Layout,
		Text:    input.Text,
		Image:   input.Image,
	}
	if err := s.pages.Create(ctx, page); err != nil {
		s.logger.Error("Failed to create page", zap.String("story_id", storyID.String()), zap.Error(err))
		return nil, err
	}
	return page, nil
}

// Update changes page content and, when PageOrder is set, moves the page
// within the sequence. The reorder shifts siblings so orders stay a
// permutation of 1..N.
func (s *PageService) Update(ctx context.Context, actor Actor, storyID, pageID uuid.UUID, input UpdatePageInput) (*models.StoryPage, error) {
	if input.Layout != nil && !input.Layout.Valid() {
		return nil, fmt.Errorf("%w: unknown page layout %q", models.ErrValidation, *input.Layout)
	}
	if _, err := s.authorize(ctx, actor, storyID); err != nil {
		return nil, err
	}

	if input.PageOrder != nil {
		if err := s.pages.Reorder(ctx, storyID, pageID, *input.PageOrder); err != nil {
			return nil, err
		}
	}

	upd := storage.PageUpdate{
		Layout:    input.Layout,
		Text:      input.Text,
		ClearText: input.ClearText,
		Image:     input.Image,
	}
	page, err := s.pages.Update(ctx, storyID, pageID, upd)
	if err != nil {
		s.logger.Error("Failed to update page",
			zap.String("story_id", storyID.String()),
			zap.String("page_id", pageID.String()),
			zap.Error(err))
		return nil, err
	}
	return page, nil
}

// Delete removes a page and closes the order gap.
func (s *PageService) Delete(ctx context.Context, actor Actor, storyID, pageID uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, storyID); err != nil {
		return err
	}
	if err := s.pages.Delete(ctx, storyID, pageID); err != nil {
		s.logger.Error("Failed to delete page",
			zap.String("story_id", storyID.String()),
			zap.String("page_id", pageID.String()),
			zap.Error(err))
		return err
	}
	return nil
}
