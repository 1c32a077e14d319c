package strapi

import (
	"context"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Pages are embedded components of the story document, so every page write is
// a read-modify-write of the parent document. The CMS persists the document
// atomically, which keeps the order sequence a permutation of 1..N.
type pageRepository struct {
	stories *storyRepository
	logger  *zap.Logger
}

// NewPageRepository creates the CMS-backed page repository. It must share the
// client with the story repository so both see the same documents.
func NewPageRepository(client *Client, logger *zap.Logger) storage.PageRepository {
	return &pageRepository{
		stories: &storyRepository{client: client, logger: logger.Named("StrapiStoryRepo")},
		logger:  logger.Named("StrapiPageRepo"),
	}
}

func (r *pageRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StoryPage, error) {
	story, err := r.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return story.Pages, nil
}

func (r *pageRepository) Create(ctx context.Context, page *models.StoryPage) error {
	story, err := r.stories.GetByID(ctx, page.StoryID)
	if err != nil {
		return err
	}
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	page.PageOrder = len(story.Pages) + 1
	story.Pages = append(story.Pages, *page)

	updated, err := r.stories.putDocument(ctx, story.EditorKey, toDocument(story))
	if err != nil {
		return err
	}
	*page = updated.Pages[len(updated.Pages)-1]
	return nil
}

func (r *pageRepository) Update(ctx context.Context, storyID, pageID uuid.UUID, upd storage.PageUpdate) (*models.StoryPage, error) {
	story, err := r.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	idx := pageIndex(story.Pages, pageID)
	if idx < 0 {
		return nil, models.ErrNotFound
	}

	page := &story.Pages[idx]
	if upd.Layout != nil {
		page.Layout = *upd.Layout
	}
	if upd.Text != nil {
		page.Text = upd.Text
	} else if upd.ClearText {
		page.Text = nil
	}
	if upd.Image != nil {
		page.Image = upd.Image
	}

	updated, err := r.stories.putDocument(ctx, story.EditorKey, toDocument(story))
	if err != nil {
		return nil, err
	}
	if idx >= len(updated.Pages) {
		return nil, models.ErrInternalServer
	}
	result := updated.Pages[idx]
	return &result, nil
}

func (r *pageRepository) Reorder(ctx context.Context, storyID, pageID uuid.UUID, newOrder int) error {
	story, err := r.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	if newOrder < 1 || newOrder > len(story.Pages) {
		return models.ErrValidation
	}
	idx := pageIndex(story.Pages, pageID)
	if idx < 0 {
		return models.ErrNotFound
	}
	if idx+1 == newOrder {
		return nil
	}

	// Components are ordered by position in the array; moving the element is
	// enough, the sequential orders are reassigned on serialization.
	pages := story.Pages
	moved := pages[idx]
	pages = append(pages[:idx], pages[idx+1:]...)
	rest := make([]models.StoryPage, 0, len(pages)+1)
	rest = append(rest, pages[:newOrder-1]...)
	rest = append(rest, moved)
	rest = append(rest, pages[newOrder-1:]...)
	story.Pages = rest

	_, err = r.stories.putDocument(ctx, story.EditorKey, toDocument(story))
	return err
}

func (r *pageRepository) Delete(ctx context.Context, storyID, pageID uuid.UUID) error {
	story, err := r.stories.GetByID(ctx, storyID)
	if err != nil {
		return err
	}
	idx := pageIndex(story.Pages, pageID)
	if idx < 0 {
		return models.ErrNotFound
	}
	story.Pages = append(story.Pages[:idx], story.Pages[idx+1:]...)

	_, err = r.stories.putDocument(ctx, story.EditorKey, toDocument(story))
	return err
}

func pageIndex(pages []models.StoryPage, pageID uuid.UUID) int {
	for i, p := range pages {
		if p.ID == pageID {
			return i
		}
	}
	return -1
}
