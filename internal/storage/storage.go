// Package storage defines the backend-agnostic storage port for stories.
// The lifecycle logic only talks to these interfaces; the concrete adapters
// (relational Postgres, headless-CMS REST) live in subpackages.
package storage

import (
	"context"
	"time"

	"vomprater-server/internal/models"

	"github.com/google/uuid"
)

// StoryFilter narrows List results.
type StoryFilter struct {
	// OnlyAccepted restricts the list to publicly visible stories.
	OnlyAccepted bool
	Featured     *bool
	Locale       *string
	Limit        int
}

// StoryUpdate is a partial story update. Nil fields are untouched. Nullable
// columns are cleared via the explicit Clear flags rather than by overloading
// the pointer.
type StoryUpdate struct {
	Title         *string
	Slug          *string
	Year          *int
	Locale        *string
	Quote         *string
	ClearQuote    bool
	Featured      *bool
	FeaturedImage *string

	LifecycleState       *models.LifecycleState
	ReviewState          *models.ReviewState
	RejectionReason      *string
	ClearRejectionReason bool
	PublishedAt          *time.Time

	// Keywords, when non-nil, replaces the story's keyword set.
	Keywords []string
}

// PageUpdate is a partial page content update. Reordering is a separate
// operation because it touches sibling rows.
type PageUpdate struct {
	Layout    *models.PageLayout
	Text      *string
	ClearText bool
	Image     *string
}

// StoryRepository persists stories together with their pages and keywords.
type StoryRepository interface {
	// Create persists the story, its pages, its keywords and its author as a
	// single logical operation.
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	// GetByEditorKey resolves the opaque draft identifier used in edit links.
	GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error)
	GetBySlug(ctx context.Context, slug string) (*models.Story, error)
	List(ctx context.Context, filter StoryFilter) ([]models.Story, error)
	// Update applies a partial update and returns the fresh record.
	Update(ctx context.Context, id uuid.UUID, upd StoryUpdate) (*models.Story, error)
	// SetPasswordHash replaces the story's access-secret hash; a story has at
	// most one outstanding secret at a time.
	SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PageRepository manages the ordered page sequence of a story.
type PageRepository interface {
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StoryPage, error)
	// Create appends the page at the end of the sequence (order N+1).
	Create(ctx context.Context, page *models.StoryPage) error
	Update(ctx context.Context, storyID, pageID uuid.UUID, upd PageUpdate) (*models.StoryPage, error)
	// Reorder moves the page to newOrder and shifts the affected siblings so
	// the order values stay a permutation of 1..N. All shifted rows persist
	// atomically or not at all.
	Reorder(ctx context.Context, storyID, pageID uuid.UUID, newOrder int) error
	// Delete removes the page and closes the resulting order gap.
	Delete(ctx context.Context, storyID, pageID uuid.UUID) error
}

// KeywordRepository exposes the keyword read model.
type KeywordRepository interface {
	List(ctx context.Context) ([]models.Keyword, error)
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error)
}

// AuthorRepository exposes the author read model.
type AuthorRepository interface {
	List(ctx context.Context) ([]models.Author, error)
}
