package strapi

import (
	"context"
	"net/http"
	"net/url"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type keywordListResponse struct {
	Data []keywordDocument `json:"data"`
}

type keywordRepository struct {
	client  *Client
	stories *storyRepository
	logger  *zap.Logger
}

// NewKeywordRepository creates the CMS-backed keyword read model.
func NewKeywordRepository(client *Client, logger *zap.Logger) storage.KeywordRepository {
	return &keywordRepository{
		client:  client,
		stories: &storyRepository{client: client, logger: logger.Named("StrapiStoryRepo")},
		logger:  logger.Named("StrapiKeywordRepo"),
	}
}

func (r *keywordRepository) List(ctx context.Context) ([]models.Keyword, error) {
	q := url.Values{}
	q.Set("sort", "name:asc")
	q.Set("pagination[limit]", "500")

	var resp keywordListResponse
	if err := r.client.do(ctx, http.MethodGet, "/api/keywords", q, nil, &resp); err != nil {
		return nil, err
	}
	keywords := make([]models.Keyword, 0, len(resp.Data))
	for _, doc := range resp.Data {
		keywords = append(keywords, models.Keyword{
			ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("strapi-keyword:"+doc.Name)),
			Word: doc.Name,
		})
	}
	return keywords, nil
}

func (r *keywordRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error) {
	story, err := r.stories.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return story.Keywords, nil
}

// The CMS flattens the author onto the story document, so the author read
// model is derived from the story collection.
type authorRepository struct {
	stories *storyRepository
	logger  *zap.Logger
}

// NewAuthorRepository creates the CMS-backed author read model.
func NewAuthorRepository(client *Client, logger *zap.Logger) storage.AuthorRepository {
	return &authorRepository{
		stories: &storyRepository{client: client, logger: logger.Named("StrapiStoryRepo")},
		logger:  logger.Named("StrapiAuthorRepo"),
	}
}

func (r *authorRepository) List(ctx context.Context) ([]models.Author, error) {
	stories, err := r.stories.List(ctx, storage.StoryFilter{})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	authors := make([]models.Author, 0, len(stories))
	for _, s := range stories {
		if s.Author.Email == "" || seen[s.Author.Email] {
			continue
		}
		seen[s.Author.Email] = true
		author := s.Author
		if author.ID == uuid.Nil {
			author.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("strapi-author:"+author.Email))
		}
		authors = append(authors, author)
	}
	return authors, nil
}
