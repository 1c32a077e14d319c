package service

import (
	"context"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MetaService exposes the keyword and author read models.
type MetaService struct {
	keywords storage.KeywordRepository
	authors  storage.AuthorRepository
	logger   *zap.Logger
}

func NewMetaService(keywords storage.KeywordRepository, authors storage.AuthorRepository, logger *zap.Logger) *MetaService {
	return &MetaService{
		keywords: keywords,
		authors:  authors,
		logger:   logger.Named("MetaService"),
	}
}

func (s *MetaService) ListKeywords(ctx context.Context) ([]models.Keyword, error) {
	return s.keywords.List(ctx)
}

// ListStoryKeywords returns the story's keyword set deduplicated by word.
func (s *MetaService) ListStoryKeywords(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error) {
	return s.keywords.ListByStory(ctx, storyID)
}

func (s *MetaService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return s.authors.List(ctx)
}
