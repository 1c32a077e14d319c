package postgres

import (
	"context"
	"fmt"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type pgKeywordRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewKeywordRepository creates the Postgres keyword read model.
func NewKeywordRepository(pool *pgxpool.Pool, logger *zap.Logger) storage.KeywordRepository {
	return &pgKeywordRepository{pool: pool, logger: logger.Named("PgKeywordRepo")}
}

func (r *pgKeywordRepository) List(ctx context.Context) ([]models.Keyword, error) {
	var keywords []models.Keyword
	err := pgxscan.Select(ctx, r.pool, &keywords,
		`SELECT id, word FROM keywords ORDER BY word ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keywords: %w", err)
	}
	return keywords, nil
}

func (r *pgKeywordRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Keyword, error) {
	var keywords []models.Keyword
	err := pgxscan.Select(ctx, r.pool, &keywords, `
		SELECT DISTINCT k.id, k.word
		FROM keywords k
		JOIN stories_keywords sk ON sk.keyword_id = k.id
		WHERE sk.story_id = $1
		ORDER BY k.word ASC`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list story keywords: %w", err)
	}
	return keywords, nil
}

type pgAuthorRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewAuthorRepository creates the Postgres author read model.
func NewAuthorRepository(pool *pgxpool.Pool, logger *zap.Logger) storage.AuthorRepository {
	return &pgAuthorRepository{pool: pool, logger: logger.Named("PgAuthorRepo")}
}

func (r *pgAuthorRepository) List(ctx context.Context) ([]models.Author, error) {
	var authors []models.Author
	err := pgxscan.Select(ctx, r.pool, &authors,
		`SELECT id, name, email, created_at FROM authors ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}
