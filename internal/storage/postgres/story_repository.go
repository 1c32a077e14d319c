package postgres

import (
	"context"
	"fmt"
	"time"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const storyFields = `
	s.id, s.editor_key, s.title, s.slug, s.year, s.locale, s.quote, s.featured,
	s.featured_image, s.lifecycle_state, s.review_state, s.rejection_reason,
	s.password_hash, s.created_at, s.modified_at, s.published_at,
	a.id, a.name, a.email, a.created_at`

const storyFromClause = ` FROM stories s JOIN authors a ON a.id = s.author_id`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type pgStoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewStoryRepository creates the Postgres story repository.
func NewStoryRepository(pool *pgxpool.Pool, logger *zap.Logger) storage.StoryRepository {
	return &pgStoryRepository{pool: pool, logger: logger.Named("PgStoryRepo")}
}

func scanStory(row pgx.Row) (*models.Story, error) {
	var s models.Story
	err := row.Scan(
		&s.ID, &s.EditorKey, &s.Title, &s.Slug, &s.Year, &s.Locale, &s.Quote, &s.Featured,
		&s.FeaturedImage, &s.LifecycleState, &s.ReviewState, &s.RejectionReason,
		&s.PasswordHash, &s.CreatedAt, &s.ModifiedAt, &s.PublishedAt,
		&s.Author.ID, &s.Author.Name, &s.Author.Email, &s.Author.CreatedAt,
	)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &s, nil
}

// Create persists the story with its author, pages and keywords in one
// transaction. The author is deduplicated by email.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	logFields := []zap.Field{
		zap.String("storyID", story.ID.String()),
		zap.String("slug", story.Slug),
	}
	r.logger.Debug("Creating story", logFields...)

	now := time.Now().UTC()
	story.CreatedAt = now
	story.ModifiedAt = now

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO authors (name, email)
			VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, created_at`,
			story.Author.Name, story.Author.Email,
		).Scan(&story.Author.ID, &story.Author.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert author: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO stories (
				id, editor_key, title, slug, year, locale, quote, featured,
				featured_image, lifecycle_state, review_state, password_hash,
				author_id, created_at, modified_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			story.ID, story.EditorKey, story.Title, story.Slug, story.Year,
			story.Locale, story.Quote, story.Featured, story.FeaturedImage,
			story.LifecycleState, story.ReviewState, story.PasswordHash,
			story.Author.ID, story.CreatedAt, story.ModifiedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert story: %w", err)
		}

		for i := range story.Pages {
			p := &story.Pages[i]
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			p.StoryID = story.ID
			p.PageOrder = i + 1
			p.CreatedAt = now
			p.ModifiedAt = now
			if _, err := tx.Exec(ctx, `
				INSERT INTO story_pages (id, story_id, layout, text, image, page_order, created_at, modified_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, p.StoryID, p.Layout, p.Text, p.Image, p.PageOrder, p.CreatedAt, p.ModifiedAt,
			); err != nil {
				return fmt.Errorf("failed to insert page %d: %w", p.PageOrder, err)
			}
		}

		words := make([]string, 0, len(story.Keywords))
		for _, kw := range story.Keywords {
			words = append(words, kw.Word)
		}
		keywords, err := replaceKeywords(ctx, tx, story.ID, words)
		if err != nil {
			return err
		}
		story.Keywords = keywords
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return err
	}

	r.logger.Info("Story created", logFields...)
	return nil
}

func (r *pgStoryRepository) getBy(ctx context.Context, where string, arg any) (*models.Story, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+storyFields+storyFromClause+` WHERE `+where, arg)
	story, err := scanStory(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return r.getBy(ctx, "s.id = $1", id)
}

func (r *pgStoryRepository) GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error) {
	return r.getBy(ctx, "s.editor_key = $1", key)
}

func (r *pgStoryRepository) GetBySlug(ctx context.Context, slug string) (*models.Story, error) {
	return r.getBy(ctx, "s.slug = $1", slug)
}

func (r *pgStoryRepository) List(ctx context.Context, filter storage.StoryFilter) ([]models.Story, error) {
	builder := psql.Select(
		"s.id", "s.editor_key", "s.title", "s.slug", "s.year", "s.locale", "s.quote", "s.featured",
		"s.featured_image", "s.lifecycle_state", "s.review_state", "s.rejection_reason",
		"s.password_hash", "s.created_at", "s.modified_at", "s.published_at",
		"a.id", "a.name", "a.email", "a.created_at",
	).
		From("stories s").
		Join("authors a ON a.id = s.author_id").
		OrderBy("s.created_at DESC")

	if filter.OnlyAccepted {
		builder = builder.Where(sq.Eq{"s.review_state": models.ReviewAccepted})
	}
	if filter.Featured != nil {
		builder = builder.Where(sq.Eq{"s.featured": *filter.Featured})
	}
	if filter.Locale != nil {
		builder = builder.Where(sq.Eq{"s.locale": *filter.Locale})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *story)
	}
	return stories, rows.Err()
}

// Update applies a partial update. Only the columns named in upd change; the
// update is built dynamically so unrelated fields are never rewritten.
func (r *pgStoryRepository) Update(ctx context.Context, id uuid.UUID, upd storage.StoryUpdate) (*models.Story, error) {
	logFields := []zap.Field{zap.String("storyID", id.String())}
	r.logger.Debug("Updating story", logFields...)

	builder := psql.Update("stories").Set("modified_at", time.Now().UTC()).Where(sq.Eq{"id": id})
	if upd.Title != nil {
		builder = builder.Set("title", *upd.Title)
	}
	if upd.Slug != nil {
		builder = builder.Set("slug", *upd.Slug)
	}
	if upd.Year != nil {
		builder = builder.Set("year", *upd.Year)
	}
	if upd.Locale != nil {
		builder = builder.Set("locale", *upd.Locale)
	}
	if upd.Quote != nil {
		builder = builder.Set("quote", *upd.Quote)
	} else if upd.ClearQuote {
		builder = builder.Set("quote", nil)
	}
	if upd.Featured != nil {
		builder = builder.Set("featured", *upd.Featured)
	}
	if upd.FeaturedImage != nil {
		builder = builder.Set("featured_image", *upd.FeaturedImage)
	}
	if upd.LifecycleState != nil {
		builder = builder.Set("lifecycle_state", *upd.LifecycleState)
	}
	if upd.ReviewState != nil {
		builder = builder.Set("review_state", *upd.ReviewState)
	}
	if upd.RejectionReason != nil {
		builder = builder.Set("rejection_reason", *upd.RejectionReason)
	} else if upd.ClearRejectionReason {
		builder = builder.Set("rejection_reason", nil)
	}
	if upd.PublishedAt != nil {
		builder = builder.Set("published_at", *upd.PublishedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	err = WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return models.ErrAlreadyExists
			}
			return fmt.Errorf("failed to update story: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		if upd.Keywords != nil {
			if _, err := replaceKeywords(ctx, tx, id, upd.Keywords); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *pgStoryRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE stories SET password_hash = $2, modified_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("failed to set password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	logFields := []zap.Field{zap.String("storyID", id.String())}
	tag, err := r.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("failed to delete story: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", logFields...)
	return nil
}

// loadRelations fills in the ordered pages and the deduplicated keyword set.
func (r *pgStoryRepository) loadRelations(ctx context.Context, story *models.Story) error {
	var pages []models.StoryPage
	err := pgxscan.Select(ctx, r.pool, &pages, `
		SELECT id, story_id, layout, text, image, page_order, created_at, modified_at
		FROM story_pages WHERE story_id = $1 ORDER BY page_order ASC`, story.ID)
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}
	story.Pages = pages

	var keywords []models.Keyword
	err = pgxscan.Select(ctx, r.pool, &keywords, `
		SELECT DISTINCT k.id, k.word
		FROM keywords k
		JOIN stories_keywords sk ON sk.keyword_id = k.id
		WHERE sk.story_id = $1
		ORDER BY k.word ASC`, story.ID)
	if err != nil {
		return fmt.Errorf("failed to load keywords: %w", err)
	}
	story.Keywords = keywords
	return nil
}

// replaceKeywords swaps the story's keyword set for the given words, creating
// missing keyword rows on the fly.
func replaceKeywords(ctx context.Context, tx pgx.Tx, storyID uuid.UUID, words []string) ([]models.Keyword, error) {
	if _, err := tx.Exec(ctx, `DELETE FROM stories_keywords WHERE story_id = $1`, storyID); err != nil {
		return nil, fmt.Errorf("failed to clear story keywords: %w", err)
	}

	seen := make(map[string]bool, len(words))
	keywords := make([]models.Keyword, 0, len(words))
	for _, word := range words {
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true

		var kw models.Keyword
		kw.Word = word
		err := tx.QueryRow(ctx, `
			INSERT INTO keywords (word) VALUES ($1)
			ON CONFLICT (word) DO UPDATE SET word = EXCLUDED.word
			RETURNING id`, word,
		).Scan(&kw.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert keyword %q: %w", word, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stories_keywords (story_id, keyword_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, storyID, kw.ID,
		); err != nil {
			return nil, fmt.Errorf("failed to link keyword %q: %w", word, err)
		}
		keywords = append(keywords, kw)
	}
	return keywords, nil
}
