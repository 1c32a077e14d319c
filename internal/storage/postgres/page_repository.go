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

type pgPageRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPageRepository creates the Postgres page repository.
func NewPageRepository(pool *pgxpool.Pool, logger *zap.Logger) storage.PageRepository {
	return &pgPageRepository{pool: pool, logger: logger.Named("PgPageRepo")}
}

func (r *pgPageRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.StoryPage, error) {
	var pages []models.StoryPage
	err := pgxscan.Select(ctx, r.pool, &pages, `
		SELECT id, story_id, layout, text, image, page_order, created_at, modified_at
		FROM story_pages WHERE story_id = $1 ORDER BY page_order ASC`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// Create appends the page at the end of the story's sequence.
func (r *pgPageRepository) Create(ctx context.Context, page *models.StoryPage) error {
	if page.ID == uuid.Nil {
		page.ID = uuid.New()
	}
	now := time.Now().UTC()
	page.CreatedAt = now
	page.ModifiedAt = now

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		// Lock the story row so two concurrent appends cannot pick the same
		// order value.
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT true FROM stories WHERE id = $1 FOR UPDATE`, page.StoryID,
		).Scan(&exists); err != nil {
			return wrapNotFound(err)
		}
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(page_order), 0) + 1 FROM story_pages WHERE story_id = $1`,
			page.StoryID,
		).Scan(&page.PageOrder); err != nil {
			return fmt.Errorf("failed to compute page order: %w", err)
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO story_pages (id, story_id, layout, text, image, page_order, created_at, modified_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			page.ID, page.StoryID, page.Layout, page.Text, page.Image,
			page.PageOrder, page.CreatedAt, page.ModifiedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert page: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to create page",
			zap.String("storyID", page.StoryID.String()), zap.Error(err))
		return err
	}
	return nil
}

func (r *pgPageRepository) Update(ctx context.Context, storyID, pageID uuid.UUID, upd storage.PageUpdate) (*models.StoryPage, error) {
	builder := psql.Update("story_pages").
		Set("modified_at", time.Now().UTC()).
		Where(sq.Eq{"id": pageID, "story_id": storyID})
	if upd.Layout != nil {
		builder = builder.Set("layout", *upd.Layout)
	}
	if upd.Text != nil {
		builder = builder.Set("text", *upd.Text)
	} else if upd.ClearText {
		builder = builder.Set("text", nil)
	}
	if upd.Image != nil {
		builder = builder.Set("image", *upd.Image)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build page update: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, models.ErrNotFound
	}

	var page models.StoryPage
	err = pgxscan.Get(ctx, r.pool, &page, `
		SELECT id, story_id, layout, text, image, page_order, created_at, modified_at
		FROM story_pages WHERE id = $1 AND story_id = $2`, pageID, storyID)
	if err != nil {
		return nil, wrapNotFound(err)
	}
	return &page, nil
}

// Reorder moves the page to newOrder, shifting the pages between the old and
// new position by one so the order values stay a permutation of 1..N. All
// shifts happen in one transaction.
func (r *pgPageRepository) Reorder(ctx context.Context, storyID, pageID uuid.UUID, newOrder int) error {
	logFields := []zap.Field{
		zap.String("storyID", storyID.String()),
		zap.String("pageID", pageID.String()),
		zap.Int("newOrder", newOrder),
	}
	r.logger.Debug("Reordering page", logFields...)

	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var pages []models.StoryPage
		err := pgxscan.Select(ctx, tx, &pages, `
			SELECT id, story_id, layout, text, image, page_order, created_at, modified_at
			FROM story_pages WHERE story_id = $1 ORDER BY page_order ASC FOR UPDATE`, storyID)
		if err != nil {
			return fmt.Errorf("failed to load pages for reorder: %w", err)
		}

		moves, err := planReorder(pages, pageID, newOrder)
		if err != nil {
			return err
		}
		for id, order := range moves {
			if _, err := tx.Exec(ctx, `
				UPDATE story_pages SET page_order = $3, modified_at = now()
				WHERE id = $1 AND story_id = $2`, id, storyID, order,
			); err != nil {
				return fmt.Errorf("failed to shift page order: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to reorder page", append(logFields, zap.Error(err))...)
		return err
	}
	return nil
}

// Delete removes the page and closes the order gap it leaves behind.
func (r *pgPageRepository) Delete(ctx context.Context, storyID, pageID uuid.UUID) error {
	err := WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var order int
		err := tx.QueryRow(ctx,
			`DELETE FROM story_pages WHERE id = $1 AND story_id = $2 RETURNING page_order`,
			pageID, storyID,
		).Scan(&order)
		if err != nil {
			return wrapNotFound(err)
		}
		_, err = tx.Exec(ctx, `
			UPDATE story_pages SET page_order = page_order - 1, modified_at = now()
			WHERE story_id = $1 AND page_order > $2`, storyID, order)
		if err != nil {
			return fmt.Errorf("failed to close page order gap: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete page",
			zap.String("storyID", storyID.String()),
			zap.String("pageID", pageID.String()), zap.Error(err))
		return err
	}
	return nil
}

// planReorder computes the page_order moves for placing pageID at newOrder.
// Pages between the old and new position shift by one towards the vacated
// slot; every other page keeps its order. Returns models.ErrValidation when
// newOrder is outside 1..N and models.ErrNotFound when the page is absent.
func planReorder(pages []models.StoryPage, pageID uuid.UUID, newOrder int) (map[uuid.UUID]int, error) {
	if newOrder < 1 || newOrder > len(pages) {
		return nil, models.ErrValidation
	}

	var current *models.StoryPage
	for i := range pages {
		if pages[i].ID == pageID {
			current = &pages[i]
			break
		}
	}
	if current == nil {
		return nil, models.ErrNotFound
	}
	if current.PageOrder == newOrder {
		return nil, nil
	}

	start, end, direction := current.PageOrder, newOrder, -1
	if start > end {
		start, end, direction = end, start, 1
	}

	moves := map[uuid.UUID]int{current.ID: newOrder}
	for i := range pages {
		p := &pages[i]
		if p.ID != pageID && p.PageOrder >= start && p.PageOrder <= end {
			moves[p.ID] = p.PageOrder + direction
		}
	}
	return moves, nil
}
