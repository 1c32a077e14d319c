package postgres_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"
	"vomprater-server/internal/storage/postgres"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// IntegrationTestSuite exercises the Postgres adapter against a real database.
type IntegrationTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *tcpostgres.PostgresContainer
	pool        *pgxpool.Pool
	stories     storage.StoryRepository
	pages       storage.PageRepository
	logger      *zap.Logger
}

func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err)

	s.pgContainer, err = tcpostgres.Run(s.ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("test_db"),
		tcpostgres.WithUsername("testuser"),
		tcpostgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	migrateDSN := strings.Replace(connStr, "postgres://", "pgx5://", 1)
	require.NoError(s.T(), postgres.ApplyMigrations(migrateDSN, s.logger))

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.pool.Ping(s.ctx))

	s.stories = postgres.NewStoryRepository(s.pool, s.logger)
	s.pages = postgres.NewPageRepository(s.pool, s.logger)
}

func (s *IntegrationTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func TestIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		t.Fatalf("Docker client init error: %v. Ensure Docker is running and accessible.", err)
	}
	if _, err := cli.Ping(context.Background()); err != nil {
		t.Fatalf("Docker daemon is not running or accessible: %v", err)
	}
	cli.Close()

	suite.Run(t, new(IntegrationTestSuite))
}

func (s *IntegrationTestSuite) newStory(title string) *models.Story {
	text := "Es war einmal im Prater."
	draft := lifecycle.NewDraft()
	hash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	return &models.Story{
		ID:             uuid.New(),
		EditorKey:      uuid.New(),
		Title:          title,
		Slug:           strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		Year:           1975,
		Locale:         "de",
		LifecycleState: draft.Lifecycle,
		ReviewState:    draft.Review,
		PasswordHash:   &hash,
		Author:         models.Author{Name: "Anna", Email: uuid.NewString() + "@example.com"},
		Keywords:       []models.Keyword{{Word: "Riesenrad"}, {Word: "Sommer"}},
		Pages: []models.StoryPage{
			{ID: uuid.New(), Layout: models.PageLayoutText, Text: &text},
			{ID: uuid.New(), Layout: models.PageLayoutImage},
			{ID: uuid.New(), Layout: models.PageLayoutTextOverImage, Text: &text},
		},
	}
}

func (s *IntegrationTestSuite) TestCreateAndLoadStory() {
	t := s.T()
	story := s.newStory("Create And Load")

	require.NoError(t, s.stories.Create(s.ctx, story))

	loaded, err := s.stories.GetByID(s.ctx, story.ID)
	require.NoError(t, err)
	require.Equal(t, story.Title, loaded.Title)
	require.Equal(t, models.LifecyclePending, loaded.LifecycleState)
	require.Equal(t, "Anna", loaded.Author.Name)
	require.Len(t, loaded.Pages, 3)
	require.Len(t, loaded.Keywords, 2)
	for i, p := range loaded.Pages {
		require.Equal(t, i+1, p.PageOrder)
	}

	byKey, err := s.stories.GetByEditorKey(s.ctx, story.EditorKey)
	require.NoError(t, err)
	require.Equal(t, story.ID, byKey.ID)

	_, err = s.stories.GetByID(s.ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func (s *IntegrationTestSuite) TestLifecycleRoundTrip() {
	t := s.T()
	story := s.newStory("Lifecycle Round Trip")
	require.NoError(t, s.stories.Create(s.ctx, story))

	// Submit: lifecycle advances, review resets, prior reason clears.
	prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
	res, err := lifecycle.Submit(prev)
	require.NoError(t, err)

	var upd storage.StoryUpdate
	next := res.Next.Lifecycle
	upd.LifecycleState = &next
	upd.ClearRejectionReason = true
	updated, err := s.stories.Update(s.ctx, story.ID, upd)
	require.NoError(t, err)
	require.Equal(t, models.LifecycleSubmitted, updated.LifecycleState)
	require.Equal(t, models.ReviewPending, updated.ReviewState)

	// Reject: regression to pending with persisted reason.
	prev = lifecycle.State{Lifecycle: updated.LifecycleState, Review: updated.ReviewState}
	res, err = lifecycle.Reject(prev, "Jahr fehlt")
	require.NoError(t, err)

	upd = storage.StoryUpdate{}
	nextLC := res.Next.Lifecycle
	nextRV := res.Next.Review
	upd.LifecycleState = &nextLC
	upd.ReviewState = &nextRV
	upd.RejectionReason = res.SetRejectionReason
	updated, err = s.stories.Update(s.ctx, story.ID, upd)
	require.NoError(t, err)
	require.Equal(t, models.LifecyclePending, updated.LifecycleState)
	require.Equal(t, models.ReviewRejected, updated.ReviewState)
	require.NotNil(t, updated.RejectionReason)
	require.Equal(t, "Jahr fehlt", *updated.RejectionReason)

	// Resubmit clears the reason.
	upd = storage.StoryUpdate{}
	submitted := models.LifecycleSubmitted
	pending := models.ReviewPending
	upd.LifecycleState = &submitted
	upd.ReviewState = &pending
	upd.ClearRejectionReason = true
	updated, err = s.stories.Update(s.ctx, story.ID, upd)
	require.NoError(t, err)
	require.Nil(t, updated.RejectionReason)

	// Publish.
	upd = storage.StoryUpdate{}
	accepted := models.ReviewAccepted
	now := time.Now().UTC()
	upd.ReviewState = &accepted
	upd.PublishedAt = &now
	updated, err = s.stories.Update(s.ctx, story.ID, upd)
	require.NoError(t, err)
	require.True(t, updated.PubliclyVisible())
	require.NotNil(t, updated.PublishedAt)

	// Accepted stories appear in the public list.
	list, err := s.stories.List(s.ctx, storage.StoryFilter{OnlyAccepted: true})
	require.NoError(t, err)
	found := false
	for _, item := range list {
		if item.ID == story.ID {
			found = true
		}
	}
	require.True(t, found)
}

func (s *IntegrationTestSuite) TestPageReorderKeepsPermutation() {
	t := s.T()
	story := s.newStory("Page Reorder")
	require.NoError(t, s.stories.Create(s.ctx, story))

	pages, err := s.pages.ListByStory(s.ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	// Move the last page to the front.
	require.NoError(t, s.pages.Reorder(s.ctx, story.ID, pages[2].ID, 1))

	after, err := s.pages.ListByStory(s.ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, after, 3)
	require.Equal(t, pages[2].ID, after[0].ID)
	require.Equal(t, pages[0].ID, after[1].ID)
	require.Equal(t, pages[1].ID, after[2].ID)
	for i, p := range after {
		require.Equal(t, i+1, p.PageOrder)
	}

	// Out-of-range target leaves the sequence untouched.
	err = s.pages.Reorder(s.ctx, story.ID, after[0].ID, 7)
	require.ErrorIs(t, err, models.ErrValidation)

	unchanged, err := s.pages.ListByStory(s.ctx, story.ID)
	require.NoError(t, err)
	for i, p := range unchanged {
		require.Equal(t, after[i].ID, p.ID)
	}
}

func (s *IntegrationTestSuite) TestPageDeleteClosesGap() {
	t := s.T()
	story := s.newStory("Page Delete")
	require.NoError(t, s.stories.Create(s.ctx, story))

	pages, err := s.pages.ListByStory(s.ctx, story.ID)
	require.NoError(t, err)
	require.NoError(t, s.pages.Delete(s.ctx, story.ID, pages[1].ID))

	after, err := s.pages.ListByStory(s.ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, after, 2)
	require.Equal(t, 1, after[0].PageOrder)
	require.Equal(t, 2, after[1].PageOrder)
	require.Equal(t, pages[0].ID, after[0].ID)
	require.Equal(t, pages[2].ID, after[1].ID)
}

func (s *IntegrationTestSuite) TestPageAppend() {
	t := s.T()
	story := s.newStory("Page Append")
	require.NoError(t, s.stories.Create(s.ctx, story))

	page := &models.StoryPage{StoryID: story.ID, Layout: models.PageLayoutImageOverText}
	require.NoError(t, s.pages.Create(s.ctx, page))
	require.Equal(t, 4, page.PageOrder)
}

func (s *IntegrationTestSuite) TestSlugUniqueness() {
	t := s.T()
	first := s.newStory("Slug Unique")
	require.NoError(t, s.stories.Create(s.ctx, first))

	second := s.newStory("Slug Unique")
	err := s.stories.Create(s.ctx, second)
	require.ErrorIs(t, err, models.ErrAlreadyExists)
}

func (s *IntegrationTestSuite) TestSetPasswordHashReplaces() {
	t := s.T()
	story := s.newStory("Password Replace")
	require.NoError(t, s.stories.Create(s.ctx, story))

	require.NoError(t, s.stories.SetPasswordHash(s.ctx, story.ID, "$2a$10$replacementreplacementreplacement"))

	loaded, err := s.stories.GetByID(s.ctx, story.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.PasswordHash)
	require.Equal(t, "$2a$10$replacementreplacementreplacement", *loaded.PasswordHash)
}
