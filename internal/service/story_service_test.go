package service

import (
	"context"
	"testing"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"
	"vomprater-server/internal/storage/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubDispatcher struct {
	calls     int
	intents   []lifecycle.Intent
	passwords []string
}

func (d *stubDispatcher) Dispatch(_ context.Context, _ *models.Story, intents []lifecycle.Intent, password string) {
	d.calls++
	d.intents = append(d.intents, intents...)
	if password != "" {
		d.passwords = append(d.passwords, password)
	}
}

type stubIssuer struct {
	token string
	err   error
}

func (i *stubIssuer) IssueToken(uuid.UUID) (string, error) { return i.token, i.err }

func newStoryService(repo *mocks.MockStoryRepository, d *stubDispatcher) *StoryService {
	return NewStoryService(repo, &stubIssuer{token: "signed-token"}, d, zap.NewNop())
}

func pendingStory() *models.Story {
	hash := "$2a$10$abcdefghijklmnopqrstuv"
	return &models.Story{
		ID:             uuid.New(),
		EditorKey:      uuid.New(),
		Title:          "Sommer im Prater",
		Slug:           "sommer-im-prater",
		Year:           1978,
		Locale:         "de",
		LifecycleState: models.LifecyclePending,
		ReviewState:    models.ReviewPending,
		PasswordHash:   &hash,
		Author:         models.Author{Name: "Anna", Email: "anna@example.com"},
	}
}

func submittedStory() *models.Story {
	s := pendingStory()
	s.LifecycleState = models.LifecycleSubmitted
	return s
}

func TestStoryService_Create(t *testing.T) {
	t.Run("creates draft and dispatches created email with password", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)

		var persisted *models.Story
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).
			Run(func(args mock.Arguments) { persisted = args.Get(1).(*models.Story) }).
			Return(nil)

		text := "Es war einmal"
		story, err := svc.Create(context.Background(), CreateStoryInput{
			Title:       "Sommer im Prater",
			Year:        1978,
			Locale:      "de",
			AuthorName:  "Anna",
			AuthorEmail: "anna@example.com",
			Keywords:    []string{"Riesenrad"},
			Pages:       []CreatePageInput{{Layout: models.PageLayoutText, Text: &text}},
		})
		require.NoError(t, err)

		assert.Equal(t, models.LifecyclePending, story.LifecycleState)
		assert.Equal(t, models.ReviewPending, story.ReviewState)
		assert.NotEqual(t, uuid.Nil, story.EditorKey)
		assert.NotEqual(t, story.ID, story.EditorKey)
		assert.Equal(t, "sommer-im-prater", story.Slug)
		require.NotNil(t, persisted.PasswordHash)

		require.Len(t, dispatcher.intents, 1)
		assert.Equal(t, lifecycle.NotifyCreated, dispatcher.intents[0].Kind)
		require.Len(t, dispatcher.passwords, 1)
		// The persisted hash must not be the plaintext that was mailed.
		assert.NotEqual(t, dispatcher.passwords[0], *persisted.PasswordHash)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown page layout", func(t *testing.T) {
		svc := newStoryService(new(mocks.MockStoryRepository), &stubDispatcher{})

		_, err := svc.Create(context.Background(), CreateStoryInput{
			Title:       "x",
			Locale:      "de",
			AuthorName:  "Anna",
			AuthorEmail: "anna@example.com",
			Pages:       []CreatePageInput{{Layout: "sideways"}},
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("rejects missing author email", func(t *testing.T) {
		svc := newStoryService(new(mocks.MockStoryRepository), &stubDispatcher{})

		_, err := svc.Create(context.Background(), CreateStoryInput{Title: "x", Locale: "de", AuthorName: "Anna"})
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("retries with suffixed slug on collision", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})

		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).
			Return(models.ErrAlreadyExists).Once()
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Story")).
			Return(nil).Once()

		story, err := svc.Create(context.Background(), CreateStoryInput{
			Title: "Sommer im Prater", Locale: "de", AuthorName: "Anna", AuthorEmail: "anna@example.com",
		})
		require.NoError(t, err)
		assert.Contains(t, story.Slug, "sommer-im-prater-")
		repo.AssertExpectations(t)
	})
}

func TestStoryService_Submit(t *testing.T) {
	t.Run("pending story submits and dispatches one email", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		repo.On("Update", mock.Anything, story.ID, mock.MatchedBy(func(upd storage.StoryUpdate) bool {
			return upd.LifecycleState != nil && *upd.LifecycleState == models.LifecycleSubmitted &&
				upd.ClearRejectionReason
		})).Return(submittedStory(), nil)

		_, err := svc.Submit(context.Background(), Actor{StoryID: story.ID}, story.ID)
		require.NoError(t, err)
		require.Len(t, dispatcher.intents, 1)
		assert.Equal(t, lifecycle.NotifySubmitted, dispatcher.intents[0].Kind)
		repo.AssertExpectations(t)
	})

	t.Run("double submit fails without dispatch", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := submittedStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Submit(context.Background(), Actor{StoryID: story.ID}, story.ID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		assert.Zero(t, dispatcher.calls)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("token scoped to another story is forbidden", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Submit(context.Background(), Actor{StoryID: uuid.New()}, story.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestStoryService_Reject(t *testing.T) {
	t.Run("rejection regresses lifecycle and mails the reason", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := submittedStory()

		rejected := pendingStory()
		rejected.ReviewState = models.ReviewRejected
		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		repo.On("Update", mock.Anything, story.ID, mock.MatchedBy(func(upd storage.StoryUpdate) bool {
			return upd.LifecycleState != nil && *upd.LifecycleState == models.LifecyclePending &&
				upd.ReviewState != nil && *upd.ReviewState == models.ReviewRejected &&
				upd.RejectionReason != nil && *upd.RejectionReason == "Jahr fehlt"
		})).Return(rejected, nil)

		_, err := svc.Reject(context.Background(), story.ID, "Jahr fehlt")
		require.NoError(t, err)
		require.Len(t, dispatcher.intents, 1)
		assert.Equal(t, lifecycle.NotifyRejected, dispatcher.intents[0].Kind)
		assert.Equal(t, "Jahr fehlt", dispatcher.intents[0].Reason)
		repo.AssertExpectations(t)
	})

	t.Run("re-rejecting is a no-op without write or email", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := submittedStory()
		story.ReviewState = models.ReviewRejected

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Reject(context.Background(), story.ID, "nochmal")
		require.NoError(t, err)
		assert.Zero(t, dispatcher.calls)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejecting a pending story is invalid", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Reject(context.Background(), story.ID, "zu früh")
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestStoryService_Publish(t *testing.T) {
	t.Run("publish accepts and sets publishedAt", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := submittedStory()

		accepted := submittedStory()
		accepted.ReviewState = models.ReviewAccepted
		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		repo.On("Update", mock.Anything, story.ID, mock.MatchedBy(func(upd storage.StoryUpdate) bool {
			return upd.ReviewState != nil && *upd.ReviewState == models.ReviewAccepted &&
				upd.PublishedAt != nil
		})).Return(accepted, nil)

		_, err := svc.Publish(context.Background(), story.ID)
		require.NoError(t, err)
		require.Len(t, dispatcher.intents, 1)
		assert.Equal(t, lifecycle.NotifyAccepted, dispatcher.intents[0].Kind)
		repo.AssertExpectations(t)
	})

	t.Run("publishing twice sends no second email", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := submittedStory()
		story.ReviewState = models.ReviewAccepted

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Publish(context.Background(), story.ID)
		require.NoError(t, err)
		assert.Zero(t, dispatcher.calls)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publishing a rejected story is invalid", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()
		story.ReviewState = models.ReviewRejected

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.Publish(context.Background(), story.ID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestStoryService_Update(t *testing.T) {
	t.Run("author cannot set a review verdict", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		accepted := models.ReviewAccepted
		_, err := svc.Update(context.Background(), Actor{StoryID: story.ID}, story.ID, UpdateStoryInput{
			ReviewState: &accepted,
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("submit and reject in one request conflict", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		submitted := models.LifecycleSubmitted
		rejectedState := models.ReviewRejected
		_, err := svc.Update(context.Background(), Actor{Moderator: true}, story.ID, UpdateStoryInput{
			LifecycleState: &submitted,
			ReviewState:    &rejectedState,
		})
		assert.ErrorIs(t, err, models.ErrConflictingTransition)
	})

	t.Run("author content edit on submitted story is invalid", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		title := "Neuer Titel"
		_, err := svc.Update(context.Background(), Actor{StoryID: story.ID}, story.ID, UpdateStoryInput{
			Title: &title,
		})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})

	t.Run("content-only edit persists without dispatch", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		dispatcher := &stubDispatcher{}
		svc := newStoryService(repo, dispatcher)
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		repo.On("Update", mock.Anything, story.ID, mock.MatchedBy(func(upd storage.StoryUpdate) bool {
			return upd.Title != nil && upd.Slug != nil && upd.LifecycleState == nil && upd.ReviewState == nil
		})).Return(story, nil)

		title := "Winter im Prater"
		_, err := svc.Update(context.Background(), Actor{StoryID: story.ID}, story.ID, UpdateStoryInput{
			Title: &title,
		})
		require.NoError(t, err)
		assert.Empty(t, dispatcher.intents)
		repo.AssertExpectations(t)
	})

	t.Run("featured flag is moderator-only", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		featured := true
		_, err := svc.Update(context.Background(), Actor{StoryID: story.ID}, story.ID, UpdateStoryInput{
			Featured: &featured,
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestStoryService_VerifyPassword(t *testing.T) {
	password := "korrekt-pferd-batterie"

	t.Run("unknown story", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		id := uuid.New()

		repo.On("GetByID", mock.Anything, id).Return(nil, models.ErrNotFound)

		_, err := svc.VerifyPassword(context.Background(), id, password)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("no password set", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()
		story.PasswordHash = nil

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.VerifyPassword(context.Background(), story.ID, password)
		assert.ErrorIs(t, err, models.ErrNoPasswordSet)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		_, err := svc.VerifyPassword(context.Background(), story.ID, "falsch")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

func TestStoryService_GetPublicBySlug(t *testing.T) {
	t.Run("non-accepted story reads as absent", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()

		repo.On("GetBySlug", mock.Anything, story.Slug).Return(story, nil)

		_, err := svc.GetPublicBySlug(context.Background(), story.Slug)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("accepted story is served", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()
		story.ReviewState = models.ReviewAccepted

		repo.On("GetBySlug", mock.Anything, story.Slug).Return(story, nil)

		got, err := svc.GetPublicBySlug(context.Background(), story.Slug)
		require.NoError(t, err)
		assert.Equal(t, story.ID, got.ID)
	})
}

func TestStoryService_Delete(t *testing.T) {
	t.Run("author may delete a pending story", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := pendingStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)
		repo.On("Delete", mock.Anything, story.ID).Return(nil)

		err := svc.Delete(context.Background(), Actor{StoryID: story.ID}, story.ID)
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("author may not delete a submitted story", func(t *testing.T) {
		repo := new(mocks.MockStoryRepository)
		svc := newStoryService(repo, &stubDispatcher{})
		story := submittedStory()

		repo.On("GetByID", mock.Anything, story.ID).Return(story, nil)

		err := svc.Delete(context.Background(), Actor{StoryID: story.ID}, story.ID)
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "sommer-im-prater", slugify("Sommer im Prater"))
	assert.Equal(t, "zuckerwatte-karussell", slugify("Zuckerwatte & Karussell!"))
	assert.Equal(t, "spaetsommer-1978", slugify("Spätsommer 1978"))
	assert.Equal(t, "strasse", slugify("Straße"))
}
