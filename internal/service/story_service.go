package service

import (
	"context"
	"errors"
	"fmt"

	"vomprater-server/internal/access"
	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	storiesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vomprater_stories_published_total",
		Help: "Number of stories published by moderators.",
	})
	storiesRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vomprater_stories_rejected_total",
		Help: "Number of story submissions rejected by moderators.",
	})
)

// CreatePageInput is one page of a new story.
type CreatePageInput struct {
	Layout models.PageLayout
	Text   *string
	Image  *string
}

// CreateStoryInput is the payload for creating a draft.
type CreateStoryInput struct {
	Title       string
	Year        int
	Locale      string
	Quote       *string
	AuthorName  string
	AuthorEmail string
	Keywords    []string
	Pages       []CreatePageInput
}

// UpdateStoryInput is a partial story update. Nil fields are untouched. State
// fields are only honored for actors with the matching capability.
type UpdateStoryInput struct {
	Title         *string
	Year          *int
	Locale        *string
	Quote         *string
	ClearQuote    bool
	Featured      *bool
	FeaturedImage *string
	Keywords      []string

	LifecycleState  *models.LifecycleState
	ReviewState     *models.ReviewState
	RejectionReason *string
}

// ListStoriesInput filters the story list.
type ListStoriesInput struct {
	Featured *bool
	Locale   *string
	Limit    int
	// IncludeUnreviewed lists drafts and submissions too; moderators only.
	IncludeUnreviewed bool
}

// StoryService implements the story use cases.
type StoryService struct {
	stories    storage.StoryRepository
	tokens     TokenIssuer
	dispatcher NotificationDispatcher
	logger     *zap.Logger
}

// NewStoryService creates the story service.
func NewStoryService(stories storage.StoryRepository, tokens TokenIssuer, dispatcher NotificationDispatcher, logger *zap.Logger) *StoryService {
	return &StoryService{
		stories:    stories,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger.Named("StoryService"),
	}
}

// Create persists a new draft, mails the author the edit link and the freshly
// generated password, and returns the story. The plaintext password exists
// only for the duration of the dispatch; it is never stored or returned.
func (s *StoryService) Create(ctx context.Context, input CreateStoryInput) (*models.Story, error) {
	log := s.logger.With(zap.String("title", input.Title))

	if input.Title == "" || input.AuthorName == "" || input.AuthorEmail == "" {
		return nil, fmt.Errorf("%w: title, author name and author email are required", models.ErrValidation)
	}
	if input.Locale != "de" && input.Locale != "en" {
		return nil, fmt.Errorf("%w: locale must be de or en", models.ErrValidation)
	}
	for _, p := range input.Pages {
		if !p.Layout.Valid() {
			return nil, fmt.Errorf("%w: unknown page layout %q", models.ErrValidation, p.Layout)
		}
	}

	password, err := access.GeneratePassword()
	if err != nil {
		log.Error("Failed to generate story password", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}
	hash, err := access.HashPassword(password)
	if err != nil {
		log.Error("Failed to hash story password", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}

	draft := lifecycle.NewDraft()
	story := &models.Story{
		ID:             uuid.New(),
		EditorKey:      uuid.New(),
		Title:          input.Title,
		Slug:           slugify(input.Title),
		Year:           input.Year,
		Locale:         input.Locale,
		Quote:          input.Quote,
		LifecycleState: draft.Lifecycle,
		ReviewState:    draft.Review,
		PasswordHash:   &hash,
		Author: models.Author{
			Name:  input.AuthorName,
			Email: input.AuthorEmail,
		},
	}
	for _, word := range input.Keywords {
		story.Keywords = append(story.Keywords, models.Keyword{Word: word})
	}
	for i, p := range input.Pages {
		story.Pages = append(story.Pages, models.StoryPage{
			ID:        uuid.New(),
			StoryID:   story.ID,
			Layout:    p.Layout,
			Text:      p.Text,
			Image:     p.Image,
			PageOrder: i + 1,
		})
	}

	if err := s.stories.Create(ctx, story); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			// Slug collision with another story of the same title.
			story.Slug = fmt.Sprintf("%s-%s", story.Slug, story.ID.String()[:8])
			err = s.stories.Create(ctx, story)
		}
		if err != nil {
			log.Error("Failed to persist story", zap.Error(err))
			return nil, err
		}
	}

	log.Info("Story created", zap.String("story_id", story.ID.String()))
	s.dispatcher.Dispatch(ctx, story, []lifecycle.Intent{{Kind: lifecycle.NotifyCreated}}, password)
	return story, nil
}

// GetByID returns a story by primary key. Visibility filtering is the
// handler's concern; drafts are reachable here for authorized actors.
func (s *StoryService) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return s.stories.GetByID(ctx, id)
}

// GetByEditorKey resolves the opaque draft link identifier.
func (s *StoryService) GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error) {
	return s.stories.GetByEditorKey(ctx, key)
}

// GetPublicBySlug returns an accepted story by slug. Non-accepted stories are
// indistinguishable from absent ones.
func (s *StoryService) GetPublicBySlug(ctx context.Context, slug string) (*models.Story, error) {
	story, err := s.stories.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !story.PubliclyVisible() {
		return nil, models.ErrNotFound
	}
	return story, nil
}

// List returns stories ordered by creation time, newest first.
func (s *StoryService) List(ctx context.Context, input ListStoriesInput) ([]models.Story, error) {
	return s.stories.List(ctx, storage.StoryFilter{
		OnlyAccepted: !input.IncludeUnreviewed,
		Featured:     input.Featured,
		Locale:       input.Locale,
		Limit:        input.Limit,
	})
}

// Update applies a combined content/state update. The lifecycle engine runs
// against the previously persisted state; notification intents dispatch only
// after the write commits.
func (s *StoryService) Update(ctx context.Context, actor Actor, id uuid.UUID, input UpdateStoryInput) (*models.Story, error) {
	log := s.logger.With(zap.String("story_id", id.String()))

	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayTouch(story.ID) {
		return nil, models.ErrForbidden
	}
	if input.ReviewState != nil && !actor.Moderator {
		// Review verdicts are a moderator capability regardless of payload.
		return nil, models.ErrForbidden
	}
	if input.Locale != nil && *input.Locale != "de" && *input.Locale != "en" {
		return nil, fmt.Errorf("%w: locale must be de or en", models.ErrValidation)
	}

	prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
	res, err := lifecycle.Apply(prev, lifecycle.Change{
		Lifecycle:       input.LifecycleState,
		Review:          input.ReviewState,
		RejectionReason: input.RejectionReason,
	})
	if err != nil {
		return nil, err
	}

	touchesContent := input.Title != nil || input.Year != nil || input.Locale != nil ||
		input.Quote != nil || input.ClearQuote || input.Featured != nil ||
		input.FeaturedImage != nil || input.Keywords != nil
	if touchesContent && !actor.Moderator && !lifecycle.CanAuthorEdit(prev) {
		return nil, models.ErrInvalidTransition
	}
	if (input.Featured != nil || input.FeaturedImage != nil) && !actor.Moderator {
		return nil, models.ErrForbidden
	}

	upd := storage.StoryUpdate{
		Title:         input.Title,
		Year:          input.Year,
		Locale:        input.Locale,
		Quote:         input.Quote,
		ClearQuote:    input.ClearQuote,
		Featured:      input.Featured,
		FeaturedImage: input.FeaturedImage,
		Keywords:      input.Keywords,
	}
	if input.Title != nil {
		slug := slugify(*input.Title)
		upd.Slug = &slug
	}
	applyState(&upd, prev, res)

	updated, err := s.stories.Update(ctx, id, upd)
	if err != nil {
		log.Error("Failed to persist story update", zap.Error(err))
		return nil, err
	}

	s.dispatcher.Dispatch(ctx, updated, res.Intents, "")
	return updated, nil
}

// Submit moves a pending story into review.
func (s *StoryService) Submit(ctx context.Context, actor Actor, id uuid.UUID) (*models.Story, error) {
	log := s.logger.With(zap.String("story_id", id.String()))

	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.mayTouch(story.ID) {
		return nil, models.ErrForbidden
	}

	prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
	res, err := lifecycle.Submit(prev)
	if err != nil {
		return nil, err
	}

	var upd storage.StoryUpdate
	applyState(&upd, prev, res)
	updated, err := s.stories.Update(ctx, id, upd)
	if err != nil {
		log.Error("Failed to persist submission", zap.Error(err))
		return nil, err
	}

	log.Info("Story submitted for review")
	s.dispatcher.Dispatch(ctx, updated, res.Intents, "")
	return updated, nil
}

// Reject records a moderation rejection and returns the story to the author.
func (s *StoryService) Reject(ctx context.Context, id uuid.UUID, reason string) (*models.Story, error) {
	log := s.logger.With(zap.String("story_id", id.String()))

	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
	res, err := lifecycle.Reject(prev, reason)
	if err != nil {
		return nil, err
	}
	if res.Next == prev {
		// Re-rejecting an already rejected story changes nothing.
		return story, nil
	}

	var upd storage.StoryUpdate
	applyState(&upd, prev, res)
	updated, err := s.stories.Update(ctx, id, upd)
	if err != nil {
		log.Error("Failed to persist rejection", zap.Error(err))
		return nil, err
	}

	storiesRejected.Inc()
	log.Info("Story rejected", zap.String("reason", reason))
	s.dispatcher.Dispatch(ctx, updated, res.Intents, "")
	return updated, nil
}

// Publish accepts a submitted story and makes it publicly visible.
func (s *StoryService) Publish(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	log := s.logger.With(zap.String("story_id", id.String()))

	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
	res, err := lifecycle.ApplyPublish(prev)
	if err != nil {
		return nil, err
	}
	if !res.Published {
		// Already accepted: nothing to write, no second email.
		return story, nil
	}

	var upd storage.StoryUpdate
	applyState(&upd, prev, res)
	updated, err := s.stories.Update(ctx, id, upd)
	if err != nil {
		log.Error("Failed to persist publication", zap.Error(err))
		return nil, err
	}

	storiesPublished.Inc()
	log.Info("Story published", zap.String("slug", updated.Slug))
	s.dispatcher.Dispatch(ctx, updated, res.Intents, "")
	return updated, nil
}

// Delete removes a story. Authors may delete their own story while it is
// still pending; moderators may delete anything.
func (s *StoryService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.mayTouch(story.ID) {
		return models.ErrForbidden
	}
	if !actor.Moderator {
		prev := lifecycle.State{Lifecycle: story.LifecycleState, Review: story.ReviewState}
		if !lifecycle.CanAuthorEdit(prev) {
			return models.ErrInvalidTransition
		}
	}

	if err := s.stories.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete story", zap.String("story_id", id.String()), zap.Error(err))
		return err
	}
	s.logger.Info("Story deleted", zap.String("story_id", id.String()))
	return nil
}

// VerifyPassword exchanges the story password for a story-scoped access
// token. Every failure mode is explicit so the handler can map statuses.
func (s *StoryService) VerifyPassword(ctx context.Context, id uuid.UUID, password string) (string, error) {
	log := s.logger.With(zap.String("story_id", id.String()))

	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if story.PasswordHash == nil || *story.PasswordHash == "" {
		return "", models.ErrNoPasswordSet
	}
	if !access.CheckPassword(password, *story.PasswordHash) {
		log.Warn("Story password mismatch")
		return "", models.ErrUnauthorized
	}

	token, err := s.tokens.IssueToken(story.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}
	return token, nil
}

// applyState copies a lifecycle result into a storage update.
func applyState(upd *storage.StoryUpdate, prev lifecycle.State, res lifecycle.Result) {
	if res.Next.Lifecycle != prev.Lifecycle {
		next := res.Next.Lifecycle
		upd.LifecycleState = &next
	}
	if res.Next.Review != prev.Review {
		next := res.Next.Review
		upd.ReviewState = &next
	}
	upd.RejectionReason = res.SetRejectionReason
	upd.ClearRejectionReason = res.ClearRejectionReason
	if res.Published {
		now := nowUTC()
		upd.PublishedAt = &now
	}
}
