package lifecycle_test

import (
	"errors"
	"testing"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func statePtr(s models.LifecycleState) *models.LifecycleState { return &s }

func reviewPtr(r models.ReviewState) *models.ReviewState { return &r }

func TestNewDraft(t *testing.T) {
	st := lifecycle.NewDraft()
	assert.Equal(t, models.LifecyclePending, st.Lifecycle)
	assert.Equal(t, models.ReviewPending, st.Review)
}

func TestSubmit(t *testing.T) {
	t.Run("from pending resets review and clears reason", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewRejected}
		res, err := lifecycle.Submit(prev)
		require.NoError(t, err)
		assert.Equal(t, models.LifecycleSubmitted, res.Next.Lifecycle)
		assert.Equal(t, models.ReviewPending, res.Next.Review)
		assert.True(t, res.ClearRejectionReason)
		require.Len(t, res.Intents, 1)
		assert.Equal(t, lifecycle.NotifySubmitted, res.Intents[0].Kind)
	})

	t.Run("submitting twice fails with InvalidTransition", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewPending}
		_, err := lifecycle.Submit(prev)
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})

	t.Run("submit from created fails", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleCreated, Review: models.ReviewPending}
		_, err := lifecycle.Submit(prev)
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})
}

func TestReject(t *testing.T) {
	t.Run("rejection regresses lifecycle to pending", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewPending}
		res, err := lifecycle.Reject(prev, "blurry image")
		require.NoError(t, err)
		assert.Equal(t, models.LifecyclePending, res.Next.Lifecycle)
		assert.Equal(t, models.ReviewRejected, res.Next.Review)
		require.NotNil(t, res.SetRejectionReason)
		assert.Equal(t, "blurry image", *res.SetRejectionReason)
		require.Len(t, res.Intents, 1)
		assert.Equal(t, lifecycle.NotifyRejected, res.Intents[0].Kind)
		assert.Equal(t, "blurry image", res.Intents[0].Reason)
	})

	t.Run("re-rejecting is a no-op without email", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewRejected}
		res, err := lifecycle.Reject(prev, "again")
		require.NoError(t, err)
		assert.Equal(t, prev, res.Next)
		assert.Empty(t, res.Intents)
	})

	t.Run("rejecting an accepted story fails", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewAccepted}
		_, err := lifecycle.Reject(prev, "too late")
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})

	t.Run("rejecting a pending story fails", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		_, err := lifecycle.Reject(prev, "not submitted")
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})
}

func TestPublish(t *testing.T) {
	t.Run("publish from pending review accepts the story", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewPending}
		res, err := lifecycle.ApplyPublish(prev)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewAccepted, res.Next.Review)
		assert.Equal(t, models.LifecycleSubmitted, res.Next.Lifecycle)
		assert.True(t, res.Published)
		require.Len(t, res.Intents, 1)
		assert.Equal(t, lifecycle.NotifyAccepted, res.Intents[0].Kind)
	})

	t.Run("publishing twice is edge-triggered, not level-triggered", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewAccepted}
		res, err := lifecycle.ApplyPublish(prev)
		require.NoError(t, err)
		assert.Equal(t, prev, res.Next)
		assert.False(t, res.Published)
		assert.Empty(t, res.Intents)
	})

	t.Run("publish of a rejected story fails", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewRejected}
		_, err := lifecycle.ApplyPublish(prev)
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})

	t.Run("publish of an unsubmitted story fails", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		_, err := lifecycle.ApplyPublish(prev)
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})
}

func TestApply(t *testing.T) {
	t.Run("conflicting submit and reject in one request", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		_, err := lifecycle.Apply(prev, lifecycle.Change{
			Lifecycle:       statePtr(models.LifecycleSubmitted),
			Review:          reviewPtr(models.ReviewRejected),
			RejectionReason: strPtr("contradiction"),
		})
		assert.True(t, errors.Is(err, models.ErrConflictingTransition))
	})

	t.Run("conflicting submit and accept in one request", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		_, err := lifecycle.Apply(prev, lifecycle.Change{
			Lifecycle: statePtr(models.LifecycleSubmitted),
			Review:    reviewPtr(models.ReviewAccepted),
		})
		assert.True(t, errors.Is(err, models.ErrConflictingTransition))
	})

	t.Run("content-only change leaves state untouched and fires nothing", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		res, err := lifecycle.Apply(prev, lifecycle.Change{})
		require.NoError(t, err)
		assert.Equal(t, prev, res.Next)
		assert.Empty(t, res.Intents)
	})

	t.Run("restating the current lifecycle is not a transition", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
		res, err := lifecycle.Apply(prev, lifecycle.Change{Lifecycle: statePtr(models.LifecyclePending)})
		require.NoError(t, err)
		assert.Equal(t, prev, res.Next)
		assert.Empty(t, res.Intents)
	})

	t.Run("lifecycle cannot move backwards outside rejection", func(t *testing.T) {
		prev := lifecycle.State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewPending}
		_, err := lifecycle.Apply(prev, lifecycle.Change{Lifecycle: statePtr(models.LifecyclePending)})
		assert.True(t, errors.Is(err, models.ErrInvalidTransition))
	})
}

func TestCanAuthorEdit(t *testing.T) {
	assert.True(t, lifecycle.CanAuthorEdit(lifecycle.State{Lifecycle: models.LifecyclePending}))
	assert.False(t, lifecycle.CanAuthorEdit(lifecycle.State{Lifecycle: models.LifecycleSubmitted}))
	assert.False(t, lifecycle.CanAuthorEdit(lifecycle.State{Lifecycle: models.LifecycleCreated}))
}
