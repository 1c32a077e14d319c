// Package lifecycle implements the story lifecycle/review state machine.
//
// The engine is a pure transition function: it never touches storage or the
// mailer. Callers load the previously persisted state, describe the requested
// change, and get back the next state plus the notification intents for the
// edges that were actually crossed. A separate dispatcher executes the intents
// after the state write commits, so persistence stays isolated from delivery.
package lifecycle

import (
	"vomprater-server/internal/models"
)

// State is the persisted lifecycle/review pair of a story.
type State struct {
	Lifecycle models.LifecycleState
	Review    models.ReviewState
}

// NewDraft returns the state of a freshly created story. Creation always
// starts a draft, so the story skips "created" and lands on "pending"
// immediately.
func NewDraft() State {
	return State{Lifecycle: models.LifecyclePending, Review: models.ReviewPending}
}

// Change describes the state portion of an update request. Nil fields are
// untouched. RejectionReason is only meaningful together with a rejected
// review target.
type Change struct {
	Lifecycle       *models.LifecycleState
	Review          *models.ReviewState
	RejectionReason *string
}

// NotificationKind names a transition edge that triggers an email.
type NotificationKind string

const (
	NotifyCreated   NotificationKind = "created"
	NotifySubmitted NotificationKind = "submitted"
	NotifyRejected  NotificationKind = "rejected"
	NotifyAccepted  NotificationKind = "accepted"
)

// Intent is a notification request produced by a transition. The dispatcher
// fills in addresses and links from the story record.
type Intent struct {
	Kind   NotificationKind
	Reason string // rejection reason, set for NotifyRejected
}

// Result is the outcome of applying a change.
type Result struct {
	Next State
	// ClearRejectionReason is set when the transition wipes a prior reason
	// (re-entering submitted).
	ClearRejectionReason bool
	// SetRejectionReason holds the reason to persist for a rejection.
	SetRejectionReason *string
	// Published is set when the story became publicly visible by this change.
	Published bool
	Intents   []Intent
}

// Apply computes the next state for a requested change against the previously
// persisted state.
//
// Ordering is fixed: conflicting targets are rejected outright, then lifecycle
// regression (rejection) is considered before lifecycle advancement
// (submission), before any notification intent is recorded. Intents are
// edge-triggered: they are only produced when the specific transition edge was
// crossed, never on updates that leave the state unchanged.
func Apply(prev State, ch Change) (Result, error) {
	res := Result{Next: prev}

	wantsSubmit := ch.Lifecycle != nil && *ch.Lifecycle == models.LifecycleSubmitted && prev.Lifecycle != models.LifecycleSubmitted
	wantsReject := ch.Review != nil && *ch.Review == models.ReviewRejected
	wantsAccept := ch.Review != nil && *ch.Review == models.ReviewAccepted

	// A single request must not both advance the lifecycle and regress it via
	// rejection, nor ask for two review verdicts at once.
	if wantsSubmit && (wantsReject || wantsAccept) {
		return Result{}, models.ErrConflictingTransition
	}

	// Regression first: moderation rejection returns control to the author.
	if wantsReject {
		switch {
		case prev.Lifecycle != models.LifecycleSubmitted:
			return Result{}, models.ErrInvalidTransition
		case prev.Review == models.ReviewRejected:
			// Re-rejecting is a no-op, no email.
			return res, nil
		case prev.Review == models.ReviewAccepted:
			return Result{}, models.ErrInvalidTransition
		}
		res.Next = State{Lifecycle: models.LifecyclePending, Review: models.ReviewRejected}
		res.SetRejectionReason = ch.RejectionReason
		reason := ""
		if ch.RejectionReason != nil {
			reason = *ch.RejectionReason
		}
		res.Intents = append(res.Intents, Intent{Kind: NotifyRejected, Reason: reason})
		return res, nil
	}

	// Acceptance via the generic review field follows publish semantics.
	if wantsAccept {
		return applyPublish(prev)
	}

	// Advancement: author submit.
	if ch.Lifecycle != nil {
		switch *ch.Lifecycle {
		case models.LifecycleSubmitted:
			if prev.Lifecycle != models.LifecyclePending {
				return Result{}, models.ErrInvalidTransition
			}
			// Every entry into submitted resets the verdict and clears any
			// prior rejection reason.
			res.Next = State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewPending}
			res.ClearRejectionReason = true
			res.Intents = append(res.Intents, Intent{Kind: NotifySubmitted})
			return res, nil
		case models.LifecyclePending, models.LifecycleCreated:
			if *ch.Lifecycle != prev.Lifecycle {
				// Lifecycle only moves forward; the sole regression is the
				// rejection path above.
				return Result{}, models.ErrInvalidTransition
			}
		}
	}

	// No state fields touched: plain content edit.
	return res, nil
}

// ApplyPublish is the explicit moderator publish action, distinct from the
// generic update because it carries publish side effects.
func ApplyPublish(prev State) (Result, error) {
	return applyPublish(prev)
}

func applyPublish(prev State) (Result, error) {
	switch {
	case prev.Lifecycle != models.LifecycleSubmitted:
		return Result{}, models.ErrInvalidTransition
	case prev.Review == models.ReviewAccepted:
		// Publishing twice is a no-op and must not dispatch a second email.
		return Result{Next: prev}, nil
	case prev.Review == models.ReviewRejected:
		return Result{}, models.ErrInvalidTransition
	}
	return Result{
		Next:      State{Lifecycle: models.LifecycleSubmitted, Review: models.ReviewAccepted},
		Published: true,
		Intents:   []Intent{{Kind: NotifyAccepted}},
	}, nil
}

// Submit is a convenience for the author submit action.
func Submit(prev State) (Result, error) {
	submitted := models.LifecycleSubmitted
	return Apply(prev, Change{Lifecycle: &submitted})
}

// Reject is a convenience for the moderation rejection action.
func Reject(prev State, reason string) (Result, error) {
	rejected := models.ReviewRejected
	return Apply(prev, Change{Review: &rejected, RejectionReason: &reason})
}

// CanAuthorEdit reports whether the author may still mutate content fields.
func CanAuthorEdit(prev State) bool {
	return prev.Lifecycle == models.LifecyclePending
}
