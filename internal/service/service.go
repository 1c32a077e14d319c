// Package service contains the application services sitting between the HTTP
// handlers and the storage port. Services own authorization decisions, run the
// lifecycle engine against the previously persisted state, persist the outcome
// and hand notification intents to the dispatcher after the write commits.
package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"vomprater-server/internal/lifecycle"
	"vomprater-server/internal/models"

	"github.com/google/uuid"
)

// nowUTC is a variable so tests can pin the clock.
var nowUTC = func() time.Time { return time.Now().UTC() }

// Actor identifies who is performing a mutation. The capability is explicit:
// moderator rights are granted by the platform token, never inferred from
// which fields a request happens to touch.
type Actor struct {
	// StoryID is the story the access token is scoped to. Zero for moderators.
	StoryID   uuid.UUID
	Moderator bool
}

// mayTouch reports whether the actor may mutate the given story at all.
func (a Actor) mayTouch(storyID uuid.UUID) bool {
	return a.Moderator || a.StoryID == storyID
}

// NotificationDispatcher executes notification intents after a state write.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, story *models.Story, intents []lifecycle.Intent, password string)
}

// TokenIssuer signs story-scoped access tokens.
type TokenIssuer interface {
	IssueToken(storyID uuid.UUID) (string, error)
}

// slugify derives a URL slug from a title. Collisions are resolved by the
// caller with a random suffix.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r == 'ä':
			b.WriteString("ae")
			lastDash = false
		case r == 'ö':
			b.WriteString("oe")
			lastDash = false
		case r == 'ü':
			b.WriteString("ue")
			lastDash = false
		case r == 'ß':
			b.WriteString("ss")
			lastDash = false
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
