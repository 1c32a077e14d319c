package models

import (
	"time"

	"github.com/google/uuid"
)

// LifecycleState is the author-facing stage of a story.
type LifecycleState string

const (
	LifecycleCreated   LifecycleState = "created"
	LifecyclePending   LifecycleState = "pending"
	LifecycleSubmitted LifecycleState = "submitted"
)

// ReviewState is the moderator-facing verdict on a submitted story.
type ReviewState string

const (
	ReviewPending  ReviewState = "pending"
	ReviewRejected ReviewState = "rejected"
	ReviewAccepted ReviewState = "accepted"
)

// PageLayout enumerates the four page layout variants.
type PageLayout string

const (
	PageLayoutText          PageLayout = "text"
	PageLayoutImage         PageLayout = "image"
	PageLayoutTextOverImage PageLayout = "text-over-image"
	PageLayoutImageOverText PageLayout = "image-over-text"
)

// Valid reports whether l is one of the four known layouts.
func (l PageLayout) Valid() bool {
	switch l {
	case PageLayoutText, PageLayoutImage, PageLayoutTextOverImage, PageLayoutImageOverText:
		return true
	}
	return false
}

// Author is the person who wrote a story. Authors are created together with
// their first story and deduplicated by email.
type Author struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Keyword tags a story. Keywords are shared between stories (m2m) and
// deduplicated by word value.
type Keyword struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Word string    `db:"word" json:"word"`
}

// Story is a visitor-submitted memory with its pages and keywords.
//
// EditorKey is an opaque identifier used in draft/edit links instead of the
// primary key, so that mailed links do not allow id enumeration. PasswordHash
// holds the bcrypt hash of the story's access secret; the plaintext is mailed
// to the author exactly once and never stored.
type Story struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	EditorKey       uuid.UUID      `db:"editor_key" json:"-"`
	Title           string         `db:"title" json:"title"`
	Slug            string         `db:"slug" json:"slug"`
	Year            int            `db:"year" json:"year"`
	Locale          string         `db:"locale" json:"locale"`
	Quote           *string        `db:"quote" json:"quote,omitempty"`
	Featured        bool           `db:"featured" json:"featured"`
	FeaturedImage   *string        `db:"featured_image" json:"featuredImage,omitempty"`
	LifecycleState  LifecycleState `db:"lifecycle_state" json:"lifecycleState"`
	ReviewState     ReviewState    `db:"review_state" json:"reviewState"`
	RejectionReason *string        `db:"rejection_reason" json:"rejectionReason,omitempty"`
	PasswordHash    *string        `db:"password_hash" json:"-"`

	Author   Author      `db:"-" json:"author"`
	Pages    []StoryPage `db:"-" json:"pages,omitempty"`
	Keywords []Keyword   `db:"-" json:"keywords,omitempty"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	ModifiedAt  time.Time  `db:"modified_at" json:"modifiedAt"`
	PublishedAt *time.Time `db:"published_at" json:"publishedAt,omitempty"`
}

// PubliclyVisible reports whether the story may be served on the public site.
func (s *Story) PubliclyVisible() bool {
	return s.ReviewState == ReviewAccepted
}

// StoryPage is one illustrated page of a story. PageOrder values of a story's
// pages are always a contiguous permutation of 1..N.
type StoryPage struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	StoryID    uuid.UUID  `db:"story_id" json:"storyId"`
	Layout     PageLayout `db:"layout" json:"layout"`
	Text       *string    `db:"text" json:"text,omitempty"`
	Image      *string    `db:"image" json:"image,omitempty"`
	PageOrder  int        `db:"page_order" json:"pageOrder"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	ModifiedAt time.Time  `db:"modified_at" json:"modifiedAt"`
}
