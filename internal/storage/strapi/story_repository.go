package strapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"vomprater-server/internal/models"
	"vomprater-server/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The CMS stores pages as embedded components and flattens the author onto
// the story document, so one repository serves the whole aggregate. Layout
// names differ from the relational backend; the four-way enumeration is the
// same.
var layoutToStrapi = map[models.PageLayout]string{
	models.PageLayoutText:          "text",
	models.PageLayoutImage:         "image",
	models.PageLayoutTextOverImage: "text-image",
	models.PageLayoutImageOverText: "image-text",
}

var layoutFromStrapi = map[string]models.PageLayout{
	"text":       models.PageLayoutText,
	"image":      models.PageLayoutImage,
	"text-image": models.PageLayoutTextOverImage,
	"image-text": models.PageLayoutImageOverText,
}

type storyDocument struct {
	DocumentID      string            `json:"documentId,omitempty"`
	ExternalID      string            `json:"externalId,omitempty"`
	UUID            string            `json:"uuid"`
	Title           string            `json:"title"`
	Slug            string            `json:"slug"`
	Year            int               `json:"year"`
	Language        string            `json:"language"`
	Quote           *string           `json:"quote,omitempty"`
	Featured        bool              `json:"featured"`
	FeaturedImage   *string           `json:"featuredImage,omitempty"`
	LifecycleState  string            `json:"lifecycleState"`
	ReviewState     string            `json:"reviewState"`
	RejectionReason *string           `json:"rejectionReason,omitempty"`
	PasswordHash    *string           `json:"passwordHash,omitempty"`
	AuthorName      string            `json:"authorName"`
	AuthorEmail     string            `json:"authorEmail"`
	Pages           []pageComponent   `json:"pages"`
	Keywords        []keywordDocument `json:"keywords"`
	CreatedAt       time.Time         `json:"createdAt,omitempty"`
	UpdatedAt       time.Time         `json:"updatedAt,omitempty"`
	PublishedAt     *time.Time        `json:"publishedAt,omitempty"`
}

type pageComponent struct {
	ID     string  `json:"uid,omitempty"`
	Layout string  `json:"layout"`
	Text   *string `json:"text,omitempty"`
	Image  *string `json:"image,omitempty"`
	Order  int     `json:"pageOrder"`
}

type keywordDocument struct {
	DocumentID string `json:"documentId,omitempty"`
	Name       string `json:"name"`
}

type documentResponse struct {
	Data storyDocument `json:"data"`
}

type documentListResponse struct {
	Data []storyDocument `json:"data"`
}

type storyRepository struct {
	client *Client
	logger *zap.Logger
}

// NewStoryRepository creates the CMS-backed story repository.
func NewStoryRepository(client *Client, logger *zap.Logger) storage.StoryRepository {
	return &storyRepository{client: client, logger: logger.Named("StrapiStoryRepo")}
}

func toDocument(story *models.Story) storyDocument {
	doc := storyDocument{
		ExternalID:      story.ID.String(),
		UUID:            story.EditorKey.String(),
		Title:           story.Title,
		Slug:            story.Slug,
		Year:            story.Year,
		Language:        story.Locale,
		Quote:           story.Quote,
		Featured:        story.Featured,
		FeaturedImage:   story.FeaturedImage,
		LifecycleState:  string(story.LifecycleState),
		ReviewState:     string(story.ReviewState),
		RejectionReason: story.RejectionReason,
		PasswordHash:    story.PasswordHash,
		AuthorName:      story.Author.Name,
		AuthorEmail:     story.Author.Email,
	}
	for i, p := range story.Pages {
		doc.Pages = append(doc.Pages, pageComponent{
			ID:     p.ID.String(),
			Layout: layoutToStrapi[p.Layout],
			Text:   p.Text,
			Image:  p.Image,
			Order:  i + 1,
		})
	}
	for _, kw := range story.Keywords {
		doc.Keywords = append(doc.Keywords, keywordDocument{Name: kw.Word})
	}
	return doc
}

func fromDocument(doc storyDocument) (*models.Story, error) {
	editorKey, err := uuid.Parse(doc.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid story uuid %q: %w", doc.UUID, err)
	}
	// Documents carry the canonical story id in a filterable field. Documents
	// created outside this service fall back to an id derived from the CMS
	// document id so callers always see the same id type.
	storyID, err := uuid.Parse(doc.ExternalID)
	if err != nil {
		storyID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("strapi:"+doc.DocumentID))
	}
	story := &models.Story{
		ID:              storyID,
		EditorKey:       editorKey,
		Title:           doc.Title,
		Slug:            doc.Slug,
		Year:            doc.Year,
		Locale:          doc.Language,
		Quote:           doc.Quote,
		Featured:        doc.Featured,
		FeaturedImage:   doc.FeaturedImage,
		LifecycleState:  models.LifecycleState(doc.LifecycleState),
		ReviewState:     models.ReviewState(doc.ReviewState),
		RejectionReason: doc.RejectionReason,
		PasswordHash:    doc.PasswordHash,
		Author: models.Author{
			Name:  doc.AuthorName,
			Email: doc.AuthorEmail,
		},
		CreatedAt:   doc.CreatedAt,
		ModifiedAt:  doc.UpdatedAt,
		PublishedAt: doc.PublishedAt,
	}
	for _, p := range doc.Pages {
		layout, ok := layoutFromStrapi[p.Layout]
		if !ok {
			return nil, fmt.Errorf("unknown page layout %q", p.Layout)
		}
		pageID, err := uuid.Parse(p.ID)
		if err != nil {
			pageID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("strapi-page:"+doc.DocumentID+":"+strconv.Itoa(p.Order)))
		}
		story.Pages = append(story.Pages, models.StoryPage{
			ID:        pageID,
			StoryID:   story.ID,
			Layout:    layout,
			Text:      p.Text,
			Image:     p.Image,
			PageOrder: p.Order,
		})
	}
	seen := map[string]bool{}
	for _, kw := range doc.Keywords {
		if seen[kw.Name] {
			continue
		}
		seen[kw.Name] = true
		story.Keywords = append(story.Keywords, models.Keyword{
			ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte("strapi-keyword:"+kw.Name)),
			Word: kw.Name,
		})
	}
	return story, nil
}

func (r *storyRepository) Create(ctx context.Context, story *models.Story) error {
	var resp documentResponse
	body := map[string]any{"data": toDocument(story)}
	if err := r.client.do(ctx, http.MethodPost, "/api/stories", nil, body, &resp); err != nil {
		r.logger.Error("Failed to create story document", zap.Error(err))
		return err
	}
	created, err := fromDocument(resp.Data)
	if err != nil {
		return err
	}
	*story = *created
	return nil
}

func populateQuery() url.Values {
	q := url.Values{}
	q.Set("populate", "*")
	return q
}

func (r *storyRepository) findOne(ctx context.Context, field, value string) (*models.Story, error) {
	q := populateQuery()
	q.Set(fmt.Sprintf("filters[%s][$eq]", field), value)
	q.Set("pagination[limit]", "1")

	var resp documentListResponse
	if err := r.client.do(ctx, http.MethodGet, "/api/stories", q, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, models.ErrNotFound
	}
	return fromDocument(resp.Data[0])
}

func (r *storyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	return r.findOne(ctx, "externalId", id.String())
}

func (r *storyRepository) GetByEditorKey(ctx context.Context, key uuid.UUID) (*models.Story, error) {
	return r.findOne(ctx, "uuid", key.String())
}

func (r *storyRepository) GetBySlug(ctx context.Context, slug string) (*models.Story, error) {
	return r.findOne(ctx, "slug", slug)
}

func (r *storyRepository) List(ctx context.Context, filter storage.StoryFilter) ([]models.Story, error) {
	q := populateQuery()
	q.Set("sort", "createdAt:desc")
	if filter.OnlyAccepted {
		q.Set("filters[reviewState][$eq]", string(models.ReviewAccepted))
	}
	if filter.Featured != nil {
		q.Set("filters[featured][$eq]", strconv.FormatBool(*filter.Featured))
	}
	if filter.Locale != nil {
		q.Set("filters[language][$eq]", *filter.Locale)
	}
	if filter.Limit > 0 {
		q.Set("pagination[limit]", strconv.Itoa(filter.Limit))
	}

	var resp documentListResponse
	if err := r.client.do(ctx, http.MethodGet, "/api/stories", q, nil, &resp); err != nil {
		return nil, err
	}
	stories := make([]models.Story, 0, len(resp.Data))
	for _, doc := range resp.Data {
		story, err := fromDocument(doc)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *story)
	}
	return stories, nil
}

// Update loads the current document, merges the partial update and writes the
// whole document back. The CMS applies the write atomically per document,
// which covers the multi-field transition updates.
func (r *storyRepository) Update(ctx context.Context, id uuid.UUID, upd storage.StoryUpdate) (*models.Story, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc := toDocument(current)

	if upd.Title != nil {
		doc.Title = *upd.Title
	}
	if upd.Slug != nil {
		doc.Slug = *upd.Slug
	}
	if upd.Year != nil {
		doc.Year = *upd.Year
	}
	if upd.Locale != nil {
		doc.Language = *upd.Locale
	}
	if upd.Quote != nil {
		doc.Quote = upd.Quote
	} else if upd.ClearQuote {
		doc.Quote = nil
	}
	if upd.Featured != nil {
		doc.Featured = *upd.Featured
	}
	if upd.FeaturedImage != nil {
		doc.FeaturedImage = upd.FeaturedImage
	}
	if upd.LifecycleState != nil {
		doc.LifecycleState = string(*upd.LifecycleState)
	}
	if upd.ReviewState != nil {
		doc.ReviewState = string(*upd.ReviewState)
	}
	if upd.RejectionReason != nil {
		doc.RejectionReason = upd.RejectionReason
	} else if upd.ClearRejectionReason {
		doc.RejectionReason = nil
	}
	if upd.PublishedAt != nil {
		doc.PublishedAt = upd.PublishedAt
	}
	if upd.Keywords != nil {
		doc.Keywords = nil
		for _, word := range upd.Keywords {
			doc.Keywords = append(doc.Keywords, keywordDocument{Name: word})
		}
	}

	return r.putDocument(ctx, current.EditorKey, doc)
}

func (r *storyRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	doc := toDocument(current)
	doc.PasswordHash = &hash
	_, err = r.putDocument(ctx, current.EditorKey, doc)
	return err
}

func (r *storyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return r.client.do(ctx, http.MethodDelete, "/api/stories/"+url.PathEscape(current.EditorKey.String()), nil, nil, nil)
}

func (r *storyRepository) putDocument(ctx context.Context, editorKey uuid.UUID, doc storyDocument) (*models.Story, error) {
	doc.DocumentID = ""
	doc.CreatedAt = time.Time{}
	doc.UpdatedAt = time.Time{}

	var resp documentResponse
	body := map[string]any{"data": doc}
	path := "/api/stories/" + url.PathEscape(editorKey.String())
	if err := r.client.do(ctx, http.MethodPut, path, nil, body, &resp); err != nil {
		r.logger.Error("Failed to update story document", zap.Error(err))
		return nil, err
	}
	return fromDocument(resp.Data)
}
