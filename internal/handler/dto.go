package handler

import (
	"time"

	"vomprater-server/internal/models"
	"vomprater-server/internal/service"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

type createPageRequest struct {
	Layout string  `json:"layout" binding:"required"`
	Text   *string `json:"text"`
	Image  *string `json:"image"`
}

type createStoryRequest struct {
	Title       string              `json:"title" binding:"required,max=200"`
	Year        int                 `json:"year" binding:"required,min=1850,max=2100"`
	Locale      string              `json:"locale" binding:"required,oneof=de en"`
	Quote       *string             `json:"quote"`
	AuthorName  string              `json:"authorName" binding:"required,max=120"`
	AuthorEmail string              `json:"authorEmail" binding:"required,email"`
	Keywords    []string            `json:"keywords" binding:"max=20,dive,max=60"`
	Pages       []createPageRequest `json:"pages" binding:"max=50"`
}

type updateStoryRequest struct {
	Title         *string  `json:"title" binding:"omitempty,max=200"`
	Year          *int     `json:"year" binding:"omitempty,min=1850,max=2100"`
	Locale        *string  `json:"locale" binding:"omitempty,oneof=de en"`
	Quote         *string  `json:"quote"`
	ClearQuote    bool     `json:"clearQuote"`
	Featured      *bool    `json:"featured"`
	FeaturedImage *string  `json:"featuredImage"`
	Keywords      []string `json:"keywords" binding:"omitempty,max=20,dive,max=60"`

	LifecycleState  *string `json:"lifecycleState" binding:"omitempty,oneof=created pending submitted"`
	ReviewState     *string `json:"reviewState" binding:"omitempty,oneof=pending rejected accepted"`
	RejectionReason *string `json:"rejectionReason"`
}

type updatePageRequest struct {
	Layout    *string `json:"layout"`
	Text      *string `json:"text"`
	ClearText bool    `json:"clearText"`
	Image     *string `json:"image"`
	PageOrder *int    `json:"pageOrder" binding:"omitempty,min=1"`
}

type verifyPasswordRequest struct {
	StoryID  string `json:"storyId" binding:"required,uuid"`
	Password string `json:"password" binding:"required"`
}

type verifyPasswordResponse struct {
	Token string `json:"token"`
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

// storyResponse is the public story shape. The editor key and the password
// hash never leave the server in a story body; the editor key travels only in
// the creation email.
type storyResponse struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Slug            string             `json:"slug"`
	Year            int                `json:"year"`
	Locale          string             `json:"locale"`
	Quote           *string            `json:"quote,omitempty"`
	Featured        bool               `json:"featured"`
	FeaturedImage   *string            `json:"featuredImage,omitempty"`
	LifecycleState  string             `json:"lifecycleState"`
	ReviewState     string             `json:"reviewState"`
	RejectionReason *string            `json:"rejectionReason,omitempty"`
	Author          authorResponse     `json:"author"`
	Pages           []pageResponse     `json:"pages"`
	Keywords        []keywordResponse  `json:"keywords"`
	CreatedAt       time.Time          `json:"createdAt"`
	ModifiedAt      time.Time          `json:"modifiedAt"`
	PublishedAt     *time.Time         `json:"publishedAt,omitempty"`
}

type authorResponse struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type pageResponse struct {
	ID        string  `json:"id"`
	Layout    string  `json:"layout"`
	Text      *string `json:"text,omitempty"`
	Image     *string `json:"image,omitempty"`
	PageOrder int     `json:"pageOrder"`
}

type keywordResponse struct {
	ID   string `json:"id"`
	Word string `json:"word"`
}

// includeEmail controls author email exposure: moderators see it, the public
// list does not.
func toStoryResponse(s *models.Story, includeEmail bool) storyResponse {
	resp := storyResponse{
		ID:              s.ID.String(),
		Title:           s.Title,
		Slug:            s.Slug,
		Year:            s.Year,
		Locale:          s.Locale,
		Quote:           s.Quote,
		Featured:        s.Featured,
		FeaturedImage:   s.FeaturedImage,
		LifecycleState:  string(s.LifecycleState),
		ReviewState:     string(s.ReviewState),
		RejectionReason: s.RejectionReason,
		Author:          authorResponse{Name: s.Author.Name},
		Pages:           make([]pageResponse, 0, len(s.Pages)),
		Keywords:        make([]keywordResponse, 0, len(s.Keywords)),
		CreatedAt:       s.CreatedAt,
		ModifiedAt:      s.ModifiedAt,
		PublishedAt:     s.PublishedAt,
	}
	if includeEmail {
		resp.Author.Email = s.Author.Email
	}
	for _, p := range s.Pages {
		resp.Pages = append(resp.Pages, toPageResponse(p))
	}
	for _, k := range s.Keywords {
		resp.Keywords = append(resp.Keywords, keywordResponse{ID: k.ID.String(), Word: k.Word})
	}
	return resp
}

func toPageResponse(p models.StoryPage) pageResponse {
	return pageResponse{
		ID:        p.ID.String(),
		Layout:    string(p.Layout),
		Text:      p.Text,
		Image:     p.Image,
		PageOrder: p.PageOrder,
	}
}

func (r createStoryRequest) toInput() service.CreateStoryInput {
	input := service.CreateStoryInput{
		Title:       r.Title,
		Year:        r.Year,
		Locale:      r.Locale,
		Quote:       r.Quote,
		AuthorName:  r.AuthorName,
		AuthorEmail: r.AuthorEmail,
		Keywords:    r.Keywords,
	}
	for _, p := range r.Pages {
		input.Pages = append(input.Pages, service.CreatePageInput{
			Layout: models.PageLayout(p.Layout),
			Text:   p.Text,
			Image:  p.Image,
		})
	}
	return input
}

func (r updateStoryRequest) toInput() service.UpdateStoryInput {
	input := service.UpdateStoryInput{
		Title:           r.Title,
		Year:            r.Year,
		Locale:          r.Locale,
		Quote:           r.Quote,
		ClearQuote:      r.ClearQuote,
		Featured:        r.Featured,
		FeaturedImage:   r.FeaturedImage,
		Keywords:        r.Keywords,
		RejectionReason: r.RejectionReason,
	}
	if r.LifecycleState != nil {
		state := models.LifecycleState(*r.LifecycleState)
		input.LifecycleState = &state
	}
	if r.ReviewState != nil {
		state := models.ReviewState(*r.ReviewState)
		input.ReviewState = &state
	}
	return input
}

func (r updatePageRequest) toInput() service.UpdatePageInput {
	input := service.UpdatePageInput{
		Text:      r.Text,
		ClearText: r.ClearText,
		Image:     r.Image,
		PageOrder: r.PageOrder,
	}
	if r.Layout != nil {
		layout := models.PageLayout(*r.Layout)
		input.Layout = &layout
	}
	return input
}
