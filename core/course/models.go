package course

import (
	"regexp"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
)

// Enrollment statuses
const (
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusCanceled  = "CANCELED"
)

// Access types granted by the access gate.
const (
	AccessInstructor = "INSTRUCTOR"
	AccessFree       = "FREE"
	AccessEnrolled   = "ENROLLED"
)

// Content kinds
const (
	ContentVideo   = "VIDEO"
	ContentArticle = "ARTICLE"
	ContentPDF     = "PDF"
)

type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	InstructorID string    `json:"instructor_id"`
	Price        float64   `json:"price"`
	IsFree       bool      `json:"is_free"`
	IsPublished  bool      `json:"is_published"`
	CoverURL     string    `json:"cover_url,omitempty"`
	Chapters     []Chapter `json:"chapters,omitempty"` // ordered by position; loaded on detail
	CreatedAt    time.Time `json:"created_at"`         // UTC
	UpdatedAt    time.Time `json:"updated_at"`         // UTC
}

type Chapter struct {
	ID       string    `json:"id"`
	CourseID string    `json:"course_id"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
	Contents []Content `json:"contents,omitempty"` // ordered by position
}

type Content struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapter_id"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	URL       string `json:"url,omitempty"`
	Position  int    `json:"position"`
}

// Enrollment records a user's access to a course and their progress within it.
// Never hard-deleted; canceling is a status change.
type Enrollment struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	CourseID      string      `json:"course_id"`
	Status        string      `json:"status"`
	Progress      int         `json:"progress"` // percentage in [0,100]
	LastContentID null.String `json:"last_content_id,omitempty"`
	CreatedAt     time.Time   `json:"created_at"` // UTC
	UpdatedAt     time.Time   `json:"updated_at"` // UTC
}

// AccessDecision is the outcome of the access gate for (user, course).
type AccessDecision struct {
	HasAccess  bool   `json:"has_access"`
	AccessType string `json:"access_type,omitempty"` // set when granted
	Reason     string `json:"reason,omitempty"`      // set when denied
}

var slugInvalidRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify makes a URL-safe slug out of a course title.
func Slugify(title string) string {
	slug := slugInvalidRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Title        string  `json:"title" validate:"required"`
	Description  string  `json:"description"`
	InstructorID string  `json:"instructor_id" validate:"required"`
	Price        float64 `json:"price" validate:"omitempty,gte=0"`
	IsFree       bool    `json:"is_free"`
	CoverURL     string  `json:"cover_url" validate:"omitempty,url"`
}

func (nc *NewCourse) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	if err := core.Validate.Struct(nc); err != nil {
		return err
	}
	if !nc.IsFree && nc.Price <= 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "price", Error: "a paid course must have a positive price",
		})
	}
	if nc.IsFree {
		nc.Price = 0
	}
	return nil
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	IsFree      *bool    `json:"is_free"`
	IsPublished *bool    `json:"is_published"`
	CoverURL    *string  `json:"cover_url" validate:"omitempty,url"`
}

func (uc *UpdateCourse) Validate() error {
	uc.Title = core.CleanString(uc.Title)
	return core.Validate.Struct(uc)
}

// Apply merges the update into an existing Course.
func (uc *UpdateCourse) Apply(crs Course) Course {
	if uc.Title != "" {
		crs.Title = uc.Title
		crs.Slug = Slugify(uc.Title)
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if uc.IsFree != nil {
		crs.IsFree = *uc.IsFree
		if crs.IsFree {
			crs.Price = 0
		}
	}
	if uc.IsPublished != nil {
		crs.IsPublished = *uc.IsPublished
	}
	if uc.CoverURL != nil {
		crs.CoverURL = *uc.CoverURL
	}
	crs.UpdatedAt = time.Now().UTC()
	return crs
}

// NewChapter contains information needed to add a Chapter to a Course.
type NewChapter struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"omitempty,gte=0"`
}

func (nc *NewChapter) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	return core.Validate.Struct(nc)
}

// NewContent contains information needed to add a Content item to a Chapter.
type NewContent struct {
	Title    string `json:"title" validate:"required"`
	Kind     string `json:"kind" validate:"required,oneof=VIDEO ARTICLE PDF"`
	URL      string `json:"url" validate:"omitempty,url"`
	Position int    `json:"position" validate:"omitempty,gte=0"`
}

func (nc *NewContent) Validate() error {
	nc.Title = core.CleanString(nc.Title)
	return core.Validate.Struct(nc)
}

type QueryFilter struct {
	Search       string `query:"search"`
	InstructorID string `query:"instructor_id"`
	IsPublished  *bool  `query:"is_published"`
	IsFree       *bool  `query:"is_free"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.InstructorID == "" && qf.IsPublished == nil && qf.IsFree == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
