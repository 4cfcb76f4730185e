package course

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")

	// access gate rejection reasons
	reasonNotPublished = "course is not published"
	reasonNotEnrolled  = "not enrolled in this course"
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		// FilterCourses applies AND on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title or Description.
		FilterCourses(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		// GetCourseByID returns the course with chapters and contents, ordered by position.
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseBySlug(ctx context.Context, slug string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) error

		CreateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		DeleteChaptersByID(ctx context.Context, ids ...string) error

		CreateContent(ctx context.Context, cnt Content) (Content, error)
		UpdateContent(ctx context.Context, cnt Content) (Content, error)
		DeleteContentsByID(ctx context.Context, ids ...string) error

		GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		// UpsertEnrollment creates the enrollment or returns the existing one
		// for (user, course); it must be idempotent.
		UpsertEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewCourse) (Course, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		GetBySlug(ctx context.Context, slug string) (Course, error)
		Update(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, ids ...string) error

		AddChapter(ctx context.Context, courseID string, nc NewChapter) (Chapter, error)
		UpdateChapter(ctx context.Context, ch Chapter) (Chapter, error)
		DeleteChapters(ctx context.Context, ids ...string) error
		AddContent(ctx context.Context, courseID, chapterID string, nc NewContent) (Content, error)
		UpdateContent(ctx context.Context, cnt Content) (Content, error)
		DeleteContents(ctx context.Context, ids ...string) error

		// CheckAccess is the access gate: it decides whether userID may view
		// courseID's content, lazily enrolling the user on free courses.
		CheckAccess(ctx context.Context, userID, courseID string) (AccessDecision, Course, error)
		// UpdateProgress records that userID just viewed contentID and
		// recomputes the enrollment progress.
		UpdateProgress(ctx context.Context, userID, courseID, contentID string) (Enrollment, error)
		Enroll(ctx context.Context, userID, courseID string) (Enrollment, error)
		CancelEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		ID:           uuid.New().String(),
		Title:        nc.Title,
		Slug:         Slugify(nc.Title),
		Description:  nc.Description,
		InstructorID: nc.InstructorID,
		Price:        nc.Price,
		IsFree:       nc.IsFree,
		CoverURL:     nc.CoverURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Course, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterCourses(ctx, *filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) GetBySlug(ctx context.Context, slug string) (Course, error) {
	return svc.repo.GetCourseBySlug(ctx, core.CleanString(slug, true /* lower */))
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	orig, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	return svc.repo.UpdateCourse(ctx, uc.Apply(orig))
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCoursesByID(ctx, ids...)
}

func (svc *service) AddChapter(ctx context.Context, courseID string, nc NewChapter) (Chapter, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Chapter{}, err
	}
	if nc.Position == 0 {
		nc.Position = len(crs.Chapters) + 1
	}
	ch := Chapter{
		ID:       uuid.New().String(),
		CourseID: crs.ID,
		Title:    nc.Title,
		Position: nc.Position,
	}
	return svc.repo.CreateChapter(ctx, ch)
}

func (svc *service) UpdateChapter(ctx context.Context, ch Chapter) (Chapter, error) {
	return svc.repo.UpdateChapter(ctx, ch)
}

func (svc *service) DeleteChapters(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteChaptersByID(ctx, ids...)
}

func (svc *service) AddContent(ctx context.Context, courseID, chapterID string, nc NewContent) (Content, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Content{}, err
	}
	var chapter *Chapter
	for i := range crs.Chapters {
		if crs.Chapters[i].ID == chapterID {
			chapter = &crs.Chapters[i]
			break
		}
	}
	if chapter == nil {
		return Content{}, ErrChapterNotFound
	}
	if nc.Position == 0 {
		nc.Position = len(chapter.Contents) + 1
	}
	cnt := Content{
		ID:        uuid.New().String(),
		ChapterID: chapter.ID,
		Title:     nc.Title,
		Kind:      nc.Kind,
		URL:       nc.URL,
		Position:  nc.Position,
	}
	return svc.repo.CreateContent(ctx, cnt)
}

func (svc *service) UpdateContent(ctx context.Context, cnt Content) (Content, error) {
	return svc.repo.UpdateContent(ctx, cnt)
}

func (svc *service) DeleteContents(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteContentsByID(ctx, ids...)
}

// CheckAccess decision order:
// 1. course must exist
// 2. unpublished courses are only visible to the owning instructor
// 3. the instructor always has access
// 4. free courses grant access and lazily create an ACTIVE enrollment
// 5. paid courses require an ACTIVE enrollment
func (svc *service) CheckAccess(ctx context.Context, userID, courseID string) (AccessDecision, Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return AccessDecision{}, Course{}, err
	}

	isInstructor := userID != "" && userID == crs.InstructorID

	if !crs.IsPublished && !isInstructor {
		return AccessDecision{Reason: reasonNotPublished}, crs, nil
	}
	if isInstructor {
		return AccessDecision{HasAccess: true, AccessType: AccessInstructor}, crs, nil
	}

	if crs.IsFree {
		if _, err = svc.enroll(ctx, userID, crs); err != nil {
			return AccessDecision{}, Course{}, err
		}
		return AccessDecision{HasAccess: true, AccessType: AccessFree}, crs, nil
	}

	enr, err := svc.repo.GetEnrollment(ctx, userID, crs.ID)
	if err != nil {
		if err == ErrEnrollmentNotFound {
			return AccessDecision{Reason: reasonNotEnrolled}, crs, nil
		}
		return AccessDecision{}, Course{}, err
	}
	if enr.Status == StatusCanceled {
		return AccessDecision{Reason: reasonNotEnrolled}, crs, nil
	}
	return AccessDecision{HasAccess: true, AccessType: AccessEnrolled}, crs, nil
}

func (svc *service) UpdateProgress(ctx context.Context, userID, courseID, contentID string) (Enrollment, error) {
	decision, crs, err := svc.CheckAccess(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !decision.HasAccess {
		return Enrollment{}, core.NewValidationError(errors.New(decision.Reason))
	}

	progress, err := ComputeProgress(crs.Chapters, contentID)
	if err != nil {
		return Enrollment{}, core.NewValidationError(err)
	}

	enr, err := svc.enroll(ctx, userID, crs)
	if err != nil {
		return Enrollment{}, err
	}

	// intended usage keeps progress non-decreasing; a revisit of earlier
	// content must not regress a further-along enrollment
	if progress > enr.Progress {
		enr.Progress = progress
	}
	enr.LastContentID = null.StringFrom(contentID)
	if enr.Progress >= 100 {
		enr.Status = StatusCompleted
	} else if enr.Status != StatusCompleted {
		enr.Status = StatusActive
	}
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, error) {
	crs, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	return svc.enroll(ctx, userID, crs)
}

// enroll refuses the owning instructor; their access never rests on an
// enrollment row.
func (svc *service) enroll(ctx context.Context, userID string, crs Course) (Enrollment, error) {
	if userID == crs.InstructorID {
		return Enrollment{}, core.NewValidationError(errors.New("instructors cannot enroll in their own courses"))
	}
	now := time.Now().UTC()
	return svc.repo.UpsertEnrollment(ctx, Enrollment{
		ID:        uuid.New().String(),
		UserID:    userID,
		CourseID:  crs.ID,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) CancelEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Status = StatusCanceled
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *service) QueryEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryUserEnrollments(ctx, userID)
}
