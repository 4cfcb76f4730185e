package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Slug         string    `db:"slug"`
	Description  string    `db:"description"`
	InstructorID string    `db:"instructor_id"`
	Price        float64   `db:"price"`
	IsFree       bool      `db:"is_free"`
	IsPublished  bool      `db:"is_published"`
	CoverURL     string    `db:"cover_url"`
	CreatedAt    null.Time `db:"created_at"`
	UpdatedAt    null.Time `db:"updated_at"`
}

func (repo courseRepository) row(crs course.Course) courseRow {
	return courseRow{
		ID:           crs.ID,
		Title:        crs.Title,
		Slug:         crs.Slug,
		Description:  crs.Description,
		InstructorID: crs.InstructorID,
		Price:        crs.Price,
		IsFree:       crs.IsFree,
		IsPublished:  crs.IsPublished,
		CoverURL:     crs.CoverURL,
		CreatedAt:    null.NewTime(crs.CreatedAt.UTC(), !crs.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(crs.UpdatedAt.UTC(), !crs.UpdatedAt.IsZero()),
	}
}

func (repo courseRepository) unrow(row courseRow) course.Course {
	return course.Course{
		ID:           row.ID,
		Title:        row.Title,
		Slug:         row.Slug,
		Description:  row.Description,
		InstructorID: row.InstructorID,
		Price:        row.Price,
		IsFree:       row.IsFree,
		IsPublished:  row.IsPublished,
		CoverURL:     row.CoverURL,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `
INSERT INTO course (id, title, slug, description, instructor_id, price, is_free, is_published, cover_url, created_at, updated_at)
VALUES (:id, :title, :slug, :description, :instructor_id, :price, :is_free, :is_published, :cover_url, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.row(crs)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) FilterCourses(ctx context.Context, filter course.QueryFilter, ordering ...core.DBOrdering) ([]course.Course, error) {
	var (
		clauses []string
		args    []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(title ILIKE %[1]s OR description ILIKE %[1]s)", p))
	}
	if filter.InstructorID != "" {
		clauses = append(clauses, fmt.Sprintf("instructor_id = %s", arg(filter.InstructorID)))
	}
	if filter.IsPublished != nil {
		clauses = append(clauses, fmt.Sprintf("is_published = %s", arg(*filter.IsPublished)))
	}
	if filter.IsFree != nil {
		clauses = append(clauses, fmt.Sprintf("is_free = %s", arg(*filter.IsFree)))
	}

	q := `SELECT * FROM course`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering)

	rows := make([]courseRow, 0)
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, repo.unrow(row))
	}
	return courses, nil
}

func (repo courseRepository) getCourseWhere(ctx context.Context, clause string, args ...interface{}) (course.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE `+clause, args...); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	crs := repo.unrow(row)

	chapters, err := repo.queryChapters(ctx, crs.ID)
	if err != nil {
		return course.Course{}, err
	}
	crs.Chapters = chapters
	return crs, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	return repo.getCourseWhere(ctx, `id = $1`, id)
}

func (repo courseRepository) GetCourseBySlug(ctx context.Context, slug string) (course.Course, error) {
	return repo.getCourseWhere(ctx, `slug = $1`, slug)
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	q := `
UPDATE course
SET title = :title, slug = :slug, description = :description, price = :price, is_free = :is_free,
    is_published = :is_published, cover_url = :cover_url, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.row(crs))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting courses")
	}
	return nil
}

type chapterRow struct {
	ID       string `db:"id"`
	CourseID string `db:"course_id"`
	Title    string `db:"title"`
	Position int    `db:"position"`
}

type contentRow struct {
	ID        string `db:"id"`
	ChapterID string `db:"chapter_id"`
	Title     string `db:"title"`
	Kind      string `db:"kind"`
	URL       string `db:"url"`
	Position  int    `db:"position"`
}

// queryChapters loads a course's chapters and their contents, both ordered
// by position.
func (repo courseRepository) queryChapters(ctx context.Context, courseID string) ([]course.Chapter, error) {
	chRows := make([]chapterRow, 0)
	q := `SELECT * FROM chapter WHERE course_id = $1 ORDER BY position ASC`
	if err := repo.db.SelectContext(ctx, &chRows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying chapters")
	}
	if len(chRows) == 0 {
		return nil, nil
	}

	chIDs := make([]string, 0, len(chRows))
	for _, row := range chRows {
		chIDs = append(chIDs, row.ID)
	}
	cntRows := make([]contentRow, 0)
	q = `SELECT * FROM content WHERE chapter_id = ANY($1) ORDER BY position ASC`
	if err := repo.db.SelectContext(ctx, &cntRows, q, pq.Array(chIDs)); err != nil {
		return nil, errors.Wrap(err, "querying contents")
	}

	byChapter := make(map[string][]course.Content, len(chRows))
	for _, row := range cntRows {
		byChapter[row.ChapterID] = append(byChapter[row.ChapterID], course.Content{
			ID:        row.ID,
			ChapterID: row.ChapterID,
			Title:     row.Title,
			Kind:      row.Kind,
			URL:       row.URL,
			Position:  row.Position,
		})
	}

	chapters := make([]course.Chapter, 0, len(chRows))
	for _, row := range chRows {
		chapters = append(chapters, course.Chapter{
			ID:       row.ID,
			CourseID: row.CourseID,
			Title:    row.Title,
			Position: row.Position,
			Contents: byChapter[row.ID],
		})
	}
	return chapters, nil
}

func (repo courseRepository) CreateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	q := `INSERT INTO chapter (id, course_id, title, position) VALUES ($1, $2, $3, $4)`
	if _, err := repo.db.ExecContext(ctx, q, ch.ID, ch.CourseID, ch.Title, ch.Position); err != nil {
		return course.Chapter{}, errors.Wrap(err, "inserting chapter")
	}
	return ch, nil
}

func (repo courseRepository) UpdateChapter(ctx context.Context, ch course.Chapter) (course.Chapter, error) {
	q := `UPDATE chapter SET title = $2, position = $3 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, ch.ID, ch.Title, ch.Position)
	if err != nil {
		return course.Chapter{}, errors.Wrap(err, "updating chapter")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Chapter{}, course.ErrChapterNotFound
	}
	return ch, nil
}

func (repo courseRepository) DeleteChaptersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM chapter WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting chapters")
	}
	return nil
}

func (repo courseRepository) CreateContent(ctx context.Context, cnt course.Content) (course.Content, error) {
	q := `INSERT INTO content (id, chapter_id, title, kind, url, position) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := repo.db.ExecContext(ctx, q, cnt.ID, cnt.ChapterID, cnt.Title, cnt.Kind, cnt.URL, cnt.Position); err != nil {
		return course.Content{}, errors.Wrap(err, "inserting content")
	}
	return cnt, nil
}

func (repo courseRepository) UpdateContent(ctx context.Context, cnt course.Content) (course.Content, error) {
	q := `UPDATE content SET title = $2, kind = $3, url = $4, position = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, cnt.ID, cnt.Title, cnt.Kind, cnt.URL, cnt.Position)
	if err != nil {
		return course.Content{}, errors.Wrap(err, "updating content")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Content{}, course.ErrContentNotFound
	}
	return cnt, nil
}

func (repo courseRepository) DeleteContentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM content WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting contents")
	}
	return nil
}

type enrollmentRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	CourseID      string      `db:"course_id"`
	Status        string      `db:"status"`
	Progress      int         `db:"progress"`
	LastContentID null.String `db:"last_content_id"`
	CreatedAt     null.Time   `db:"created_at"`
	UpdatedAt     null.Time   `db:"updated_at"`
}

func (repo courseRepository) enrollmentRow(enr course.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:            enr.ID,
		UserID:        enr.UserID,
		CourseID:      enr.CourseID,
		Status:        enr.Status,
		Progress:      enr.Progress,
		LastContentID: enr.LastContentID,
		CreatedAt:     null.NewTime(enr.CreatedAt.UTC(), !enr.CreatedAt.IsZero()),
		UpdatedAt:     null.NewTime(enr.UpdatedAt.UTC(), !enr.UpdatedAt.IsZero()),
	}
}

func (repo courseRepository) unrowEnrollment(row enrollmentRow) course.Enrollment {
	return course.Enrollment{
		ID:            row.ID,
		UserID:        row.UserID,
		CourseID:      row.CourseID,
		Status:        row.Status,
		Progress:      row.Progress,
		LastContentID: row.LastContentID,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func (repo courseRepository) GetEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	var row enrollmentRow
	q := `SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2`
	if err := repo.db.GetContext(ctx, &row, q, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return repo.unrowEnrollment(row), nil
}

func (repo courseRepository) UpsertEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	// ON CONFLICT DO NOTHING + reselect keeps the existing row on races
	q := `
INSERT INTO enrollment (id, user_id, course_id, status, progress, last_content_id, created_at, updated_at)
VALUES (:id, :user_id, :course_id, :status, :progress, :last_content_id, :created_at, :updated_at)
ON CONFLICT (user_id, course_id) DO NOTHING`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.enrollmentRow(enr)); err != nil {
		return course.Enrollment{}, errors.Wrap(err, "upserting enrollment")
	}
	return repo.GetEnrollment(ctx, enr.UserID, enr.CourseID)
}

func (repo courseRepository) UpdateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	q := `
UPDATE enrollment
SET status = :status, progress = :progress, last_content_id = :last_content_id, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.enrollmentRow(enr))
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	return enr, nil
}

func (repo courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	rows := make([]enrollmentRow, 0)
	q := `SELECT * FROM enrollment WHERE user_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, repo.unrowEnrollment(row))
	}
	return enrs, nil
}
