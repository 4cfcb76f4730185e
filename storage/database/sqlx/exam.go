package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tshilobo/soko/core/exam"
)

type examRepository struct {
	db *sqlx.DB
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *sqlx.DB) *examRepository {
	return &examRepository{db: db}
}

type examRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Title       string    `db:"title"`
	PassMark    int       `db:"pass_mark"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   null.Time `db:"created_at"`
	UpdatedAt   null.Time `db:"updated_at"`
}

type questionRow struct {
	ID           string         `db:"id"`
	ExamID       string         `db:"exam_id"`
	Prompt       string         `db:"prompt"`
	Choices      pq.StringArray `db:"choices"`
	CorrectIndex int            `db:"correct_index"`
	Position     int            `db:"position"`
}

func (repo examRepository) unrow(row examRow) exam.Exam {
	return exam.Exam{
		ID:          row.ID,
		CourseID:    row.CourseID,
		Title:       row.Title,
		PassMark:    row.PassMark,
		IsPublished: row.IsPublished,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo examRepository) unrowQuestion(row questionRow) exam.Question {
	return exam.Question{
		ID:           row.ID,
		ExamID:       row.ExamID,
		Prompt:       row.Prompt,
		Choices:      row.Choices,
		CorrectIndex: row.CorrectIndex,
		Position:     row.Position,
	}
}

// trapNoRowsErr maps psql "no rows" err to exam.ErrNotFound
func (repo examRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return exam.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	q := `
INSERT INTO exam (id, course_id, title, pass_mark, is_published, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, ex.ID, ex.CourseID, ex.Title, ex.PassMark, ex.IsPublished,
		ex.CreatedAt.UTC(), ex.UpdatedAt.UTC())
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "inserting exam")
	}
	return ex, nil
}

func (repo examRepository) GetExamByID(ctx context.Context, id string) (exam.Exam, error) {
	var row examRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM exam WHERE id = $1`, id); err != nil {
		return exam.Exam{}, repo.trapNoRowsErr(err, "getting exam")
	}
	ex := repo.unrow(row)

	qRows := make([]questionRow, 0)
	q := `SELECT * FROM question WHERE exam_id = $1 ORDER BY position ASC`
	if err := repo.db.SelectContext(ctx, &qRows, q, id); err != nil {
		return exam.Exam{}, errors.Wrap(err, "querying questions")
	}
	for _, qr := range qRows {
		ex.Questions = append(ex.Questions, repo.unrowQuestion(qr))
	}
	return ex, nil
}

func (repo examRepository) QueryCourseExams(ctx context.Context, courseID string) ([]exam.Exam, error) {
	rows := make([]examRow, 0)
	q := `SELECT * FROM exam WHERE course_id = $1 ORDER BY created_at ASC`
	if err := repo.db.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, errors.Wrap(err, "querying exams")
	}
	exams := make([]exam.Exam, 0, len(rows))
	for _, row := range rows {
		exams = append(exams, repo.unrow(row))
	}
	return exams, nil
}

func (repo examRepository) UpdateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	q := `UPDATE exam SET title = $2, pass_mark = $3, is_published = $4, updated_at = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, ex.ID, ex.Title, ex.PassMark, ex.IsPublished, ex.UpdatedAt.UTC())
	if err != nil {
		return exam.Exam{}, errors.Wrap(err, "updating exam")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.Exam{}, exam.ErrNotFound
	}
	return ex, nil
}

func (repo examRepository) DeleteExamsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM exam WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting exams")
	}
	return nil
}

func (repo examRepository) CreateQuestion(ctx context.Context, qst exam.Question) (exam.Question, error) {
	q := `
INSERT INTO question (id, exam_id, prompt, choices, correct_index, position)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.ExecContext(ctx, q, qst.ID, qst.ExamID, qst.Prompt, pq.Array(qst.Choices),
		qst.CorrectIndex, qst.Position)
	if err != nil {
		return exam.Question{}, errors.Wrap(err, "inserting question")
	}
	return qst, nil
}

func (repo examRepository) UpdateQuestion(ctx context.Context, qst exam.Question) (exam.Question, error) {
	q := `UPDATE question SET prompt = $2, choices = $3, correct_index = $4, position = $5 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q, qst.ID, qst.Prompt, pq.Array(qst.Choices), qst.CorrectIndex, qst.Position)
	if err != nil {
		return exam.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.Question{}, exam.ErrQuestionNotFound
	}
	return qst, nil
}

func (repo examRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM question WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting questions")
	}
	return nil
}

func (repo examRepository) CreateAttempt(ctx context.Context, att exam.Attempt) (exam.Attempt, error) {
	q := `
INSERT INTO attempt (id, exam_id, user_id, answers, score, passed, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.ExecContext(ctx, q, att.ID, att.ExamID, att.UserID, pq.Array(att.Answers),
		att.Score, att.Passed, att.CreatedAt.UTC())
	if err != nil {
		return exam.Attempt{}, errors.Wrap(err, "inserting attempt")
	}
	return att, nil
}

func (repo examRepository) QueryAttempts(ctx context.Context, examID, userID string) ([]exam.Attempt, error) {
	rows := make([]struct {
		ID        string        `db:"id"`
		ExamID    string        `db:"exam_id"`
		UserID    string        `db:"user_id"`
		Answers   pq.Int64Array `db:"answers"`
		Score     int           `db:"score"`
		Passed    bool          `db:"passed"`
		CreatedAt null.Time     `db:"created_at"`
	}, 0)
	q := `SELECT * FROM attempt WHERE exam_id = $1 AND user_id = $2 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q, examID, userID); err != nil {
		return nil, errors.Wrap(err, "querying attempts")
	}
	attempts := make([]exam.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, exam.Attempt{
			ID:        row.ID,
			ExamID:    row.ExamID,
			UserID:    row.UserID,
			Answers:   row.Answers,
			Score:     row.Score,
			Passed:    row.Passed,
			CreatedAt: row.CreatedAt.Time,
		})
	}
	return attempts, nil
}
