package exam

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tshilobo/soko/core"
	"github.com/tshilobo/soko/core/course"
)

var (
	ErrNotFound         = errors.New("exam not found")
	ErrQuestionNotFound = errors.New("question not found")
)

type (
	Repository interface {
		CreateExam(ctx context.Context, ex Exam) (Exam, error)
		// GetExamByID returns the exam with its questions ordered by position.
		GetExamByID(ctx context.Context, id string) (Exam, error)
		QueryCourseExams(ctx context.Context, courseID string) ([]Exam, error)
		UpdateExam(ctx context.Context, ex Exam) (Exam, error)
		DeleteExamsByID(ctx context.Context, ids ...string) error

		CreateQuestion(ctx context.Context, q Question) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestionsByID(ctx context.Context, ids ...string) error

		CreateAttempt(ctx context.Context, att Attempt) (Attempt, error)
		QueryAttempts(ctx context.Context, examID, userID string) ([]Attempt, error)
	}

	Service interface {
		Create(ctx context.Context, ne NewExam) (Exam, error)
		GetByID(ctx context.Context, id string) (Exam, error)
		QueryByCourse(ctx context.Context, courseID string) ([]Exam, error)
		Update(ctx context.Context, id string, ue UpdateExam) (Exam, error)
		Delete(ctx context.Context, ids ...string) error

		AddQuestion(ctx context.Context, examID string, nq NewQuestion) (Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		DeleteQuestions(ctx context.Context, ids ...string) error

		// Take grades a submission and records the attempt. The exam must be
		// published and the student must have access to its course.
		Take(ctx context.Context, userID, examID string, sub Submission) (Attempt, error)
		Attempts(ctx context.Context, examID, userID string) ([]Attempt, error)
	}

	service struct {
		repo      Repository
		courseSvc course.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, courseSvc course.Service) Service {
	return &service{repo: repo, courseSvc: courseSvc}
}

func (svc *service) Create(ctx context.Context, ne NewExam) (Exam, error) {
	if err := ne.Validate(); err != nil {
		return Exam{}, err
	}
	if _, err := svc.courseSvc.GetByID(ctx, ne.CourseID); err != nil {
		return Exam{}, err
	}
	now := time.Now().UTC()
	ex := Exam{
		ID:        uuid.New().String(),
		CourseID:  ne.CourseID,
		Title:     ne.Title,
		PassMark:  ne.PassMark,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateExam(ctx, ex)
}

func (svc *service) GetByID(ctx context.Context, id string) (Exam, error) {
	return svc.repo.GetExamByID(ctx, id)
}

func (svc *service) QueryByCourse(ctx context.Context, courseID string) ([]Exam, error) {
	return svc.repo.QueryCourseExams(ctx, courseID)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateExam) (Exam, error) {
	if err := ue.Validate(); err != nil {
		return Exam{}, err
	}
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return Exam{}, err
	}
	return svc.repo.UpdateExam(ctx, ue.Apply(ex))
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteExamsByID(ctx, ids...)
}

func (svc *service) AddQuestion(ctx context.Context, examID string, nq NewQuestion) (Question, error) {
	if err := nq.Validate(); err != nil {
		return Question{}, err
	}
	ex, err := svc.repo.GetExamByID(ctx, examID)
	if err != nil {
		return Question{}, err
	}
	if nq.Position == 0 {
		nq.Position = len(ex.Questions) + 1
	}
	q := Question{
		ID:           uuid.New().String(),
		ExamID:       examID,
		Prompt:       nq.Prompt,
		Choices:      nq.Choices,
		CorrectIndex: nq.CorrectIndex,
		Position:     nq.Position,
	}
	return svc.repo.CreateQuestion(ctx, q)
}

func (svc *service) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	return svc.repo.UpdateQuestion(ctx, q)
}

func (svc *service) DeleteQuestions(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteQuestionsByID(ctx, ids...)
}

func (svc *service) Take(ctx context.Context, userID, examID string, sub Submission) (Attempt, error) {
	if err := sub.Validate(); err != nil {
		return Attempt{}, err
	}
	ex, err := svc.repo.GetExamByID(ctx, examID)
	if err != nil {
		return Attempt{}, err
	}
	if !ex.IsPublished {
		return Attempt{}, core.NewNotFoundError("exam not found")
	}
	decision, _, err := svc.courseSvc.CheckAccess(ctx, userID, ex.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	if !decision.HasAccess {
		return Attempt{}, core.NewValidationError(errors.New(decision.Reason))
	}

	score, passed, err := ex.Score(sub.Answers)
	if err != nil {
		return Attempt{}, core.NewValidationError(err, core.FieldError{Field: "answers", Error: err.Error()})
	}
	att := Attempt{
		ID:        uuid.New().String(),
		ExamID:    ex.ID,
		UserID:    userID,
		Answers:   sub.Answers,
		Score:     score,
		Passed:    passed,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateAttempt(ctx, att)
}

func (svc *service) Attempts(ctx context.Context, examID, userID string) ([]Attempt, error) {
	return svc.repo.QueryAttempts(ctx, examID, userID)
}
