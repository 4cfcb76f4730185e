package dummydb

import (
	"context"
	"sort"

	"github.com/tshilobo/soko/core/exam"
)

type examRepository struct {
	db *examTable
}

var _ exam.Repository = (*examRepository)(nil) // interface compliance check

func NewExamRepository(db *DB) exam.Repository {
	return &examRepository{db: db.exam}
}

func (repo *examRepository) loadQuestions(examID string) []exam.Question {
	var questions []exam.Question
	for _, q := range repo.db.questions {
		if q.ExamID == examID {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Position < questions[j].Position })
	return questions
}

func (repo *examRepository) CreateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *examRepository) GetExamByID(ctx context.Context, id string) (exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		out := *ex
		out.Questions = repo.loadQuestions(out.ID)
		return out, nil
	}
	return exam.Exam{}, exam.ErrNotFound
}

func (repo *examRepository) QueryCourseExams(ctx context.Context, courseID string) ([]exam.Exam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exams := make([]exam.Exam, 0)
	for _, ex := range repo.db.exams {
		if ex.CourseID == courseID {
			exams = append(exams, *ex)
		}
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].CreatedAt.Before(exams[j].CreatedAt) })
	return exams, nil
}

func (repo *examRepository) UpdateExam(ctx context.Context, ex exam.Exam) (exam.Exam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.exams[ex.ID]; !ok {
		return exam.Exam{}, exam.ErrNotFound
	}
	stored := ex
	stored.Questions = nil
	repo.db.exams[ex.ID] = &stored
	return ex, nil
}

func (repo *examRepository) DeleteExamsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.exams, id)
	}
	return nil
}

func (repo *examRepository) CreateQuestion(ctx context.Context, q exam.Question) (exam.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *examRepository) UpdateQuestion(ctx context.Context, q exam.Question) (exam.Question, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return exam.Question{}, exam.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *examRepository) DeleteQuestionsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.questions, id)
	}
	return nil
}

func (repo *examRepository) CreateAttempt(ctx context.Context, att exam.Attempt) (exam.Attempt, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.attempts[att.ID] = &att
	return att, nil
}

func (repo *examRepository) QueryAttempts(ctx context.Context, examID, userID string) ([]exam.Attempt, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	attempts := make([]exam.Attempt, 0)
	for _, att := range repo.db.attempts {
		if att.ExamID == examID && att.UserID == userID {
			attempts = append(attempts, *att)
		}
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].CreatedAt.After(attempts[j].CreatedAt) })
	return attempts, nil
}
