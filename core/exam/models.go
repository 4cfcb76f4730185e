package exam

import (
	"time"

	"github.com/tshilobo/soko/core"
)

type Exam struct {
	ID          string     `json:"id"`
	CourseID    string     `json:"course_id"`
	Title       string     `json:"title"`
	PassMark    int        `json:"pass_mark"` // minimum score in [0, 100]
	IsPublished bool       `json:"is_published"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
}

type Question struct {
	ID           string   `json:"id"`
	ExamID       string   `json:"exam_id"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"-" db:"correct_index"` // never serialized to students
	Position     int      `json:"position"`
}

type Attempt struct {
	ID        string    `json:"id"`
	ExamID    string    `json:"exam_id"`
	UserID    string    `json:"user_id"`
	Answers   []int64   `json:"answers"` // chosen index per question position, -1 for skipped
	Score     int       `json:"score"`
	Passed    bool      `json:"passed"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewExam struct {
	CourseID string `json:"course_id" validate:"required"`
	Title    string `json:"title" validate:"required"`
	PassMark int    `json:"pass_mark" validate:"gte=0,lte=100"`
}

func (ne *NewExam) Validate() error {
	ne.Title = core.CleanString(ne.Title)
	return core.Validate.Struct(ne)
}

type UpdateExam struct {
	Title       *string `json:"title" validate:"omitempty,required"`
	PassMark    *int    `json:"pass_mark" validate:"omitempty,gte=0,lte=100"`
	IsPublished *bool   `json:"is_published"`
}

func (ue *UpdateExam) Validate() error {
	if ue.Title != nil {
		*ue.Title = core.CleanString(*ue.Title)
	}
	return core.Validate.Struct(ue)
}

func (ue UpdateExam) Apply(ex Exam) Exam {
	if ue.Title != nil {
		ex.Title = *ue.Title
	}
	if ue.PassMark != nil {
		ex.PassMark = *ue.PassMark
	}
	if ue.IsPublished != nil {
		ex.IsPublished = *ue.IsPublished
	}
	ex.UpdatedAt = time.Now().UTC()
	return ex
}

type NewQuestion struct {
	Prompt       string   `json:"prompt" validate:"required"`
	Choices      []string `json:"choices" validate:"min=2,dive,required"`
	CorrectIndex int      `json:"correct_index" validate:"gte=0"`
	Position     int      `json:"position" validate:"gte=0"`
}

func (nq *NewQuestion) Validate() error {
	nq.Prompt = core.CleanString(nq.Prompt)
	if err := core.Validate.Struct(nq); err != nil {
		return err
	}
	if nq.CorrectIndex >= len(nq.Choices) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "correct_index", Error: "must point at one of the choices"})
	}
	return nil
}

// Submission contains a student's answers, one chosen index per question in
// position order; -1 marks a skipped question.
type Submission struct {
	Answers []int64 `json:"answers" validate:"required"`
}

func (s *Submission) Validate() error { return core.Validate.Struct(s) }
