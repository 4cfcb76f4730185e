package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExamScore(t *testing.T) {
	questions := func(correct ...int) []Question {
		qs := make([]Question, len(correct))
		for i, c := range correct {
			qs[i] = Question{CorrectIndex: c, Position: i}
		}
		return qs
	}

	tests := []struct {
		name      string
		exam      Exam
		answers   []int64
		wantScore int
		wantPass  bool
		wantErr   error
	}{
		{
			name:    "answer count mismatch",
			exam:    Exam{PassMark: 50, Questions: questions(0, 1)},
			answers: []int64{0},
			wantErr: ErrAnswerCount,
		},
		{
			name:      "all correct",
			exam:      Exam{PassMark: 50, Questions: questions(0, 1, 2)},
			answers:   []int64{0, 1, 2},
			wantScore: 100,
			wantPass:  true,
		},
		{
			name:      "all wrong",
			exam:      Exam{PassMark: 50, Questions: questions(0, 1, 2)},
			answers:   []int64{1, 2, 0},
			wantScore: 0,
		},
		{
			name:      "two of three rounds to 67",
			exam:      Exam{PassMark: 67, Questions: questions(0, 1, 2)},
			answers:   []int64{0, 1, 0},
			wantScore: 67,
			wantPass:  true,
		},
		{
			name:      "one of three rounds to 33",
			exam:      Exam{PassMark: 50, Questions: questions(0, 1, 2)},
			answers:   []int64{0, 0, 0},
			wantScore: 33,
		},
		{
			name:      "score at exactly pass mark passes",
			exam:      Exam{PassMark: 50, Questions: questions(0, 1)},
			answers:   []int64{0, 0},
			wantScore: 50,
			wantPass:  true,
		},
		{
			name:      "skipped answers count as wrong",
			exam:      Exam{PassMark: 50, Questions: questions(0, 1)},
			answers:   []int64{-1, 1},
			wantScore: 50,
			wantPass:  true,
		},
		{
			name:    "no questions scores zero",
			exam:    Exam{PassMark: 0, Questions: nil},
			answers: []int64{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, passed, err := tt.exam.Score(tt.answers)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}
