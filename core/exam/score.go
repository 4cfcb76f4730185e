package exam

import (
	"math"

	"github.com/pkg/errors"
)

var ErrAnswerCount = errors.New("answer count does not match question count")

// Score grades a submission against the exam's questions in position order.
// The score is the percentage of correct answers rounded to the nearest
// integer; an exam with no questions scores 0.
func (ex Exam) Score(answers []int64) (score int, passed bool, err error) {
	if len(answers) != len(ex.Questions) {
		return 0, false, ErrAnswerCount
	}
	if len(ex.Questions) == 0 {
		return 0, false, nil
	}

	correct := 0
	for i, q := range ex.Questions {
		if answers[i] == int64(q.CorrectIndex) {
			correct++
		}
	}
	score = int(math.Round(float64(correct) / float64(len(ex.Questions)) * 100))
	return score, score >= ex.PassMark, nil
}
