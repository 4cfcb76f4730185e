package course

import (
	"errors"
	"math"
)

var (
	ErrNoContent       = errors.New("course has no content")
	ErrContentNotFound = errors.New("content not found in this course")
)

// ComputeProgress flattens the course's chapters into one ordered content list
// and returns the completion percentage after viewing contentID: position of
// the viewed item over the total, clamped to [0,100].
func ComputeProgress(chapters []Chapter, contentID string) (int, error) {
	var total, viewedIdx int
	viewedIdx = -1
	for _, ch := range chapters {
		for _, cnt := range ch.Contents {
			if cnt.ID == contentID {
				viewedIdx = total
			}
			total++
		}
	}
	if total == 0 {
		return 0, ErrNoContent
	}
	if viewedIdx < 0 {
		return 0, ErrContentNotFound
	}

	progress := int(math.Round(float64(viewedIdx+1) / float64(total) * 100))
	if progress < 0 {
		progress = 0
	} else if progress > 100 {
		progress = 100
	}
	return progress, nil
}
