package course

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func chaptersFixture() []Chapter {
	return []Chapter{
		{
			ID: "ch1", Position: 1,
			Contents: []Content{
				{ID: "c1", Position: 1},
				{ID: "c2", Position: 2},
			},
		},
		{
			ID: "ch2", Position: 2,
			Contents: []Content{
				{ID: "c3", Position: 1},
			},
		},
	}
}

func TestComputeProgress(t *testing.T) {
	tests := []struct {
		name      string
		chapters  []Chapter
		contentID string
		want      int
		wantErr   error
	}{
		{name: "first content", chapters: chaptersFixture(), contentID: "c1", want: 33},
		{name: "middle content", chapters: chaptersFixture(), contentID: "c2", want: 67},
		{name: "last content completes", chapters: chaptersFixture(), contentID: "c3", want: 100},
		{name: "unknown content", chapters: chaptersFixture(), contentID: "nope", wantErr: ErrContentNotFound},
		{name: "no content at all", chapters: []Chapter{{ID: "ch1"}}, contentID: "c1", wantErr: ErrNoContent},
		{name: "no chapters", chapters: nil, contentID: "c1", wantErr: ErrNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeProgress(tt.chapters, tt.contentID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Fullstack Go", "fullstack-go"},
		{"  UX/UI Design, from Zero  ", "ux-ui-design-from-zero"},
		{"already-a-slug", "already-a-slug"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}
