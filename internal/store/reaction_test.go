package store

import (
	"testing"

	"blogtalk/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestToggle(t *testing.T) {
	tests := []struct {
		name     string
		current  models.ReactionKind
		kind     models.ReactionKind
		next     models.ReactionKind
		likes    int
		dislikes int
	}{
		{"like from none", models.ReactionNone, models.ReactionLike, models.ReactionLike, 1, 0},
		{"like again removes", models.ReactionLike, models.ReactionLike, models.ReactionNone, -1, 0},
		{"like clears dislike", models.ReactionDislike, models.ReactionLike, models.ReactionLike, 1, -1},
		{"dislike from none", models.ReactionNone, models.ReactionDislike, models.ReactionDislike, 0, 1},
		{"dislike again removes", models.ReactionDislike, models.ReactionDislike, models.ReactionNone, 0, -1},
		{"dislike clears like", models.ReactionLike, models.ReactionDislike, models.ReactionDislike, -1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, likes, dislikes := Toggle(tt.current, tt.kind)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.likes, likes)
			assert.Equal(t, tt.dislikes, dislikes)
		})
	}
}

func TestToggle_TwiceRestoresState(t *testing.T) {
	for _, start := range []models.ReactionKind{models.ReactionNone, models.ReactionLike, models.ReactionDislike} {
		for _, kind := range []models.ReactionKind{models.ReactionLike, models.ReactionDislike} {
			mid, l1, d1 := Toggle(start, kind)
			end, l2, d2 := Toggle(mid, kind)
			if start == kind || start == models.ReactionNone {
				assert.Equal(t, start, end, "%s then %s twice", start, kind)
				assert.Zero(t, l1+l2)
				assert.Zero(t, d1+d2)
			}
		}
	}
}
