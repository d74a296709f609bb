package store

import "blogtalk/internal/models"

// Toggle computes the outcome of a like or dislike toggle from the user's
// current membership: the next membership and the counter deltas to apply.
// A toggle of the held reaction removes it; a toggle of the opposite one
// moves the user across, decrementing the old counter.
func Toggle(current, kind models.ReactionKind) (next models.ReactionKind, likes, dislikes int) {
	delta := func(k models.ReactionKind, d int) {
		switch k {
		case models.ReactionLike:
			likes += d
		case models.ReactionDislike:
			dislikes += d
		}
	}

	if current == kind {
		delta(kind, -1)
		return models.ReactionNone, likes, dislikes
	}

	delta(current, -1)
	delta(kind, 1)
	return kind, likes, dislikes
}
