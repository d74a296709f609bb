package memstore

import (
	"context"
	"fmt"
	"sort"

	"blogtalk/internal/models"
	"blogtalk/internal/store"
)

func (s *Store) ToggleReaction(_ context.Context, commentID, userID uint, kind models.ReactionKind) (*models.Comment, models.ReactionKind, error) {
	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return nil, models.ReactionNone, fmt.Errorf("memstore: unknown reaction %d", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, models.ReactionNone, store.ErrNotFound
	}

	key := reactionKey{commentID: commentID, userID: userID}
	next, likes, dislikes := store.Toggle(s.reactions[key], kind)
	if c.Likes+likes < 0 || c.Dislikes+dislikes < 0 {
		return nil, models.ReactionNone, store.ErrInvariant
	}

	if next == models.ReactionNone {
		delete(s.reactions, key)
	} else {
		s.reactions[key] = next
	}
	c.Likes += likes
	c.Dislikes += dislikes
	s.comments[commentID] = c
	return s.hydrate(c), next, nil
}

func (s *Store) ToggleAuthorLike(_ context.Context, commentID uint) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[commentID]
	if !ok {
		return nil, store.ErrNotFound
	}
	c.LikedByAuthor = !c.LikedByAuthor
	s.comments[commentID] = c
	return s.hydrate(c), nil
}

func (s *Store) ReactionsOf(_ context.Context, userID uint, commentIDs []uint) (map[uint]models.ReactionKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint]models.ReactionKind, len(commentIDs))
	for _, id := range commentIDs {
		if v, ok := s.reactions[reactionKey{commentID: id, userID: userID}]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *Store) CreateNotifications(_ context.Context, items []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.notifyErr != nil {
		return s.notifyErr
	}
	// all-or-nothing, like the single INSERT of the postgres store
	for _, n := range items {
		if _, ok := s.comments[n.RepliedCommentID]; !ok {
			return fmt.Errorf("memstore: replied comment %d: %w", n.RepliedCommentID, store.ErrNotFound)
		}
	}
	for i := range items {
		id, at := s.nextID()
		items[i].ID = id
		items[i].CreatedAt = at
		n := items[i]
		n.Author, n.Post, n.ParentComment, n.RepliedComment = nil, nil, nil, nil
		s.notifications[id] = n
	}
	return nil
}

func (s *Store) ListNotifications(_ context.Context, addresseeID uint, limit, offset int) ([]models.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var visible []models.Notification
	for _, n := range s.notifications {
		if n.AddresseeID == addresseeID && !n.IsHidden {
			visible = append(visible, n)
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].ID > visible[j].ID })

	total := int64(len(visible))
	start := min(max(offset, 0), len(visible))
	end := len(visible)
	if limit > 0 {
		end = start + min(limit, len(visible)-start)
	}

	out := make([]models.Notification, 0, end-start)
	for _, n := range visible[start:end] {
		n.Author = userPtr(s, n.AuthorID)
		if p, ok := s.posts[n.PostID]; ok {
			if b, ok := s.blogs[p.BlogID]; ok {
				p.Blog = &b
			}
			n.Post = &p
		}
		if c, ok := s.comments[n.RepliedCommentID]; ok {
			n.RepliedComment = &c
		}
		if n.ParentCommentID != nil {
			if c, ok := s.comments[*n.ParentCommentID]; ok {
				n.ParentComment = &c
			}
		}
		out = append(out, n)
	}
	return out, total, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, addresseeID uint) error {
	return s.setFlag(id, addresseeID, func(n *models.Notification) { n.IsRead = true })
}

func (s *Store) HideNotification(_ context.Context, id, addresseeID uint) error {
	return s.setFlag(id, addresseeID, func(n *models.Notification) { n.IsHidden = true })
}

func (s *Store) setFlag(id, addresseeID uint, set func(*models.Notification)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.AddresseeID != addresseeID {
		return store.ErrNotFound
	}
	set(&n)
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, addresseeID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for id, n := range s.notifications {
		if n.AddresseeID == addresseeID && !n.IsRead {
			n.IsRead = true
			s.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (s *Store) UnreadNotifications(_ context.Context, addresseeID uint) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, n := range s.notifications {
		if n.AddresseeID == addresseeID && !n.IsRead && !n.IsHidden {
			count++
		}
	}
	return count, nil
}
