package postgres

import (
	"context"
	"fmt"

	"blogtalk/internal/models"
)

// PostByNumber resolves a post inside the blog identified by slug, with the
// blog owner and co-authors loaded for access checks.
func (s *Store) PostByNumber(ctx context.Context, blogSlug string, number uint) (*models.Post, error) {
	const op = "store.postgres.PostByNumber"

	var blog models.Blog
	if err := s.db.WithContext(ctx).
		Preload("Owner").
		Preload("CoAuthors").
		Where("slug = ?", blogSlug).
		Take(&blog).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}

	var post models.Post
	if err := s.db.WithContext(ctx).
		Where("blog_id = ? AND number = ?", blog.ID, number).
		Take(&post).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err))
	}
	post.Blog = &blog

	return &post, nil
}

func (s *Store) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Take(&u, id).Error; err != nil {
		return nil, fmt.Errorf("store.postgres.UserByID: %w", notFound(err))
	}
	return &u, nil
}

func (s *Store) UserByHandle(ctx context.Context, handle string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", handle).Take(&u).Error; err != nil {
		return nil, fmt.Errorf("store.postgres.UserByHandle: %w", notFound(err))
	}
	return &u, nil
}
