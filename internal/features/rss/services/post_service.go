package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/models"
)

// PostService persists posts in sqlite
type PostService struct {
	db     *core.Database
	logger *core.Logger
}

// NewPostService creates a new post service
func NewPostService(db *core.Database, logger *core.Logger) *PostService {
	return &PostService{
		db:     db,
		logger: logger,
	}
}

// SavePosts inserts a batch of posts in one transaction. Posts already stored
// under the same id, or the same title within their feed, are skipped. It
// returns the number of rows written.
func (s *PostService) SavePosts(ctx context.Context, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	saved := 0
	err := s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO rss_posts (id, feed_id, title, link, created_at)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare post insert: %w", err)
		}
		defer stmt.Close()

		now := time.Now().UTC()
		for _, post := range posts {
			result, err := stmt.ExecContext(ctx, post.ID, post.FeedID, post.Title, post.Link, now)
			if err != nil {
				return fmt.Errorf("failed to save post %s: %w", post.ID, err)
			}
			if affected, err := result.RowsAffected(); err == nil {
				saved += int(affected)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("Saved RSS posts", "count", saved)
	return saved, nil
}

// ListPosts retrieves all posts in the order they were saved
func (s *PostService) ListPosts(ctx context.Context) ([]models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT id, feed_id, title, link
		FROM rss_posts
		ORDER BY rowid
	`)
}

// ListPostsByFeed retrieves the posts of a single feed
func (s *PostService) ListPostsByFeed(ctx context.Context, feedID string) ([]models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT id, feed_id, title, link
		FROM rss_posts
		WHERE feed_id = ?
		ORDER BY rowid
	`, feedID)
}

func (s *PostService) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.FeedID, &post.Title, &post.Link); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	return posts, rows.Err()
}
