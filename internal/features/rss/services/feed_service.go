package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/models"
)

// FeedService persists feeds in sqlite
type FeedService struct {
	db     *core.Database
	logger *core.Logger
}

// NewFeedService creates a new feed service
func NewFeedService(db *core.Database, logger *core.Logger) *FeedService {
	return &FeedService{
		db:     db,
		logger: logger,
	}
}

// SaveFeed inserts a feed. A feed whose id or url is already stored is left
// as it is. It reports whether a row was written.
func (s *FeedService) SaveFeed(ctx context.Context, feed models.Feed) (bool, error) {
	query := `
		INSERT OR IGNORE INTO rss_feeds (id, title, request_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	result, err := s.db.ExecWithTimeout(ctx, query, feed.ID, feed.Title, feed.RequestURL, string(feed.Status), now, now)
	if err != nil {
		return false, fmt.Errorf("failed to save feed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save feed: %w", err)
	}

	if affected > 0 {
		s.logger.Debug("Saved RSS feed", "feed_id", feed.ID, "url", feed.RequestURL)
	}
	return affected > 0, nil
}

// UpdateStatus stores the status and last error of a feed
func (s *FeedService) UpdateStatus(ctx context.Context, feed models.Feed) error {
	query := `
		UPDATE rss_feeds
		SET status = ?, last_error_code = ?, last_error_message = ?, last_error_status = ?, updated_at = ?
		WHERE id = ?
	`

	var code, message sql.NullString
	var status sql.NullInt64
	if feed.LastError != nil {
		code = sql.NullString{String: feed.LastError.Code, Valid: true}
		message = sql.NullString{String: feed.LastError.Message, Valid: true}
		if feed.LastError.Status != 0 {
			status = sql.NullInt64{Int64: int64(feed.LastError.Status), Valid: true}
		}
	}

	_, err := s.db.ExecWithTimeout(ctx, query, string(feed.Status), code, message, status, time.Now().UTC(), feed.ID)
	if err != nil {
		return fmt.Errorf("failed to update feed status: %w", err)
	}
	return nil
}

// GetFeed retrieves a feed by id
func (s *FeedService) GetFeed(ctx context.Context, id string) (*models.Feed, error) {
	query := `
		SELECT id, title, request_url, status, last_error_code, last_error_message, last_error_status
		FROM rss_feeds
		WHERE id = ?
	`

	feed, err := scanFeed(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.NewNotFoundError(fmt.Sprintf("feed not found: %s", id), err)
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

// ListFeeds retrieves all feeds in the order they were saved
func (s *FeedService) ListFeeds(ctx context.Context) ([]models.Feed, error) {
	query := `
		SELECT id, title, request_url, status, last_error_code, last_error_message, last_error_status
		FROM rss_feeds
		ORDER BY rowid
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}
	defer rows.Close()

	feeds := []models.Feed{}
	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}

	return feeds, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFeed(row scanner) (*models.Feed, error) {
	var feed models.Feed
	var status string
	var code, message sql.NullString
	var errStatus sql.NullInt64

	if err := row.Scan(&feed.ID, &feed.Title, &feed.RequestURL, &status, &code, &message, &errStatus); err != nil {
		return nil, err
	}

	feed.Status = models.FeedStatus(status)
	if code.Valid {
		feed.LastError = &core.AppError{
			Code:    code.String,
			Message: message.String,
			Status:  int(errStatus.Int64),
		}
	}
	return &feed, nil
}
