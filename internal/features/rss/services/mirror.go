package services

import (
	"context"
	"sync"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/diff"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/store"
)

const mirrorWriteTimeout = 10 * time.Second

// FeedRepository persists feeds
type FeedRepository interface {
	SaveFeed(ctx context.Context, feed models.Feed) (bool, error)
	UpdateStatus(ctx context.Context, feed models.Feed) error
	ListFeeds(ctx context.Context) ([]models.Feed, error)
}

// PostRepository persists posts
type PostRepository interface {
	SavePosts(ctx context.Context, posts []models.Post) (int, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
}

// Mirror writes store changes through to sqlite so that subscriptions survive
// a restart. The store stays the source of truth; write failures are logged
// and never reach the mutation that caused them.
//
// Change handlers only queue the write. A single worker started by Start
// applies queued writes in commit order, so a slow database never holds up a
// store mutation.
type Mirror struct {
	feeds  FeedRepository
	posts  PostRepository
	logger *core.Logger

	mu     sync.Mutex
	queue  []mirrorWrite
	closed bool
	wake   chan struct{}
	done   chan struct{}
	start  sync.Once
}

type mirrorWrite func(ctx context.Context)

// NewMirror creates a mirror over the given repositories
func NewMirror(feeds FeedRepository, posts PostRepository, logger *core.Logger) *Mirror {
	return &Mirror{
		feeds:  feeds,
		posts:  posts,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Register subscribes the mirror to feed, status and post changes
func (m *Mirror) Register(table *store.Table) {
	table.Handle(store.PathFeeds, m.onFeeds)
	table.Handle(store.PathFeeds+".*", m.onFeedStatus)
	table.Handle(store.PathPosts, m.onPosts)
}

// Start launches the write worker. Writes queued before Start are kept.
func (m *Mirror) Start() {
	m.start.Do(func() { go m.run() })
}

// Flush waits until every write queued so far has been applied, or ctx ends
func (m *Mirror) Flush(ctx context.Context) error {
	flushed := make(chan struct{})
	if !m.enqueue(func(context.Context) { close(flushed) }) {
		flushed = m.done
	}

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting writes and waits for the queue to drain, or for ctx
// to end. Changes after Close are not mirrored.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
	m.Start()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load reads everything previously mirrored
func (m *Mirror) Load(ctx context.Context) ([]models.Feed, []models.Post, error) {
	feeds, err := m.feeds.ListFeeds(ctx)
	if err != nil {
		return nil, nil, err
	}
	posts, err := m.posts.ListPosts(ctx)
	if err != nil {
		return nil, nil, err
	}
	return feeds, posts, nil
}

func (m *Mirror) enqueue(w mirrorWrite) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.queue = append(m.queue, w)
	m.mu.Unlock()

	m.signal()
	return true
}

func (m *Mirror) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Mirror) run() {
	defer close(m.done)

	for {
		m.mu.Lock()
		batch := m.queue
		m.queue = nil
		closed := m.closed
		m.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-m.wake
			continue
		}

		for _, w := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), mirrorWriteTimeout)
			w(ctx)
			cancel()
		}
	}
}

func (m *Mirror) onFeeds(c store.Change) {
	previous, _ := c.Previous.([]models.Feed)
	next, ok := c.Value.([]models.Feed)
	if !ok {
		return
	}

	added := diff.FeedsByID(previous, next)
	if len(added) == 0 {
		return
	}

	m.write("feeds", func(ctx context.Context) {
		for _, feed := range added {
			if _, err := m.feeds.SaveFeed(ctx, feed); err != nil {
				m.logger.Error("Failed to mirror feed", "feed_id", feed.ID, "error", err)
			}
		}
	})
}

func (m *Mirror) onFeedStatus(c store.Change) {
	feed, ok := c.Value.(models.Feed)
	if !ok {
		return
	}

	m.write("feed status", func(ctx context.Context) {
		if err := m.feeds.UpdateStatus(ctx, feed); err != nil {
			m.logger.Error("Failed to mirror feed status", "feed_id", feed.ID, "error", err)
		}
	})
}

func (m *Mirror) onPosts(c store.Change) {
	previous, _ := c.Previous.([]models.Post)
	next, ok := c.Value.([]models.Post)
	if !ok {
		return
	}

	added := diff.PostsByContent(previous, next)
	if len(added) == 0 {
		return
	}

	m.write("posts", func(ctx context.Context) {
		if _, err := m.posts.SavePosts(ctx, added); err != nil {
			m.logger.Error("Failed to mirror posts", "count", len(added), "error", err)
		}
	})
}

func (m *Mirror) write(kind string, w mirrorWrite) {
	if !m.enqueue(w) {
		m.logger.Warn("Mirror closed, change not persisted", "kind", kind)
	}
}
