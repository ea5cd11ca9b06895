// Package view renders store changes as structured log lines. It is the
// headless counterpart of a UI: it only observes the state tree and never
// writes to it.
package view

import (
	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/diff"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/store"
)

// Form feedback messages
const (
	MsgSending  = "Please, wait..."
	MsgFinished = "Rss feed loaded successfully!"
)

// Renderer logs what a reader of the feed list would see change
type Renderer struct {
	logger *core.Logger
}

// Register creates a renderer and subscribes it to table
func Register(table *store.Table, logger *core.Logger) *Renderer {
	r := &Renderer{logger: logger}

	table.Handle(store.PathFeeds, r.feedsChanged)
	table.Handle(store.PathFeeds+".*", r.feedStatusChanged)
	table.Handle(store.PathPosts, r.postsChanged)
	table.Handle(store.PathForm+".processState", r.processStateChanged)
	table.Handle(store.PathForm+".processError", r.processErrorChanged)

	return r
}

func (r *Renderer) feedsChanged(c store.Change) {
	previous, _ := c.Previous.([]models.Feed)
	next, _ := c.Value.([]models.Feed)

	for _, feed := range diff.FeedsByID(previous, next) {
		r.logger.Info("Feed added", "feed_id", feed.ID, "title", feed.Title, "url", feed.RequestURL)
	}
}

func (r *Renderer) feedStatusChanged(c store.Change) {
	feed, ok := c.Value.(models.Feed)
	if !ok {
		return
	}

	switch feed.Status {
	case models.FeedStatusFailed:
		r.logger.Warn("Feed update failed", "feed_id", feed.ID, "title", feed.Title, "error", feed.LastError)
	case models.FeedStatusUpdated:
		r.logger.Info("Feed updated", "feed_id", feed.ID, "title", feed.Title)
	default:
		r.logger.Debug("Feed status", "feed_id", feed.ID, "status", feed.Status)
	}
}

// postsChanged logs each batch grouped by feed, in feed order of first
// appearance
func (r *Renderer) postsChanged(c store.Change) {
	previous, _ := c.Previous.([]models.Post)
	next, _ := c.Value.([]models.Post)

	added := diff.PostsByContent(previous, next)
	var order []string
	byFeed := make(map[string][]string)
	for _, post := range added {
		if _, ok := byFeed[post.FeedID]; !ok {
			order = append(order, post.FeedID)
		}
		byFeed[post.FeedID] = append(byFeed[post.FeedID], post.Title)
	}

	for _, feedID := range order {
		r.logger.Info("New posts", "feed_id", feedID, "new_posts", len(byFeed[feedID]), "titles", byFeed[feedID])
	}
}

func (r *Renderer) processStateChanged(c store.Change) {
	state, _ := c.Value.(models.ProcessState)

	switch state {
	case models.ProcessStateSending:
		r.logger.Info(MsgSending)
	case models.ProcessStateFinished:
		r.logger.Info(MsgFinished)
	}
}

func (r *Renderer) processErrorChanged(c store.Change) {
	if message, _ := c.Value.(string); message != "" {
		r.logger.Warn("Feed submission failed", "error", message)
	}
}
