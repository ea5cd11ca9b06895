// Package store holds the application state tree and reports every change to
// it.
//
// The store is the only writer of the tree. Writes go through a fixed set of
// typed mutations; each one replaces a value, then synchronously hands the
// handler the path that changed together with the new and previous values.
// There is no batching or coalescing: N mutations produce N notifications in
// the order they were issued.
package store

import (
	"fmt"
	"maps"
	"strconv"
	"sync"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/models"
)

// Top-level paths of the state tree
const (
	PathFeeds = "feeds"
	PathPosts = "posts"
	PathForm  = "form"
)

// Change describes one mutation of the state tree
type Change struct {
	Path     string
	Value    any
	Previous any
}

// ChangeHandler receives a notification after every mutation. It runs while
// the store is still serializing writers, so it may read from the store but
// must not mutate it.
type ChangeHandler func(Change)

// Store owns the application state tree
type Store struct {
	// writeMu serializes mutate-then-notify; mu guards state for readers.
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   models.State
	handler ChangeHandler
}

// New creates a store with an empty state tree and a single change handler,
// which may be nil
func New(handler ChangeHandler) *Store {
	return &Store{
		state:   models.NewState(),
		handler: handler,
	}
}

// Get returns a copy of the value at a dot-separated path such as
// "feeds.0.title" or "form.fields.url". The empty path returns the whole tree.
func (s *Store) Get(path string) (any, error) {
	return resolve(s.State(), path)
}

// State returns a deep copy of the whole tree
func (s *Store) State() models.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Feeds returns a copy of all feeds in discovery order
func (s *Store) Feeds() []models.Feed {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneFeeds(s.state.Feeds)
}

// Feed returns the feed with the given id
func (s *Store) Feed(id string) (models.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.feedIndex(id)
	if i < 0 {
		return models.Feed{}, false
	}
	return s.state.Feeds[i].Clone(), true
}

// Posts returns a copy of all posts across feeds in insertion order
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ClonePosts(s.state.Posts)
}

// PostsByFeed returns the posts that belong to one feed
func (s *Store) PostsByFeed(feedID string) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := []models.Post{}
	for _, post := range s.state.Posts {
		if post.FeedID == feedID {
			posts = append(posts, post)
		}
	}
	return posts
}

// Form returns a copy of the form subtree
func (s *Store) Form() models.Form {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Form.Clone()
}

// AddFeed appends a feed. Subscribers of "feeds" get the full old and new
// slices.
func (s *Store) AddFeed(feed models.Feed) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous := st.Feeds
		next := make([]models.Feed, len(previous), len(previous)+1)
		copy(next, previous)
		next = append(next, feed.Clone())
		st.Feeds = next

		return Change{
			Path:     PathFeeds,
			Value:    models.CloneFeeds(next),
			Previous: models.CloneFeeds(previous),
		}, nil
	})
}

// AppendPosts appends a batch of posts. Every post must reference a feed that
// is already in the tree.
func (s *Store) AppendPosts(posts ...models.Post) error {
	return s.commit(func(st *models.State) (Change, error) {
		for _, post := range posts {
			if indexOfFeed(st.Feeds, post.FeedID) < 0 {
				return Change{}, core.NewInvalidPathError(fmt.Sprintf("%s[id=%s]", PathFeeds, post.FeedID))
			}
		}

		previous := st.Posts
		next := make([]models.Post, 0, len(previous)+len(posts))
		next = append(next, previous...)
		next = append(next, posts...)
		st.Posts = next

		return Change{
			Path:     PathPosts,
			Value:    models.ClonePosts(next),
			Previous: models.ClonePosts(previous),
		}, nil
	})
}

// SetFeedStatus replaces the status and last error of a feed. The change is
// reported at "feeds.<index>" with the whole feed as value. lastErr is dropped
// unless status is failed.
func (s *Store) SetFeedStatus(feedID string, status models.FeedStatus, lastErr *core.AppError) error {
	if !status.Valid() {
		return core.NewValidationError(fmt.Sprintf("unknown feed status %q", status), nil)
	}
	if status != models.FeedStatusFailed {
		lastErr = nil
	}

	return s.commit(func(st *models.State) (Change, error) {
		i := indexOfFeed(st.Feeds, feedID)
		if i < 0 {
			return Change{}, core.NewInvalidPathError(fmt.Sprintf("%s[id=%s]", PathFeeds, feedID))
		}

		previous := st.Feeds[i].Clone()
		updated := previous.Clone()
		updated.Status = status
		updated.LastError = lastErr

		next := models.CloneFeeds(st.Feeds)
		next[i] = updated
		st.Feeds = next

		return Change{
			Path:     PathFeeds + "." + strconv.Itoa(i),
			Value:    updated.Clone(),
			Previous: previous,
		}, nil
	})
}

// SetFormField sets one input field, reported at "form.fields.<name>"
func (s *Store) SetFormField(name, value string) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous, ok := st.Form.Fields[name]
		var prev any
		if ok {
			prev = previous
		}

		fields := maps.Clone(st.Form.Fields)
		if fields == nil {
			fields = map[string]string{}
		}
		fields[name] = value
		st.Form.Fields = fields

		return Change{Path: PathForm + ".fields." + name, Value: value, Previous: prev}, nil
	})
}

// SetFormValid sets whether the form may be submitted
func (s *Store) SetFormValid(valid bool) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous := st.Form.Valid
		st.Form.Valid = valid
		return Change{Path: PathForm + ".valid", Value: valid, Previous: previous}, nil
	})
}

// SetFormErrors replaces the per-field validation errors
func (s *Store) SetFormErrors(errs map[string]string) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous := st.Form.Errors
		next := maps.Clone(errs)
		if next == nil {
			next = map[string]string{}
		}
		st.Form.Errors = next
		return Change{Path: PathForm + ".errors", Value: maps.Clone(next), Previous: maps.Clone(previous)}, nil
	})
}

// SetFormProcessState moves the form through its submission states
func (s *Store) SetFormProcessState(state models.ProcessState) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous := st.Form.ProcessState
		st.Form.ProcessState = state
		return Change{Path: PathForm + ".processState", Value: state, Previous: previous}, nil
	})
}

// SetFormProcessError records why the last submission failed
func (s *Store) SetFormProcessError(message string) error {
	return s.commit(func(st *models.State) (Change, error) {
		previous := st.Form.ProcessError
		st.Form.ProcessError = message
		return Change{Path: PathForm + ".processError", Value: message, Previous: previous}, nil
	})
}

// commit applies mutate and then notifies the handler, both while holding
// writeMu, so notifications are delivered in mutation order.
func (s *Store) commit(mutate func(*models.State) (Change, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	change, err := mutate(&s.state)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if s.handler != nil {
		s.handler(change)
	}
	return nil
}

func (s *Store) feedIndex(id string) int {
	return indexOfFeed(s.state.Feeds, id)
}

func indexOfFeed(feeds []models.Feed, id string) int {
	for i, feed := range feeds {
		if feed.ID == id {
			return i
		}
	}
	return -1
}
