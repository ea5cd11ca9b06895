package services

import (
	"context"
	"strings"
	"sync"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/diff"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/store"
)

// FeedScheduler runs the recurring poll task of a feed
type FeedScheduler interface {
	Schedule(feed models.Feed)
	// PollNow polls the feed on its task now and reports whether it had one
	PollNow(ctx context.Context, feedID string) bool
}

// PipelineConfig holds the collaborators of a Pipeline. Store and Fetcher are
// required.
type PipelineConfig struct {
	Store     *store.Store
	Fetcher   Fetcher
	Parser    Parser
	IDs       IDGenerator
	Validator Validator
	Scheduler FeedScheduler
	Logger    *core.Logger
	// Proxy is prepended to the feed url when fetching and never stored
	Proxy string
}

// Pipeline turns fetched feed documents into store mutations. It handles the
// initial submission of a feed, every later poll of it and the input of the
// subscription form.
type Pipeline struct {
	store     *store.Store
	fetcher   Fetcher
	parser    Parser
	ids       IDGenerator
	validator Validator
	scheduler FeedScheduler
	logger    *core.Logger
	proxy     string

	// mu guards pending and makes check-then-write on feeds and posts atomic
	mu      sync.Mutex
	pending map[string]struct{}

	// refreshMu serializes refreshes of feeds without a poll task
	refreshMu sync.Mutex
}

// NewPipeline creates a pipeline, filling in defaults for optional
// collaborators
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Parser == nil {
		cfg.Parser = NewFeedParser()
	}
	if cfg.IDs == nil {
		cfg.IDs = NewSequenceGenerator()
	}
	if cfg.Validator == nil {
		cfg.Validator = NewURLValidator()
	}
	if cfg.Logger == nil {
		cfg.Logger = core.NewDiscardLogger()
	}

	return &Pipeline{
		store:     cfg.Store,
		fetcher:   cfg.Fetcher,
		parser:    cfg.Parser,
		ids:       cfg.IDs,
		validator: cfg.Validator,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger,
		proxy:     cfg.Proxy,
		pending:   make(map[string]struct{}),
	}
}

// Submit subscribes to the feed at rawURL. On success the feed and its posts
// are in the store and its poll task is scheduled. On failure feeds and posts
// are untouched and the returned error is a validation, network or unknown
// AppError.
func (p *Pipeline) Submit(ctx context.Context, rawURL string) (models.Feed, error) {
	requestURL := strings.TrimSpace(rawURL)
	logger := p.logger.WithContext(ctx).With("url", requestURL)

	p.record(p.store.SetFormProcessState(models.ProcessStateSending))

	if errs := p.reserve(requestURL); len(errs) > 0 {
		p.record(p.store.SetFormValid(false))
		p.record(p.store.SetFormErrors(errs))
		return p.fail(logger, core.NewValidationError(errs[models.FieldURL], nil))
	}
	defer p.release(requestURL)

	raw, err := p.fetcher.Fetch(ctx, p.proxy+requestURL)
	if err != nil {
		return p.fail(logger, Classify(err))
	}
	parsed, err := p.parser.Parse(raw)
	if err != nil {
		return p.fail(logger, Classify(err))
	}

	feed := models.Feed{
		ID:         p.ids.NextID(),
		Title:      parsed.Title,
		RequestURL: requestURL,
		Status:     models.FeedStatusIdle,
	}
	posts := p.buildPosts(feed.ID, candidates(feed.ID, parsed.Items))

	if err := p.commitFeed(feed, posts); err != nil {
		return p.fail(logger, Classify(err))
	}

	if p.scheduler != nil {
		p.scheduler.Schedule(feed)
	}

	p.record(p.store.SetFormProcessState(models.ProcessStateFinished))
	p.record(p.store.SetFormValid(false))

	logger.Info("Subscribed to feed", "feed_id", feed.ID, "title", feed.Title, "new_posts", len(posts))
	return feed, nil
}

// Poll runs one poll cycle for feed. New posts are appended and the feed's
// status records the outcome; failures never escape. A cancelled ctx writes
// nothing further.
func (p *Pipeline) Poll(ctx context.Context, feed models.Feed) {
	logger := p.logger.With("feed_id", feed.ID, "url", feed.RequestURL)
	if ctx.Err() != nil {
		return
	}

	if err := p.store.SetFeedStatus(feed.ID, models.FeedStatusUpdating, nil); err != nil {
		logger.Error("Failed to mark feed as updating", "error", err)
		return
	}

	added, err := p.pollOnce(ctx, feed)
	if ctx.Err() != nil {
		logger.Debug("Poll cancelled")
		return
	}

	switch {
	case err != nil:
		appErr := Classify(err)
		p.record(p.store.SetFeedStatus(feed.ID, models.FeedStatusFailed, appErr))
		logger.Warn("Poll failed", "error", appErr)
	case added > 0:
		p.record(p.store.SetFeedStatus(feed.ID, models.FeedStatusUpdated, nil))
		logger.Info("Found new posts", "new_posts", added)
	default:
		p.record(p.store.SetFeedStatus(feed.ID, models.FeedStatusIdle, nil))
		logger.Debug("No new posts")
	}
}

// Refresh polls a subscribed feed immediately and returns it afterwards. The
// poll runs on the feed's task, so it never overlaps a scheduled poll and a
// caller that goes away does not cut it short.
func (p *Pipeline) Refresh(ctx context.Context, feedID string) (models.Feed, error) {
	feed, ok := p.store.Feed(feedID)
	if !ok {
		return models.Feed{}, core.NewNotFoundError("feed not found: "+feedID, nil)
	}

	if p.scheduler == nil || !p.scheduler.PollNow(ctx, feedID) {
		p.refreshMu.Lock()
		p.Poll(context.WithoutCancel(ctx), feed)
		p.refreshMu.Unlock()
	}

	feed, _ = p.store.Feed(feedID)
	return feed, nil
}

// Input records a form field edit and revalidates the form
func (p *Pipeline) Input(ctx context.Context, name, value string) models.Form {
	p.record(p.store.SetFormProcessState(models.ProcessStateFilling))
	p.record(p.store.SetFormField(name, strings.TrimSpace(value)))

	errs := p.validator.Validate(p.store.Form().Fields, p.store.Feeds())
	p.record(p.store.SetFormValid(len(errs) == 0))
	p.record(p.store.SetFormErrors(errs))

	p.logger.WithContext(ctx).Debug("Form input", "field", name, "valid", len(errs) == 0)
	return p.store.Form()
}

// Restore loads previously persisted feeds and posts into the store and
// resumes polling of each restored feed. Entities already in the store are
// skipped.
func (p *Pipeline) Restore(ctx context.Context, feeds []models.Feed, posts []models.Post) error {
	restored, err := p.restore(ctx, feeds, posts)
	if err != nil {
		return err
	}

	if p.scheduler != nil {
		for _, feed := range restored {
			p.scheduler.Schedule(feed)
		}
	}

	p.logger.Info("Restored feeds", "feeds", len(restored), "posts", len(posts))
	return nil
}

func (p *Pipeline) restore(ctx context.Context, feeds []models.Feed, posts []models.Post) ([]models.Feed, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	observer, _ := p.ids.(interface{ Observe(string) })

	added := diff.FeedsByID(p.store.Feeds(), diff.Unique(feeds, func(f models.Feed) string { return f.ID }))
	for i := range added {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		added[i].Status = models.FeedStatusIdle
		added[i].LastError = nil
		if err := p.store.AddFeed(added[i]); err != nil {
			return nil, err
		}
		if observer != nil {
			observer.Observe(added[i].ID)
		}
	}

	known := make(map[string]struct{})
	for _, feed := range p.store.Feeds() {
		known[feed.ID] = struct{}{}
	}
	orphaned := 0
	scoped := make([]models.Post, 0, len(posts))
	for _, post := range posts {
		if _, ok := known[post.FeedID]; !ok {
			orphaned++
			continue
		}
		scoped = append(scoped, post)
	}
	if orphaned > 0 {
		p.logger.Warn("Skipped posts of unknown feeds", "posts", orphaned)
	}

	fresh := diff.PostsByContent(p.store.Posts(), diff.Unique(scoped, models.Post.Key))
	if len(fresh) > 0 {
		if err := p.store.AppendPosts(fresh...); err != nil {
			return nil, err
		}
	}
	if observer != nil {
		for _, post := range fresh {
			observer.Observe(post.ID)
		}
	}

	return added, nil
}

// pollOnce fetches feed and appends the posts whose titles it has not seen
func (p *Pipeline) pollOnce(ctx context.Context, feed models.Feed) (int, error) {
	raw, err := p.fetcher.Fetch(ctx, p.proxy+feed.RequestURL)
	if err != nil {
		return 0, err
	}
	parsed, err := p.parser.Parse(raw)
	if err != nil {
		return 0, err
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.store.PostsByFeed(feed.ID)
	fresh := diff.PostsByTitle(current, candidates(feed.ID, parsed.Items))
	if len(fresh) == 0 {
		return 0, nil
	}

	posts := p.buildPosts(feed.ID, fresh)
	if err := p.store.AppendPosts(posts...); err != nil {
		return 0, err
	}
	return len(posts), nil
}

// reserve validates requestURL against the subscribed feeds and marks it as
// in flight. It returns the field errors when the url cannot be submitted.
func (p *Pipeline) reserve(requestURL string) map[string]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.pending[requestURL]; ok {
		return map[string]string{models.FieldURL: MsgFeedNotUnique}
	}

	errs := p.validator.Validate(map[string]string{models.FieldURL: requestURL}, p.store.Feeds())
	if len(errs) == 0 {
		p.pending[requestURL] = struct{}{}
	}
	return errs
}

func (p *Pipeline) release(requestURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, requestURL)
}

// commitFeed adds the feed and then its posts, rechecking uniqueness first
func (p *Pipeline) commitFeed(feed models.Feed, posts []models.Post) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, existing := range p.store.Feeds() {
		if existing.RequestURL == feed.RequestURL {
			return core.NewValidationError(MsgFeedNotUnique, nil)
		}
	}

	if err := p.store.AddFeed(feed); err != nil {
		return err
	}
	if len(posts) == 0 {
		return nil
	}
	return p.store.AppendPosts(posts...)
}

// candidates scopes parsed items to a feed, dropping repeated titles
func candidates(feedID string, items []models.ParsedItem) []models.Post {
	posts := make([]models.Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, models.Post{FeedID: feedID, Title: item.Title, Link: item.Link})
	}
	return diff.Unique(posts, func(post models.Post) string { return post.Title })
}

// buildPosts assigns fresh ids in order
func (p *Pipeline) buildPosts(feedID string, posts []models.Post) []models.Post {
	out := make([]models.Post, len(posts))
	for i, post := range posts {
		post.ID = p.ids.NextID()
		post.FeedID = feedID
		out[i] = post
	}
	return out
}

func (p *Pipeline) fail(logger *core.Logger, err *core.AppError) (models.Feed, error) {
	p.record(p.store.SetFormProcessState(models.ProcessStateFailed))
	p.record(p.store.SetFormProcessError(err.Message))

	logger.Warn("Feed submission failed", "error", err)
	return models.Feed{}, err
}

func (p *Pipeline) record(err error) {
	if err != nil {
		p.logger.Error("Store mutation failed", "error", err)
	}
}
