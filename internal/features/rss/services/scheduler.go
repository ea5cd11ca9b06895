package services

import (
	"context"
	"sync"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/clock"
	"feedwatch/internal/features/rss/models"
)

// Poller runs one poll cycle of a feed
type Poller interface {
	Poll(ctx context.Context, feed models.Feed)
}

// PollerFunc adapts a function to Poller
type PollerFunc func(ctx context.Context, feed models.Feed)

func (f PollerFunc) Poll(ctx context.Context, feed models.Feed) {
	f(ctx, feed)
}

// Scheduler polls every subscribed feed forever. Each feed has its own task:
// the next timer is armed only once the previous poll has returned, so a feed
// never has two polls in flight and a slow feed delays nobody else.
type Scheduler struct {
	poller Poller
	clock  clock.Clock
	config *models.SchedulerConfig
	logger *core.Logger

	mu      sync.Mutex
	tasks   map[string]*task
	order   []string
	stopped bool
	running sync.WaitGroup
}

type task struct {
	feed   models.Feed
	ctx    context.Context
	cancel context.CancelFunc
	timer  clock.Timer
	// gen invalidates timer callbacks that fired after the timer was replaced
	gen   uint64
	state models.TaskState
	// done is closed when the current poll returns
	done chan struct{}
	// prev is the cancelled task this one replaced; its poll may still be running
	prev       *task
	polls      int
	lastPollAt time.Time
}

// NewScheduler creates a scheduler. A nil clock means the wall clock.
func NewScheduler(poller Poller, clk clock.Clock, config *models.SchedulerConfig, logger *core.Logger) *Scheduler {
	if clk == nil {
		clk = clock.Real{}
	}
	if config == nil {
		config = models.DefaultSchedulerConfig()
	}

	return &Scheduler{
		poller: poller,
		clock:  clk,
		config: config,
		logger: logger,
		tasks:  make(map[string]*task),
	}
}

// Schedule starts the poll task of feed. The first poll happens one interval
// from now. Scheduling a feed whose task is live does nothing; a cancelled
// task is replaced.
func (s *Scheduler) Schedule(feed models.Feed) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	existing, ok := s.tasks[feed.ID]
	if ok && existing.ctx.Err() == nil {
		return
	}
	if !ok {
		s.order = append(s.order, feed.ID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{feed: feed, ctx: ctx, cancel: cancel}
	if ok && existing.state == models.TaskStateRunning {
		t.prev = existing
	}
	s.tasks[feed.ID] = t
	s.armLocked(t)

	s.logger.Debug("Scheduled feed", "feed_id", feed.ID, "interval", s.config.PollInterval)
}

// PollNow polls a scheduled feed immediately on its task, in place of the
// pending timer, and re-arms the timer afterwards. When a poll of the feed is
// already in flight it waits for that poll instead of starting another. It
// returns false if the feed has no live task, once any cancelled poll of the
// feed has returned.
func (s *Scheduler) PollNow(ctx context.Context, feedID string) bool {
	s.mu.Lock()
	t, ok := s.tasks[feedID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	live := t.ctx.Err() == nil && !s.stopped
	if inflight := s.inflightLocked(t); inflight != nil {
		s.mu.Unlock()
		select {
		case <-inflight:
		case <-ctx.Done():
		}
		return live
	}
	if !live {
		s.mu.Unlock()
		return false
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	s.startLocked(t)
	s.mu.Unlock()

	s.execute(t)
	return true
}

// Cancel stops the task of a feed. A poll in flight is cancelled through its
// context and the task is not rescheduled. It reports whether the feed had a
// task.
func (s *Scheduler) Cancel(feedID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[feedID]
	if !ok {
		return false
	}
	s.cancelLocked(t)

	s.logger.Debug("Cancelled feed", "feed_id", feedID)
	return true
}

// Stop cancels every task and waits for polls in flight to return, or for ctx
// to expire
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for _, t := range s.tasks {
		s.cancelLocked(t)
	}
	s.mu.Unlock()

	s.logger.Info("Stopping feed scheduler")

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tasks reports the state of every task in scheduling order
func (s *Scheduler) Tasks() []models.TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]models.TaskInfo, 0, len(s.order))
	for _, id := range s.order {
		t := s.tasks[id]
		infos = append(infos, models.TaskInfo{
			FeedID:     id,
			State:      t.state,
			Polls:      t.polls,
			LastPollAt: t.lastPollAt,
		})
	}
	return infos
}

func (s *Scheduler) armLocked(t *task) {
	t.state = models.TaskStateScheduled
	t.gen++
	gen := t.gen
	t.timer = s.clock.AfterFunc(s.config.PollInterval, func() { s.fire(t, gen) })
}

// inflightLocked returns a channel closed when the poll now running for the
// feed of t returns, or nil if none is running
func (s *Scheduler) inflightLocked(t *task) <-chan struct{} {
	if t.state == models.TaskStateRunning {
		return t.done
	}
	if t.prev != nil && t.prev.state == models.TaskStateRunning {
		return t.prev.done
	}
	return nil
}

func (s *Scheduler) cancelLocked(t *task) {
	t.cancel()
	if t.state == models.TaskStateRunning {
		// execute marks it cancelled once the poll returns
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.state = models.TaskStateCancelled
}

func (s *Scheduler) startLocked(t *task) {
	t.state = models.TaskStateRunning
	t.done = make(chan struct{})
	s.running.Add(1)
}

// fire is the timer callback of a task
func (s *Scheduler) fire(t *task, gen uint64) {
	s.mu.Lock()
	if t.gen != gen || t.ctx.Err() != nil || t.state != models.TaskStateScheduled {
		s.mu.Unlock()
		return
	}
	if s.inflightLocked(t) != nil {
		// the replaced task is still polling this feed
		s.armLocked(t)
		s.mu.Unlock()
		return
	}
	s.startLocked(t)
	s.mu.Unlock()

	s.execute(t)
}

// execute runs one poll of a started task and re-arms it
func (s *Scheduler) execute(t *task) {
	defer s.running.Done()

	s.poll(t)

	s.mu.Lock()
	defer s.mu.Unlock()

	t.polls++
	t.lastPollAt = s.clock.Now()
	t.prev = nil
	close(t.done)
	if t.ctx.Err() != nil {
		t.state = models.TaskStateCancelled
		return
	}
	s.armLocked(t)
}

func (s *Scheduler) poll(t *task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Poll panicked", "feed_id", t.feed.ID, "panic", r)
		}
	}()

	s.poller.Poll(t.ctx, t.feed)
}
