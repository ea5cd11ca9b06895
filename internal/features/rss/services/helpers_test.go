package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/clock"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/store"
)

const testInterval = 5 * time.Second

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var errConnectionRefused = errors.New("dial tcp: connection refused")

type item struct {
	title string
	link  string
}

// rssDoc renders a minimal RSS 2.0 document
func rssDoc(title string, items ...item) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel>`)
	fmt.Fprintf(&b, "<title>%s</title>", title)
	for _, it := range items {
		fmt.Fprintf(&b, "<item><title>%s</title><link>%s</link></item>", it.title, it.link)
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

type stubResponse struct {
	body string
	err  error
}

// stubFetcher serves canned responses by url. When gate is set, every fetch
// announces itself on started and waits for gate to close or ctx to end.
type stubFetcher struct {
	mu          sync.Mutex
	responses   map[string]stubResponse
	calls       []string
	gate        chan struct{}
	started     chan string
	inFlight    int
	maxInFlight int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: make(map[string]stubResponse)}
}

func (f *stubFetcher) serve(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = stubResponse{body: body}
}

func (f *stubFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = stubResponse{err: err}
}

// hold makes subsequent fetches block until the returned func is called
func (f *stubFetcher) hold() (started <-chan string, release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	gate := make(chan struct{})
	ch := make(chan string, 16)
	f.gate = gate
	f.started = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *stubFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *stubFetcher) peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *stubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	gate, started := f.gate, f.started
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		started <- url
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	resp, ok := f.responses[url]
	f.mu.Unlock()
	if !ok {
		return "", errConnectionRefused
	}
	return resp.body, resp.err
}

// harness wires a store, pipeline and scheduler on a manual clock
type harness struct {
	store     *store.Store
	table     *store.Table
	pipeline  *Pipeline
	scheduler *Scheduler
	clock     *clock.Manual
	fetcher   *stubFetcher
}

func newHarness(t *testing.T, fetcher *stubFetcher) *harness {
	t.Helper()

	logger := core.NewDiscardLogger()
	table := store.NewTable()
	st := store.New(table.Dispatch)
	clk := clock.NewManual(epoch)

	var pipeline *Pipeline
	scheduler := NewScheduler(
		PollerFunc(func(ctx context.Context, feed models.Feed) { pipeline.Poll(ctx, feed) }),
		clk,
		&models.SchedulerConfig{PollInterval: testInterval},
		logger,
	)
	pipeline = NewPipeline(PipelineConfig{
		Store:     st,
		Fetcher:   fetcher,
		Parser:    NewFeedParser(),
		IDs:       NewSequenceGenerator(),
		Scheduler: scheduler,
		Logger:    logger,
	})

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		scheduler.Stop(ctx)
	})

	return &harness{
		store:     st,
		table:     table,
		pipeline:  pipeline,
		scheduler: scheduler,
		clock:     clk,
		fetcher:   fetcher,
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting on channel")
	}
	var zero T
	return zero
}
