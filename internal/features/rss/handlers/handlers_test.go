package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/clock"
	"feedwatch/internal/features/rss/models"
	"feedwatch/internal/features/rss/services"
	"feedwatch/internal/features/rss/store"
)

const blogDoc = `<?xml version="1.0"?><rss version="2.0"><channel><title>Blog</title>` +
	`<item><title>Post1</title><link>http://x/1</link></item></channel></rss>`

type testEnv struct {
	router *chi.Mux
	feeds  *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	feeds := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rss":
			w.Write([]byte(blogDoc))
		default:
			http.Error(w, "gone", http.StatusGone)
		}
	}))
	t.Cleanup(feeds.Close)

	logger := core.NewDiscardLogger()
	st := store.New(nil)
	fetcher := services.NewHTTPFetcher(logger, &models.FetcherConfig{Timeout: 5 * time.Second})

	var pipeline *services.Pipeline
	scheduler := services.NewScheduler(
		services.PollerFunc(func(ctx context.Context, feed models.Feed) { pipeline.Poll(ctx, feed) }),
		clock.NewManual(time.Unix(0, 0)),
		models.DefaultSchedulerConfig(),
		logger,
	)
	pipeline = services.NewPipeline(services.PipelineConfig{
		Store:     st,
		Fetcher:   fetcher,
		Scheduler: scheduler,
		Logger:    logger,
	})
	t.Cleanup(func() { scheduler.Stop(context.Background()) })

	router := chi.NewRouter()
	for _, route := range NewHandlers(logger, st, pipeline, scheduler).Routes() {
		router.Method(route.Method, route.Path, route.Handler)
	}

	return &testEnv{router: router, feeds: feeds}
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("%s %s: invalid JSON response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, payload
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("Failed to decode %s: %v", raw, err)
	}
	return v
}

func TestCreateAndListFeeds(t *testing.T) {
	env := newTestEnv(t)
	feedURL := env.feeds.URL + "/rss"

	rec, body := env.do(t, http.MethodPost, "/rss/feeds", `{"url": "`+feedURL+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	feed := decode[models.Feed](t, body["feed"])
	if feed.Title != "Blog" || feed.RequestURL != feedURL || feed.Status != models.FeedStatusIdle {
		t.Errorf("Unexpected feed: %+v", feed)
	}

	rec, body = env.do(t, http.MethodGet, "/rss/feeds", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if feeds := decode[[]models.Feed](t, body["feeds"]); len(feeds) != 1 {
		t.Errorf("Expected 1 feed, got %d", len(feeds))
	}

	rec, body = env.do(t, http.MethodGet, "/rss/feeds/"+feed.ID, "")
	if rec.Code != http.StatusOK || decode[models.Feed](t, body["feed"]).ID != feed.ID {
		t.Errorf("Expected feed %s, got %d %s", feed.ID, rec.Code, rec.Body.String())
	}

	_, body = env.do(t, http.MethodGet, "/rss/feeds/"+feed.ID+"/posts", "")
	posts := decode[[]models.Post](t, body["posts"])
	if len(posts) != 1 || posts[0].Title != "Post1" || posts[0].FeedID != feed.ID {
		t.Errorf("Unexpected posts: %+v", posts)
	}

	_, body = env.do(t, http.MethodGet, "/rss/posts", "")
	if posts := decode[[]models.Post](t, body["posts"]); len(posts) != 1 {
		t.Errorf("Expected 1 post overall, got %d", len(posts))
	}

	_, body = env.do(t, http.MethodGet, "/rss/scheduler", "")
	tasks := decode[[]models.TaskInfo](t, body["tasks"])
	if len(tasks) != 1 || tasks[0].FeedID != feed.ID || tasks[0].State != models.TaskStateScheduled {
		t.Errorf("Unexpected tasks: %+v", tasks)
	}

	// duplicate
	rec, body = env.do(t, http.MethodPost, "/rss/feeds", `{"url": "`+feedURL+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for duplicate, got %d", rec.Code)
	}
	if appErr := decode[core.AppError](t, body["error"]); appErr.Code != core.ErrCodeValidation {
		t.Errorf("Expected validation error, got %+v", appErr)
	}
}

func TestCreateFeedErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "bad json", body: `{`, wantCode: http.StatusBadRequest, wantErr: core.ErrCodeValidation},
		{name: "invalid url", body: `{"url": "nope"}`, wantCode: http.StatusBadRequest, wantErr: core.ErrCodeValidation},
		{name: "error status", body: `{"url": "` + env.feeds.URL + `/gone"}`, wantCode: http.StatusBadGateway, wantErr: core.ErrCodeNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := env.do(t, http.MethodPost, "/rss/feeds", tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rec.Code)
			}
			if appErr := decode[core.AppError](t, body["error"]); appErr.Code != tt.wantErr {
				t.Errorf("Expected %s, got %+v", tt.wantErr, appErr)
			}
		})
	}

	rec, body := env.do(t, http.MethodPost, "/rss/feeds", `{"url": "`+env.feeds.URL+`/gone"}`)
	if appErr := decode[core.AppError](t, body["error"]); rec.Code != http.StatusBadGateway || appErr.Status != http.StatusGone {
		t.Errorf("Expected remote status 410 in the error, got %d %+v", rec.Code, appErr)
	}
}

func TestRefreshFeed(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.do(t, http.MethodPost, "/rss/feeds", `{"url": "`+env.feeds.URL+`/rss"}`)
	feed := decode[models.Feed](t, body["feed"])

	rec, body := env.do(t, http.MethodPost, "/rss/feeds/"+feed.ID+"/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decode[models.Feed](t, body["feed"]); got.Status != models.FeedStatusIdle {
		t.Errorf("Expected idle after refresh with no new posts, got %q", got.Status)
	}

	rec, _ = env.do(t, http.MethodPost, "/rss/feeds/missing/refresh", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got %d", rec.Code)
	}
	rec, _ = env.do(t, http.MethodGet, "/rss/feeds/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown feed, got %d", rec.Code)
	}
}

func TestFormAndState(t *testing.T) {
	env := newTestEnv(t)

	rec, body := env.do(t, http.MethodPut, "/rss/form/fields/url", `{"value": "`+env.feeds.URL+`/rss"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	form := decode[models.Form](t, body["form"])
	if !form.Valid || form.ProcessState != models.ProcessStateFilling {
		t.Errorf("Expected valid filling form, got %+v", form)
	}

	_, body = env.do(t, http.MethodGet, "/rss/form", "")
	if got := decode[models.Form](t, body["form"]); got.Fields[models.FieldURL] != env.feeds.URL+"/rss" {
		t.Errorf("Expected stored url field, got %+v", got.Fields)
	}

	rec, body = env.do(t, http.MethodGet, "/rss/state?path=form.valid", "")
	if rec.Code != http.StatusOK || !decode[bool](t, body["value"]) {
		t.Errorf("Expected form.valid true, got %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = env.do(t, http.MethodGet, "/rss/state", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected whole state, got %d", rec.Code)
	}

	rec, body = env.do(t, http.MethodGet, "/rss/state?path=feeds.3.title", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for invalid path, got %d", rec.Code)
	}
	if appErr := decode[core.AppError](t, body["error"]); appErr.Code != core.ErrCodeNotFound {
		t.Errorf("Expected not found error, got %+v", appErr)
	}
}
