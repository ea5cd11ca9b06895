package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feedwatch/internal/core"
	"feedwatch/internal/features/rss/services"
	"feedwatch/internal/features/rss/store"
)

const maxBodyBytes = 1 << 20

// Handlers contains all RSS feature HTTP handlers
type Handlers struct {
	logger    *core.Logger
	store     *store.Store
	pipeline  *services.Pipeline
	scheduler *services.Scheduler
}

// NewHandlers creates a new handlers instance
func NewHandlers(logger *core.Logger, st *store.Store, pipeline *services.Pipeline, scheduler *services.Scheduler) *Handlers {
	return &Handlers{
		logger:    logger,
		store:     st,
		pipeline:  pipeline,
		scheduler: scheduler,
	}
}

// Routes returns the HTTP routes served by these handlers
func (h *Handlers) Routes() []core.Route {
	return []core.Route{
		// Feeds
		{Method: "GET", Path: "/rss/feeds", Handler: h.ListFeeds},
		{Method: "POST", Path: "/rss/feeds", Handler: h.CreateFeed},
		{Method: "GET", Path: "/rss/feeds/{id}", Handler: h.GetFeed},
		{Method: "GET", Path: "/rss/feeds/{id}/posts", Handler: h.ListFeedPosts},
		{Method: "POST", Path: "/rss/feeds/{id}/refresh", Handler: h.RefreshFeed},

		// Posts
		{Method: "GET", Path: "/rss/posts", Handler: h.ListPosts},

		// Subscription form
		{Method: "GET", Path: "/rss/form", Handler: h.GetForm},
		{Method: "PUT", Path: "/rss/form/fields/{name}", Handler: h.SetFormField},

		// Introspection
		{Method: "GET", Path: "/rss/state", Handler: h.GetState},
		{Method: "GET", Path: "/rss/scheduler", Handler: h.ListTasks},
	}
}

type createFeedRequest struct {
	URL string `json:"url"`
}

type fieldRequest struct {
	Value string `json:"value"`
}

// Feed handlers

func (h *Handlers) ListFeeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"feeds": h.store.Feeds()})
}

// CreateFeed subscribes to a feed
func (h *Handlers) CreateFeed(w http.ResponseWriter, r *http.Request) {
	var req createFeedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		core.HandleError(w, err)
		return
	}

	feed, err := h.pipeline.Submit(r.Context(), req.URL)
	if err != nil {
		core.HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"feed": feed})
}

func (h *Handlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	feed, ok := h.store.Feed(id)
	if !ok {
		core.HandleError(w, core.NewNotFoundError("feed not found: "+id, nil))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"feed": feed})
}

func (h *Handlers) ListFeedPosts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.store.Feed(id); !ok {
		core.HandleError(w, core.NewNotFoundError("feed not found: "+id, nil))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": h.store.PostsByFeed(id)})
}

// RefreshFeed runs one poll of the feed now and returns its new status
func (h *Handlers) RefreshFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.pipeline.Refresh(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"feed": feed})
}

// Post handlers

func (h *Handlers) ListPosts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"posts": h.store.Posts()})
}

// Form handlers

func (h *Handlers) GetForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"form": h.store.Form()})
}

// SetFormField records one field edit and returns the revalidated form
func (h *Handlers) SetFormField(w http.ResponseWriter, r *http.Request) {
	var req fieldRequest
	if err := decodeJSON(w, r, &req); err != nil {
		core.HandleError(w, err)
		return
	}

	form := h.pipeline.Input(r.Context(), chi.URLParam(r, "name"), req.Value)
	writeJSON(w, http.StatusOK, map[string]any{"form": form})
}

// State handlers

// GetState returns the value at ?path=, or the whole tree when path is empty
func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	value, err := h.store.Get(path)
	if err != nil {
		var appErr *core.AppError
		if errors.As(err, &appErr) && appErr.Code == core.ErrCodeInvalidPath {
			err = core.NewNotFoundError(appErr.Message, err)
		}
		core.HandleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"path": path, "value": value})
}

func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tasks": h.scheduler.Tasks()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.NewValidationError("invalid request body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
