package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"feedwatch/internal/core"
)

type echoFeature struct {
	*core.BaseFeature
	shutdown bool
}

func (f *echoFeature) Routes() []core.Route {
	return []core.Route{{
		Method: "GET",
		Path:   "/echo/{word}",
		Handler: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.URL.Path))
		},
	}}
}

func (f *echoFeature) Shutdown(ctx context.Context) error {
	f.shutdown = true
	return f.BaseFeature.Shutdown(ctx)
}

func newTestServer(t *testing.T) (*Server, *echoFeature) {
	t.Helper()

	logger := core.NewDiscardLogger()
	registry := core.NewRegistry(logger)
	feature := &echoFeature{BaseFeature: core.NewBaseFeature("echo", "Echo", true, logger)}
	if err := registry.Register(feature); err != nil {
		t.Fatalf("Failed to register feature: %v", err)
	}

	if err := registry.InitAll(context.Background()); err != nil {
		t.Fatalf("Failed to initialize features: %v", err)
	}

	config := &core.Config{Server: core.ServerConfig{Host: "127.0.0.1", Port: 4000, ShutdownTimeout: time.Second}}
	return New(config, logger, registry, nil), feature
}

func TestHealthCheck(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid health response: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "feedwatch" || body["database"] != "disabled" {
		t.Errorf("Unexpected health response: %v", body)
	}
}

func TestHealthCheckPingsDatabase(t *testing.T) {
	logger := core.NewDiscardLogger()
	db, err := core.OpenSQLite(context.Background(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	config := &core.Config{Server: core.ServerConfig{Host: "127.0.0.1", Port: 4000}}
	srv := New(config, logger, core.NewRegistry(logger), db)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"database":"ok"`) {
		t.Errorf("Expected healthy database, got %d %s", rec.Code, rec.Body.String())
	}

	db.Close()
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 after the database closed, got %d", rec.Code)
	}
}

func TestFeatureRoutesAreMounted(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/echo/hello", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "/echo/hello" {
		t.Errorf("Expected echo route, got %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/features", nil))
	var body struct {
		Features []core.FeatureStatus `json:"features"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid features response: %v", err)
	}
	if len(body.Features) != 1 || body.Features[0].Name != "echo" || !body.Features[0].Initialized {
		t.Errorf("Unexpected features: %+v", body.Features)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
	var body core.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid error response: %v", err)
	}
	if body.Success || body.Error == nil || body.Error.Code != core.ErrCodeNotFound {
		t.Errorf("Unexpected error response: %+v", body)
	}
}

func TestShutdownStopsFeatures(t *testing.T) {
	srv, feature := newTestServer(t)

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if !feature.shutdown {
		t.Error("Expected features to be shut down")
	}
}
