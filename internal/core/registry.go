package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry owns the lifecycle of every feature of the service
type Registry struct {
	mutex       sync.RWMutex
	features    map[string]Feature
	initialized []Feature
	logger      *Logger
}

// NewRegistry creates a new feature registry
func NewRegistry(logger *Logger) *Registry {
	return &Registry{
		features: make(map[string]Feature),
		logger:   logger,
	}
}

// Register adds a feature to the registry
func (r *Registry) Register(feature Feature) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	name := feature.Name()
	if _, exists := r.features[name]; exists {
		return NewFeatureError(name, "feature already registered", nil)
	}

	r.features[name] = feature
	r.logger.Info("Registered feature", "name", name, "enabled", feature.Enabled())
	return nil
}

// Get retrieves a feature by name
func (r *Registry) Get(name string) (Feature, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	feature, exists := r.features[name]
	return feature, exists
}

// List returns all registered features sorted by name
func (r *Registry) List() []Feature {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	features := make([]Feature, 0, len(r.features))
	for _, feature := range r.features {
		features = append(features, feature)
	}

	slices.SortFunc(features, func(a, b Feature) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return features
}

// ListEnabled returns only enabled features, sorted by name
func (r *Registry) ListEnabled() []Feature {
	return slices.DeleteFunc(r.List(), func(f Feature) bool { return !f.Enabled() })
}

// InitAll initializes enabled features in name order and stops at the first
// failure. Features initialized before the failure stay initialized, so
// ShutdownAll still stops them.
func (r *Registry) InitAll(ctx context.Context) error {
	features := r.ListEnabled()
	r.logger.Info("Initializing features", "count", len(features))

	for _, feature := range features {
		if err := feature.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize feature %s: %w", feature.Name(), err)
		}

		r.mutex.Lock()
		r.initialized = append(r.initialized, feature)
		r.mutex.Unlock()

		r.logger.LogFeatureEvent(feature.Name(), "initialized")
	}

	return nil
}

// ShutdownAll shuts down initialized features in reverse order, continuing
// past failures
func (r *Registry) ShutdownAll(ctx context.Context) error {
	r.mutex.Lock()
	features := r.initialized
	r.initialized = nil
	r.mutex.Unlock()

	r.logger.Info("Shutting down features", "count", len(features))

	var errs []error
	for _, feature := range slices.Backward(features) {
		if err := feature.Shutdown(ctx); err != nil {
			r.logger.Error("Failed to shutdown feature", "name", feature.Name(), "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// GetAllRoutes returns all routes from enabled features
func (r *Registry) GetAllRoutes() []Route {
	var routes []Route
	for _, feature := range r.ListEnabled() {
		routes = append(routes, feature.Routes()...)
	}
	return routes
}

// FeatureStatus represents the status of a feature
type FeatureStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Initialized bool   `json:"initialized"`
}

// GetFeatureStatus returns the status of all features
func (r *Registry) GetFeatureStatus() []FeatureStatus {
	r.mutex.RLock()
	initialized := make(map[string]bool, len(r.initialized))
	for _, feature := range r.initialized {
		initialized[feature.Name()] = true
	}
	r.mutex.RUnlock()

	features := r.List()
	status := make([]FeatureStatus, 0, len(features))
	for _, feature := range features {
		status = append(status, FeatureStatus{
			Name:        feature.Name(),
			Description: feature.Description(),
			Enabled:     feature.Enabled(),
			Initialized: initialized[feature.Name()],
		})
	}
	return status
}
