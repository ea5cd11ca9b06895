package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"feedwatch/internal/core"
)

const healthPingTimeout = 2 * time.Second

// SystemHandler serves the endpoints that belong to no feature
type SystemHandler struct {
	logger   *core.Logger
	registry *core.Registry
	db       *core.Database
}

// NewSystemHandler creates a new system handler. db may be nil.
func NewSystemHandler(logger *core.Logger, registry *core.Registry, db *core.Database) *SystemHandler {
	return &SystemHandler{
		logger:   logger,
		registry: registry,
		db:       db,
	}
}

// HealthCheckHandler provides a health check endpoint. It answers 503 when the
// database does not respond.
func (h *SystemHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	status, code, database := "ok", http.StatusOK, "disabled"
	if h.db != nil {
		database = "ok"
		if err := h.db.PingWithTimeout(healthPingTimeout); err != nil {
			h.logger.WithContext(r.Context()).Error("Health check ping failed", "error", err)
			status, code, database = "degraded", http.StatusServiceUnavailable, "unavailable"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{
		"status":   status,
		"service":  "feedwatch",
		"version":  "1.0.0",
		"database": database,
	})
}

// FeaturesHandler lists the registered features
func (h *SystemHandler) FeaturesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"features": h.registry.GetFeatureStatus(),
	})
}

func (h *SystemHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	h.logger.WithContext(r.Context()).Debug("Route not found", "method", r.Method, "path", r.URL.Path)
	core.HandleError(w, core.NewNotFoundError("route not found: "+r.URL.Path, nil))
}
