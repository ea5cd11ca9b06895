package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger wraps slog with per-feature children
type Logger struct {
	*slog.Logger
	level    *slog.LevelVar
	mu       *sync.Mutex
	features map[string]*slog.Logger
}

// LoggerOptions controls how NewLogger builds its handler
type LoggerOptions struct {
	Level  string // debug, info, warn, error
	Format string // text or json
	Writer io.Writer
}

// NewLogger creates a new logger instance
func NewLogger(opts LoggerOptions) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}

	level := new(slog.LevelVar)
	level.Set(ParseLevel(opts.Level))
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return &Logger{
		Logger:   slog.New(handler),
		level:    level,
		mu:       new(sync.Mutex),
		features: make(map[string]*slog.Logger),
	}
}

// NewDiscardLogger returns a logger that drops everything, for tests
func NewDiscardLogger() *Logger {
	return NewLogger(LoggerOptions{Writer: io.Discard, Level: "error"})
}

// ParseLevel maps a level name onto slog, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForFeature returns a logger specific to a feature
func (l *Logger) ForFeature(featureName string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	featureLogger, exists := l.features[featureName]
	if !exists {
		featureLogger = l.Logger.With("feature", featureName)
		l.features[featureName] = featureLogger
	}

	return l.derive(featureLogger)
}

// With returns a logger carrying the given attributes
func (l *Logger) With(args ...any) *Logger {
	return l.derive(l.Logger.With(args...))
}

// WithContext returns a logger with the request id from ctx, if any
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	if requestID := middleware.GetReqID(ctx); requestID != "" {
		return l.derive(l.Logger.With("request_id", requestID))
	}

	return l
}

// SetLevel changes the level of this logger and every logger derived from it
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// LogFeatureEvent logs a feature-specific event
func (l *Logger) LogFeatureEvent(featureName, event string, attrs ...any) {
	l.ForFeature(featureName).Info("Feature event", append([]any{"event", event}, attrs...)...)
}

func (l *Logger) derive(sl *slog.Logger) *Logger {
	return &Logger{
		Logger:   sl,
		level:    l.level,
		mu:       l.mu,
		features: l.features,
	}
}
