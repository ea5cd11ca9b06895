package store

import (
	"strings"
	"sync"
)

// Table fans a store's single change handler out to consumers registered by
// path pattern. A "*" segment in a pattern matches exactly one path segment,
// so "feeds.*" sees status changes while "feeds" sees additions.
type Table struct {
	mu     sync.RWMutex
	routes []route
}

type route struct {
	pattern []string
	fn      ChangeHandler
}

// NewTable creates an empty dispatch table
func NewTable() *Table {
	return &Table{}
}

// Handle registers fn for changes whose path matches pattern. Consumers run in
// registration order.
func (t *Table) Handle(pattern string, fn ChangeHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes = append(t.routes, route{pattern: strings.Split(pattern, "."), fn: fn})
}

// Dispatch delivers c to every matching consumer. Pass it to New as the
// store's change handler.
func (t *Table) Dispatch(c Change) {
	t.mu.RLock()
	routes := t.routes
	t.mu.RUnlock()

	segments := strings.Split(c.Path, ".")
	for _, r := range routes {
		if matchSegments(r.pattern, segments) {
			r.fn(c)
		}
	}
}

// Match reports whether path matches pattern
func Match(pattern, path string) bool {
	return matchSegments(strings.Split(pattern, "."), strings.Split(path, "."))
}

func matchSegments(pattern, path []string) bool {
	if len(pattern) != len(path) {
		return false
	}
	for i, segment := range pattern {
		if segment != "*" && segment != path[i] {
			return false
		}
	}
	return true
}
