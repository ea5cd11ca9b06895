// Package diff computes which entities of a collection are new relative to a
// previous version of it.
package diff

import (
	"feedwatch/internal/features/rss/models"
)

// By returns the elements of next whose key does not occur in previous, in the
// order they appear in next. The result is never nil.
func By[T any, K comparable](previous, next []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(previous))
	for _, item := range previous {
		seen[key(item)] = struct{}{}
	}

	added := []T{}
	for _, item := range next {
		if _, ok := seen[key(item)]; !ok {
			added = append(added, item)
		}
	}
	return added
}

// FeedsByID returns the feeds of next that were not in previous
func FeedsByID(previous, next []models.Feed) []models.Feed {
	return By(previous, next, func(f models.Feed) string { return f.ID })
}

// PostsByContent returns the posts of next whose (feed, title) pair was not in
// previous
func PostsByContent(previous, next []models.Post) []models.Post {
	return By(previous, next, models.Post.Key)
}

// PostsByTitle compares posts by title alone. Both sides must already be
// scoped to a single feed.
func PostsByTitle(previous, next []models.Post) []models.Post {
	return By(previous, next, func(p models.Post) string { return p.Title })
}

// Unique drops every element of items whose key repeats an earlier one
func Unique[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := []T{}
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
