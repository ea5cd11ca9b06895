package models

import (
	"feedwatch/internal/core"
)

// FeedStatus is the polling status of a feed
type FeedStatus string

const (
	FeedStatusIdle     FeedStatus = "idle"
	FeedStatusUpdating FeedStatus = "updating"
	FeedStatusUpdated  FeedStatus = "updated"
	FeedStatusFailed   FeedStatus = "failed"
)

// Valid reports whether s is one of the known statuses
func (s FeedStatus) Valid() bool {
	switch s {
	case FeedStatusIdle, FeedStatusUpdating, FeedStatusUpdated, FeedStatusFailed:
		return true
	}
	return false
}

// Feed represents a subscribed RSS source.
//
// ID, Title and RequestURL never change after creation; Status and LastError
// are rewritten by every poll.
type Feed struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	RequestURL string     `json:"requestUrl"`
	Status     FeedStatus `json:"status"`
	// LastError is set only while Status is failed
	LastError *core.AppError `json:"lastError,omitempty"`
}

// Clone returns a copy that shares no pointers with f
func (f Feed) Clone() Feed {
	if f.LastError != nil {
		errCopy := *f.LastError
		f.LastError = &errCopy
	}
	return f
}
