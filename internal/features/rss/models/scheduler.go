package models

import (
	"time"
)

// SchedulerConfig holds configuration for the poll scheduler
type SchedulerConfig struct {
	// PollInterval is the fixed delay between the end of one poll and the start
	// of the next for the same feed
	PollInterval time.Duration `json:"poll_interval"`
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		PollInterval: 5 * time.Second,
	}
}

// FetcherConfig holds configuration for the HTTP fetcher
type FetcherConfig struct {
	UserAgent string        `json:"user_agent"`
	Timeout   time.Duration `json:"timeout"`
}

// TaskState is the scheduler state of one feed
type TaskState string

const (
	TaskStateScheduled TaskState = "scheduled"
	TaskStateRunning   TaskState = "running"
	TaskStateCancelled TaskState = "cancelled"
)

// TaskInfo describes the poll task of one feed
type TaskInfo struct {
	FeedID     string    `json:"feed_id"`
	State      TaskState `json:"state"`
	Polls      int       `json:"polls"`
	LastPollAt time.Time `json:"last_poll_at,omitzero"`
}
