package model

import "time"

// SessionStatus represents the lifecycle state of a collection session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "RUNNING"
	SessionCompleted SessionStatus = "COMPLETED"
)

// Session records the statistics of one crawler invocation. A session is
// opened RUNNING before the first page is fetched and closed COMPLETED with
// its final counts on every exit path, including fatal errors.
type Session struct {
	ID             int64         `json:"id"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     *time.Time    `json:"finished_at,omitempty"`
	TotalFound     int           `json:"total_found"`
	TotalCollected int           `json:"total_collected"`
	TotalSkipped   int           `json:"total_skipped"`
	TotalErrors    int           `json:"total_errors"`
	Status         SessionStatus `json:"status"`
}

// SessionStats carries the accumulated counts flushed to the store when a
// session finishes.
type SessionStats struct {
	TotalFound     int `json:"total_found"`
	TotalCollected int `json:"total_collected"`
	TotalSkipped   int `json:"total_skipped"`
	TotalErrors    int `json:"total_errors"`
}
