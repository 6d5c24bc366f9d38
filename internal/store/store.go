package store

import (
	"context"

	"github.com/nurilab/nuri-collector/internal/model"
)

// NoticeFilter specifies criteria for listing notices.
type NoticeFilter struct {
	OrgName string `json:"org_name,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Totals summarizes the cumulative state of the store across all runs.
type Totals struct {
	Notices   int `json:"total_notices"`
	Succeeded int `json:"successful"`
	Failed    int `json:"failed"`
}

// Store defines the persistence interface for the collection engine. It is
// the sole owner of persisted state; one crawler process owns a store at a
// time and all writes go through it.
type Store interface {
	// Dedup log
	IsCollected(ctx context.Context, noticeID string) (bool, error)
	RecordFailure(ctx context.Context, noticeID, reason string) error
	FailedNoticeIDs(ctx context.Context) ([]string, error)

	// Notices. SaveNotice performs the atomic dual-write: the canonical
	// notice row and its SUCCESS scrap-log entry commit together or not
	// at all.
	SaveNotice(ctx context.Context, n *model.Notice) error
	ListNotices(ctx context.Context, filter NoticeFilter) ([]model.Notice, error)
	CountNotices(ctx context.Context) (int, error)

	// Sessions
	StartSession(ctx context.Context) (int64, error)
	FinishSession(ctx context.Context, sessionID int64, stats model.SessionStats) error
	GetSession(ctx context.Context, sessionID int64) (*model.Session, error)
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)

	// Aggregates
	Stats(ctx context.Context) (*Totals, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
