// Package crawler drives the incremental collection loop: fetch a listing
// page, normalize each item, consult the dedup log, optionally enrich from the
// detail endpoint, validate, and persist. Collection is strictly sequential;
// the only suspension points are the configured delays and the client's
// backoff waits.
package crawler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/nurilab/nuri-collector/internal/model"
	"github.com/nurilab/nuri-collector/internal/normalize"
	"github.com/nurilab/nuri-collector/internal/store"
)

// Fetcher is the slice of the API client the crawler depends on.
type Fetcher interface {
	FetchNoticeList(ctx context.Context, page, perPage, daysBack int) (map[string]any, error)
	FetchNoticeDetail(ctx context.Context, bidNo, bidOrd string) (map[string]any, error)
}

// Config controls one collection run.
type Config struct {
	MaxPages       int
	RecordsPerPage int
	DaysBack       int
	FetchDetails   bool
	PageDelay      time.Duration
	DetailDelay    time.Duration
}

// Validate enforces the configuration bounds. Invalid configuration is the
// one failure that is fatal to a run before it starts.
func (c Config) Validate() error {
	if c.MaxPages < 1 {
		return eris.Errorf("crawler: max pages must be >= 1, got %d", c.MaxPages)
	}
	if c.RecordsPerPage < 1 || c.RecordsPerPage > 100 {
		return eris.Errorf("crawler: records per page must be in 1..100, got %d", c.RecordsPerPage)
	}
	return nil
}

// Crawler orchestrates client, normalizer, and store for a run.
type Crawler struct {
	client Fetcher
	store  store.Store
	cfg    Config

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Crawler. The store must already be migrated.
func New(client Fetcher, st store.Store, cfg Config) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Crawler{
		client: client,
		store:  st,
		cfg:    cfg,
		sleep:  sleepCtx,
	}, nil
}

// Run executes one collection session. The session row is opened before the
// first fetch and closed with the accumulated counts on every exit path, so a
// fatal error still leaves a COMPLETED session with partial statistics.
func (c *Crawler) Run(ctx context.Context) (*Stats, error) {
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	sessionID, err := c.store.StartSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "crawler: start session")
	}

	log.Info("collection session started",
		zap.Int64("session_id", sessionID),
		zap.Int("max_pages", c.cfg.MaxPages),
		zap.Bool("fetch_details", c.cfg.FetchDetails),
	)

	stats := &Stats{}
	defer func() {
		// The session row must close even when the run context is cancelled.
		finishCtx := context.WithoutCancel(ctx)
		if err := c.store.FinishSession(finishCtx, sessionID, stats.SessionStats()); err != nil {
			log.Error("finish session failed", zap.Int64("session_id", sessionID), zap.Error(err))
		}
	}()

	for page := 1; page <= c.cfg.MaxPages; page++ {
		if ctx.Err() != nil {
			log.Warn("run cancelled between pages", zap.Int("page", page))
			return stats, eris.Wrap(ctx.Err(), "crawler: cancelled")
		}

		c.processPage(ctx, log, page, stats)

		if page < c.cfg.MaxPages && c.cfg.PageDelay > 0 {
			if err := c.sleep(ctx, c.cfg.PageDelay); err != nil {
				return stats, eris.Wrap(err, "crawler: cancelled")
			}
		}
	}

	log.Info("collection session finished",
		zap.Int64("session_id", sessionID),
		zap.Int("found", stats.TotalFound),
		zap.Int("collected", stats.TotalCollected),
		zap.Int("skipped", stats.TotalSkipped),
		zap.Int("errors", stats.TotalErrors),
	)
	return stats, nil
}

// RunInterval repeats Run until the context is cancelled, sleeping interval
// between runs. Cancellation is checked at run boundaries and between pages;
// it never interrupts a save.
func (c *Crawler) RunInterval(ctx context.Context, interval time.Duration) error {
	for {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "crawler: interval mode stopped")
		}

		stats, err := c.Run(ctx)
		if err != nil {
			zap.L().Error("interval run failed", zap.Error(err))
		} else {
			zap.L().Info("interval run complete",
				zap.Int("collected", stats.TotalCollected),
				zap.Duration("next_run_in", interval),
			)
		}

		if err := c.sleep(ctx, interval); err != nil {
			return eris.Wrap(err, "crawler: interval mode stopped")
		}
	}
}

// processPage fetches one listing page and runs each raw item through the
// pipeline. A page-level fetch failure is isolated: it marks the page failed
// and the run moves on.
func (c *Crawler) processPage(ctx context.Context, log *zap.Logger, page int, stats *Stats) {
	payload, err := c.client.FetchNoticeList(ctx, page, c.cfg.RecordsPerPage, c.cfg.DaysBack)
	if err != nil {
		log.Warn("page fetch failed", zap.Int("page", page), zap.Error(err))
		stats.PagesFailed++
		return
	}
	stats.PagesProcessed++

	raws := normalize.ExtractNotices(payload)
	if len(raws) == 0 {
		log.Debug("page yielded no notices", zap.Int("page", page))
		return
	}

	log.Info("page fetched", zap.Int("page", page), zap.Int("notices", len(raws)))
	stats.TotalFound += len(raws)

	for _, raw := range raws {
		c.processNotice(ctx, log, raw, stats)
	}
}

// processNotice takes one raw item through normalize, dedup check, optional
// detail enrichment, validation, and the atomic save. Failures stay local to
// the item.
func (c *Crawler) processNotice(ctx context.Context, log *zap.Logger, raw map[string]any, stats *Stats) {
	n := normalize.ToNotice(raw)
	if n == nil {
		log.Debug("raw item had no notice id, skipping")
		stats.TotalSkipped++
		return
	}

	done, err := c.store.IsCollected(ctx, n.NoticeID)
	if err != nil {
		log.Error("dedup check failed", zap.String("notice_id", n.NoticeID), zap.Error(err))
		stats.TotalErrors++
		return
	}
	if done {
		log.Debug("already collected, skipping", zap.String("notice_id", n.NoticeID))
		stats.TotalSkipped++
		return
	}

	if c.cfg.FetchDetails {
		c.enrichDetail(ctx, log, n)
	}

	if err := normalize.Validate(n); err != nil {
		log.Warn("validation failed",
			zap.String("notice_id", n.NoticeID),
			zap.Error(err),
		)
		c.recordFailure(ctx, log, n.NoticeID, err)
		stats.TotalErrors++
		return
	}

	if err := c.store.SaveNotice(ctx, n); err != nil {
		log.Error("save failed", zap.String("notice_id", n.NoticeID), zap.Error(err))
		c.recordFailure(ctx, log, n.NoticeID, err)
		stats.TotalErrors++
		return
	}

	stats.TotalCollected++
	log.Debug("notice collected", zap.String("notice_id", n.NoticeID))
}

// enrichDetail fetches and merges the detail payload. Enrichment is
// best-effort: any failure leaves the list-level record intact. The fixed
// delay applies regardless of outcome to bound request rate toward the detail
// endpoint.
func (c *Crawler) enrichDetail(ctx context.Context, log *zap.Logger, n *model.Notice) {
	detail, err := c.client.FetchNoticeDetail(ctx, n.NoticeID, "")
	if err != nil {
		log.Warn("detail fetch failed, keeping list-level record",
			zap.String("notice_id", n.NoticeID),
			zap.Error(err),
		)
	} else {
		normalize.MergeDetail(n, detail)
	}

	if c.cfg.DetailDelay > 0 {
		_ = c.sleep(ctx, c.cfg.DetailDelay)
	}
}

func (c *Crawler) recordFailure(ctx context.Context, log *zap.Logger, noticeID string, cause error) {
	if err := c.store.RecordFailure(ctx, noticeID, cause.Error()); err != nil {
		log.Error("record failure failed", zap.String("notice_id", noticeID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
