package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/nurilab/nuri-collector/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it,
// which keeps the Postgres store unit-testable without a server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS nuri_notices (
	notice_id      TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	org_name       TEXT,
	notice_type    TEXT,
	bid_method     TEXT,
	due_date       TEXT,
	announce_date  TEXT,
	budget         TEXT,
	demand_company TEXT,
	detail_url     TEXT,
	raw_data       JSONB,
	collected_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS scrap_log (
	id           BIGSERIAL PRIMARY KEY,
	notice_id    TEXT NOT NULL UNIQUE,
	status       TEXT NOT NULL,
	error_msg    TEXT,
	collected_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS crawl_sessions (
	id              BIGSERIAL PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ,
	total_found     INTEGER NOT NULL DEFAULT 0,
	total_collected INTEGER NOT NULL DEFAULT 0,
	total_skipped   INTEGER NOT NULL DEFAULT 0,
	total_errors    INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scrap_log_status ON scrap_log(status);
CREATE INDEX IF NOT EXISTS idx_nuri_notices_org_name ON nuri_notices(org_name);
CREATE INDEX IF NOT EXISTS idx_nuri_notices_due_date ON nuri_notices(due_date);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) IsCollected(ctx context.Context, noticeID string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM scrap_log WHERE notice_id = $1 AND status = $2`,
		noticeID, string(model.ScrapSuccess),
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: check collected %s", noticeID)
	}
	return true, nil
}

// SaveNotice upserts the notice and its SUCCESS scrap-log entry in one
// transaction.
func (s *PostgresStore) SaveNotice(ctx context.Context, n *model.Notice) error {
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	raw := n.RawData
	if len(raw) == 0 {
		raw = []byte("{}")
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO nuri_notices
			(notice_id, title, org_name, notice_type, bid_method,
			 due_date, announce_date, budget, demand_company, detail_url,
			 raw_data, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (notice_id) DO UPDATE SET
			title = EXCLUDED.title,
			org_name = EXCLUDED.org_name,
			notice_type = EXCLUDED.notice_type,
			bid_method = EXCLUDED.bid_method,
			due_date = EXCLUDED.due_date,
			announce_date = EXCLUDED.announce_date,
			budget = EXCLUDED.budget,
			demand_company = EXCLUDED.demand_company,
			detail_url = EXCLUDED.detail_url,
			raw_data = EXCLUDED.raw_data,
			collected_at = EXCLUDED.collected_at`,
		n.NoticeID, n.Title, n.OrgName, n.NoticeType, n.BidMethod,
		n.DueDate, n.AnnounceDate, n.Budget, n.DemandCompany, n.DetailURL,
		raw, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: upsert notice %s", n.NoticeID)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO scrap_log (notice_id, status, error_msg, collected_at)
		VALUES ($1, $2, NULL, $3)
		ON CONFLICT (notice_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_msg = NULL,
			collected_at = EXCLUDED.collected_at`,
		n.NoticeID, string(model.ScrapSuccess), now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: log success %s", n.NoticeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrapf(err, "postgres: commit save %s", n.NoticeID)
	}
	n.CollectedAt = now
	return nil
}

func (s *PostgresStore) RecordFailure(ctx context.Context, noticeID, reason string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrap_log (notice_id, status, error_msg, collected_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (notice_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_msg = EXCLUDED.error_msg,
			collected_at = EXCLUDED.collected_at`,
		noticeID, string(model.ScrapFailed), reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: record failure %s", noticeID)
}

func (s *PostgresStore) FailedNoticeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT notice_id FROM scrap_log WHERE status = $1 ORDER BY collected_at`,
		string(model.ScrapFailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: failed notice ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan failed id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate failed ids")
}

func (s *PostgresStore) ListNotices(ctx context.Context, filter NoticeFilter) ([]model.Notice, error) {
	query := `SELECT notice_id, title, org_name, notice_type, bid_method,
		due_date, announce_date, budget, demand_company, detail_url,
		raw_data, collected_at FROM nuri_notices`
	var args []any

	if filter.OrgName != "" {
		query += ` WHERE org_name = $1`
		args = append(args, filter.OrgName)
	}
	query += ` ORDER BY collected_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + placeholderNum(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + placeholderNum(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list notices")
	}
	defer rows.Close()

	var notices []model.Notice
	for rows.Next() {
		n, err := scanNoticePg(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, *n)
	}
	return notices, eris.Wrap(rows.Err(), "postgres: list notices iterate")
}

func (s *PostgresStore) CountNotices(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM nuri_notices`).Scan(&n)
	return n, eris.Wrap(err, "postgres: count notices")
}

func (s *PostgresStore) StartSession(ctx context.Context) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO crawl_sessions (started_at, status) VALUES ($1, $2) RETURNING id`,
		time.Now().UTC(), string(model.SessionRunning),
	).Scan(&id)
	return id, eris.Wrap(err, "postgres: start session")
}

func (s *PostgresStore) FinishSession(ctx context.Context, sessionID int64, stats model.SessionStats) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crawl_sessions
		SET finished_at = $1,
			total_found = $2,
			total_collected = $3,
			total_skipped = $4,
			total_errors = $5,
			status = $6
		WHERE id = $7`,
		time.Now().UTC(),
		stats.TotalFound, stats.TotalCollected, stats.TotalSkipped, stats.TotalErrors,
		string(model.SessionCompleted), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish session %d", sessionID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("session not found: %d", sessionID)
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID int64) (*model.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, total_found, total_collected,
			total_skipped, total_errors, status
		FROM crawl_sessions WHERE id = $1`,
		sessionID,
	)
	sess, err := scanSessionPg(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("session not found: %d", sessionID)
	}
	return sess, err
}

func (s *PostgresStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, started_at, finished_at, total_found, total_collected,
			total_skipped, total_errors, status
		FROM crawl_sessions ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSessionPg(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM nuri_notices),
			(SELECT COUNT(*) FROM scrap_log WHERE status = $1),
			(SELECT COUNT(*) FROM scrap_log WHERE status = $2)`,
		string(model.ScrapSuccess), string(model.ScrapFailed),
	).Scan(&t.Notices, &t.Succeeded, &t.Failed)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &t, nil
}

// helpers

func placeholderNum(n int) string {
	return strconv.Itoa(n)
}

func scanNoticePg(row pgx.Row) (*model.Notice, error) {
	var n model.Notice
	var orgName, noticeType, bidMethod, dueDate, announceDate *string
	var budget, demandCompany, detailURL *string
	var raw []byte

	err := row.Scan(&n.NoticeID, &n.Title, &orgName, &noticeType, &bidMethod,
		&dueDate, &announceDate, &budget, &demandCompany, &detailURL,
		&raw, &n.CollectedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan notice")
	}

	n.OrgName = deref(orgName)
	n.NoticeType = deref(noticeType)
	n.BidMethod = deref(bidMethod)
	n.DueDate = deref(dueDate)
	n.AnnounceDate = deref(announceDate)
	n.Budget = deref(budget)
	n.DemandCompany = deref(demandCompany)
	n.DetailURL = deref(detailURL)
	n.RawData = raw
	return &n, nil
}

func scanSessionPg(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	var finished *time.Time

	err := row.Scan(&sess.ID, &sess.StartedAt, &finished,
		&sess.TotalFound, &sess.TotalCollected, &sess.TotalSkipped,
		&sess.TotalErrors, &sess.Status)
	if err != nil {
		return nil, err
	}
	sess.FinishedAt = finished
	return &sess, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
