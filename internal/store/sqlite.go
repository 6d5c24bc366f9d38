package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/nurilab/nuri-collector/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// The parent directory is created if missing; ":memory:" works for tests.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
			}
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
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
	raw_data       TEXT,
	collected_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS scrap_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	notice_id    TEXT NOT NULL UNIQUE,
	status       TEXT NOT NULL,
	error_msg    TEXT,
	collected_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS crawl_sessions (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at      DATETIME NOT NULL,
	finished_at     DATETIME,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) IsCollected(ctx context.Context, noticeID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM scrap_log WHERE notice_id = ? AND status = ?`,
		noticeID, string(model.ScrapSuccess),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: check collected %s", noticeID)
	}
	return true, nil
}

// SaveNotice upserts the notice and its SUCCESS scrap-log entry in one
// transaction. If either write fails, neither is committed.
func (s *SQLiteStore) SaveNotice(ctx context.Context, n *model.Notice) error {
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO nuri_notices
			(notice_id, title, org_name, notice_type, bid_method,
			 due_date, announce_date, budget, demand_company, detail_url,
			 raw_data, collected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(notice_id) DO UPDATE SET
			title = excluded.title,
			org_name = excluded.org_name,
			notice_type = excluded.notice_type,
			bid_method = excluded.bid_method,
			due_date = excluded.due_date,
			announce_date = excluded.announce_date,
			budget = excluded.budget,
			demand_company = excluded.demand_company,
			detail_url = excluded.detail_url,
			raw_data = excluded.raw_data,
			collected_at = excluded.collected_at`,
		n.NoticeID, n.Title, n.OrgName, n.NoticeType, n.BidMethod,
		n.DueDate, n.AnnounceDate, n.Budget, n.DemandCompany, n.DetailURL,
		string(n.RawData), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: upsert notice %s", n.NoticeID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO scrap_log (notice_id, status, error_msg, collected_at)
		VALUES (?, ?, NULL, ?)
		ON CONFLICT(notice_id) DO UPDATE SET
			status = excluded.status,
			error_msg = NULL,
			collected_at = excluded.collected_at`,
		n.NoticeID, string(model.ScrapSuccess), now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: log success %s", n.NoticeID)
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrapf(err, "sqlite: commit save %s", n.NoticeID)
	}
	n.CollectedAt = now
	return nil
}

// RecordFailure upserts a FAILED scrap-log entry outside any save
// transaction. A later successful save replaces it with SUCCESS.
func (s *SQLiteStore) RecordFailure(ctx context.Context, noticeID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scrap_log (notice_id, status, error_msg, collected_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(notice_id) DO UPDATE SET
			status = excluded.status,
			error_msg = excluded.error_msg,
			collected_at = excluded.collected_at`,
		noticeID, string(model.ScrapFailed), reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: record failure %s", noticeID)
}

func (s *SQLiteStore) FailedNoticeIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT notice_id FROM scrap_log WHERE status = ? ORDER BY collected_at`,
		string(model.ScrapFailed),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: failed notice ids")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failed id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate failed ids")
}

func (s *SQLiteStore) ListNotices(ctx context.Context, filter NoticeFilter) ([]model.Notice, error) {
	query := `SELECT notice_id, title, org_name, notice_type, bid_method,
		due_date, announce_date, budget, demand_company, detail_url,
		raw_data, collected_at FROM nuri_notices WHERE 1=1`
	var args []any

	if filter.OrgName != "" {
		query += ` AND org_name = ?`
		args = append(args, filter.OrgName)
	}
	query += ` ORDER BY collected_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list notices")
	}
	defer rows.Close()

	var notices []model.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, *n)
	}
	return notices, eris.Wrap(rows.Err(), "sqlite: list notices iterate")
}

func (s *SQLiteStore) CountNotices(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nuri_notices`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count notices")
}

func (s *SQLiteStore) StartSession(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO crawl_sessions (started_at, status) VALUES (?, ?)`,
		time.Now().UTC(), string(model.SessionRunning),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: start session")
	}
	id, err := res.LastInsertId()
	return id, eris.Wrap(err, "sqlite: session id")
}

func (s *SQLiteStore) FinishSession(ctx context.Context, sessionID int64, stats model.SessionStats) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE crawl_sessions
		SET finished_at = ?,
			total_found = ?,
			total_collected = ?,
			total_skipped = ?,
			total_errors = ?,
			status = ?
		WHERE id = ?`,
		time.Now().UTC(),
		stats.TotalFound, stats.TotalCollected, stats.TotalSkipped, stats.TotalErrors,
		string(model.SessionCompleted), sessionID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish session %d", sessionID)
	}
	return checkRowsAffected(res, "session", sessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID int64) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, total_found, total_collected,
			total_skipped, total_errors, status
		FROM crawl_sessions WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, total_found, total_collected,
			total_skipped, total_errors, status
		FROM crawl_sessions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Totals, error) {
	var t Totals
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nuri_notices`).Scan(&t.Notices); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats notices")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scrap_log WHERE status = ?`, string(model.ScrapSuccess),
	).Scan(&t.Succeeded); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats succeeded")
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scrap_log WHERE status = ?`, string(model.ScrapFailed),
	).Scan(&t.Failed); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats failed")
	}
	return &t, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %d", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanNotice(row scannable) (*model.Notice, error) {
	var n model.Notice
	var orgName, noticeType, bidMethod, dueDate, announceDate sql.NullString
	var budget, demandCompany, detailURL, rawData sql.NullString

	err := row.Scan(&n.NoticeID, &n.Title, &orgName, &noticeType, &bidMethod,
		&dueDate, &announceDate, &budget, &demandCompany, &detailURL,
		&rawData, &n.CollectedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("notice not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan notice")
	}

	n.OrgName = orgName.String
	n.NoticeType = noticeType.String
	n.BidMethod = bidMethod.String
	n.DueDate = dueDate.String
	n.AnnounceDate = announceDate.String
	n.Budget = budget.String
	n.DemandCompany = demandCompany.String
	n.DetailURL = detailURL.String
	if rawData.Valid && rawData.String != "" {
		n.RawData = []byte(rawData.String)
	}
	return &n, nil
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var finished sql.NullTime

	err := row.Scan(&sess.ID, &sess.StartedAt, &finished,
		&sess.TotalFound, &sess.TotalCollected, &sess.TotalSkipped,
		&sess.TotalErrors, &sess.Status)
	if err == sql.ErrNoRows {
		return nil, eris.New("session not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}
	if finished.Valid {
		sess.FinishedAt = &finished.Time
	}
	return &sess, nil
}
