package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurilab/nuri-collector/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testNotice(id string) *model.Notice {
	return &model.Notice{
		NoticeID:  id,
		Title:     "사무용품 구매",
		OrgName:   "조달청",
		BidMethod: "전자입찰",
		DueDate:   "2026-09-15",
		Budget:    "50000000",
		RawData:   []byte(`{"bidPbancNo":"` + id + `"}`),
	}
}

// --- Save / dedup log ---

func TestSQLite_SaveNotice_MarksCollected(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	collected, err := st.IsCollected(ctx, "B-001")
	require.NoError(t, err)
	assert.False(t, collected)

	n := testNotice("B-001")
	require.NoError(t, st.SaveNotice(ctx, n))
	assert.False(t, n.CollectedAt.IsZero())

	collected, err = st.IsCollected(ctx, "B-001")
	require.NoError(t, err)
	assert.True(t, collected)

	count, err := st.CountNotices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLite_SaveNotice_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveNotice(ctx, testNotice("B-001")))

	updated := testNotice("B-001")
	updated.Title = "사무용품 구매 (수정)"
	require.NoError(t, st.SaveNotice(ctx, updated))

	count, err := st.CountNotices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	notices, err := st.ListNotices(ctx, NoticeFilter{})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "사무용품 구매 (수정)", notices[0].Title)
}

func TestSQLite_SaveNotice_Atomic(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Breaking the log table must prevent the notice row from landing too.
	_, err := st.db.ExecContext(ctx, `DROP TABLE scrap_log`)
	require.NoError(t, err)

	err = st.SaveNotice(ctx, testNotice("B-001"))
	require.Error(t, err)

	count, err := st.CountNotices(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSQLite_RecordFailure_ThenSuccess(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordFailure(ctx, "B-002", "missing title"))

	collected, err := st.IsCollected(ctx, "B-002")
	require.NoError(t, err)
	assert.False(t, collected, "a FAILED entry must not count as collected")

	ids, err := st.FailedNoticeIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"B-002"}, ids)

	// A later successful save replaces the FAILED entry.
	require.NoError(t, st.SaveNotice(ctx, testNotice("B-002")))

	collected, err = st.IsCollected(ctx, "B-002")
	require.NoError(t, err)
	assert.True(t, collected)

	ids, err = st.FailedNoticeIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// --- Listing ---

func TestSQLite_ListNotices_Filter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testNotice("B-001")
	b := testNotice("B-002")
	b.OrgName = "한국전력공사"
	require.NoError(t, st.SaveNotice(ctx, a))
	require.NoError(t, st.SaveNotice(ctx, b))

	notices, err := st.ListNotices(ctx, NoticeFilter{OrgName: "한국전력공사"})
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "B-002", notices[0].NoticeID)

	notices, err = st.ListNotices(ctx, NoticeFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, notices, 1)

	all, err := st.ListNotices(ctx, NoticeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, n := range all {
		assert.JSONEq(t, `{"bidPbancNo":"`+n.NoticeID+`"}`, string(n.RawData))
	}
}

// --- Sessions ---

func TestSQLite_SessionLifecycle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.StartSession(ctx)
	require.NoError(t, err)
	require.Positive(t, id)

	sess, err := st.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionRunning, sess.Status)
	assert.Nil(t, sess.FinishedAt)

	err = st.FinishSession(ctx, id, model.SessionStats{
		TotalFound:     10,
		TotalCollected: 7,
		TotalSkipped:   2,
		TotalErrors:    1,
	})
	require.NoError(t, err)

	sess, err = st.GetSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionCompleted, sess.Status)
	require.NotNil(t, sess.FinishedAt)
	assert.Equal(t, 10, sess.TotalFound)
	assert.Equal(t, 7, sess.TotalCollected)
	assert.Equal(t, 2, sess.TotalSkipped)
	assert.Equal(t, 1, sess.TotalErrors)
}

func TestSQLite_FinishSession_Unknown(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.FinishSession(context.Background(), 9999, model.SessionStats{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListSessions_NewestFirst(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.StartSession(ctx)
	require.NoError(t, err)
	second, err := st.StartSession(ctx)
	require.NoError(t, err)

	sessions, err := st.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second, sessions[0].ID)
	assert.Equal(t, first, sessions[1].ID)
}

// --- Stats ---

func TestSQLite_Stats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveNotice(ctx, testNotice("B-001")))
	require.NoError(t, st.SaveNotice(ctx, testNotice("B-002")))
	require.NoError(t, st.RecordFailure(ctx, "B-003", "bad payload"))

	totals, err := st.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Notices)
	assert.Equal(t, 2, totals.Succeeded)
	assert.Equal(t, 1, totals.Failed)
}
