package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNotices_ContainerKeys(t *testing.T) {
	item := map[string]any{"bidPbancNo": "B-001"}

	for _, key := range []string{"result", "list", "resultList", "data", "rows"} {
		payload := map[string]any{key: []any{item}}
		notices := ExtractNotices(payload)
		require.Len(t, notices, 1, "container key %q", key)
		assert.Equal(t, "B-001", notices[0]["bidPbancNo"])
	}
}

func TestExtractNotices_PriorityOrder(t *testing.T) {
	payload := map[string]any{
		"rows":   []any{map[string]any{"bidPbancNo": "from-rows"}},
		"result": []any{map[string]any{"bidPbancNo": "from-result"}},
	}
	notices := ExtractNotices(payload)
	require.Len(t, notices, 1)
	assert.Equal(t, "from-result", notices[0]["bidPbancNo"])
}

func TestExtractNotices_UnrecognizedShape(t *testing.T) {
	assert.Nil(t, ExtractNotices(nil))
	assert.Nil(t, ExtractNotices(map[string]any{"status": "ok"}))
	// Container present but not a list.
	assert.Nil(t, ExtractNotices(map[string]any{"result": "oops"}))
}

func TestExtractNotices_EmptyContainer(t *testing.T) {
	notices := ExtractNotices(map[string]any{"result": []any{}})
	require.NotNil(t, notices)
	assert.Empty(t, notices)
}

func TestExtractNotices_SkipsNonObjectItems(t *testing.T) {
	payload := map[string]any{"list": []any{
		map[string]any{"bidPbancNo": "B-001"},
		"garbage",
		42,
	}}
	notices := ExtractNotices(payload)
	assert.Len(t, notices, 1)
}

func TestToNotice_AliasChains(t *testing.T) {
	raw := map[string]any{
		"bidNo":       "B-123",
		"pbancNm":     "전산장비 유지보수",
		"instNm":      "한국도로공사",
		"bidMthdNm":   "일반경쟁",
		"bidClseDt":   "20260915",
		"regDt":       "20260820",
		"presmptPrc":  float64(150000000),
		"dmndCompNm":  "수요기관A",
		"extraNoise":  "ignored",
	}

	n := ToNotice(raw)
	require.NotNil(t, n)
	assert.Equal(t, "B-123", n.NoticeID)
	assert.Equal(t, "전산장비 유지보수", n.Title)
	assert.Equal(t, "한국도로공사", n.OrgName)
	assert.Equal(t, "일반경쟁", n.BidMethod)
	assert.Equal(t, "2026-09-15", n.DueDate)
	assert.Equal(t, "2026-08-20", n.AnnounceDate)
	assert.Equal(t, "150000000", n.Budget)
	assert.Equal(t, "수요기관A", n.DemandCompany)
	assert.Contains(t, n.DetailURL, "pbancNo=B-123")

	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(n.RawData, &roundTrip))
	assert.Equal(t, "B-123", roundTrip["bidNo"])
}

func TestToNotice_PrimaryAliasWins(t *testing.T) {
	raw := map[string]any{
		"bidPbancNo": "primary",
		"bidNo":      "secondary",
		"bidPbancNm": "t",
	}
	n := ToNotice(raw)
	require.NotNil(t, n)
	assert.Equal(t, "primary", n.NoticeID)
}

func TestToNotice_NoID(t *testing.T) {
	assert.Nil(t, ToNotice(map[string]any{"bidPbancNm": "제목만 있음"}))
	assert.Nil(t, ToNotice(map[string]any{}))
}

func TestMergeDetail_BackfillsWithoutOverwriting(t *testing.T) {
	n := ToNotice(map[string]any{
		"bidPbancNo": "B-001",
		"bidPbancNm": "t",
		"bscAmt":     "999",
	})
	require.NotNil(t, n)

	MergeDetail(n, map[string]any{
		"bscAmt":     "111",
		"dmndComp":   "수요기관B",
	})

	assert.Equal(t, "999", n.Budget, "existing budget must not be overwritten")
	assert.Equal(t, "수요기관B", n.DemandCompany)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(n.RawData, &raw))
	detail, ok := raw["detail"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "111", detail["bscAmt"])
}

func TestMergeDetail_NilSafe(t *testing.T) {
	assert.Nil(t, MergeDetail(nil, map[string]any{"x": "y"}))

	n := ToNotice(map[string]any{"bidPbancNo": "B-001", "bidPbancNm": "t"})
	same := MergeDetail(n, nil)
	assert.Equal(t, n, same)
}

func TestValidate(t *testing.T) {
	require.Error(t, Validate(nil))

	n := ToNotice(map[string]any{"bidPbancNo": "B-001"})
	require.NotNil(t, n)
	err := Validate(n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no title")

	n.Title = "   "
	require.Error(t, Validate(n))

	n.Title = "정상 공고"
	assert.NoError(t, Validate(n))
}

func TestNormalizeDate(t *testing.T) {
	cases := map[string]string{
		"20260915":            "2026-09-15",
		"2026-09-15":          "2026-09-15",
		"2026/09/15":          "2026-09-15",
		"2026.09.15":          "2026-09-15",
		"20260915 10:30":      "2026-09-15",
		"":                    "",
		"invalid":             "invalid",
		"2026":                "2026",
		"202609151":           "202609151",
		"내일":                  "내일",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeDate(in), "input %q", in)
	}
}
