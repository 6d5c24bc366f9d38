package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/nurilab/nuri-collector/internal/model"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func sampleNotices() []model.Notice {
	return []model.Notice{
		{
			NoticeID:    "B-001",
			Title:       "사무용품 구매",
			OrgName:     "조달청",
			DueDate:     "2026-09-15",
			Budget:      "50000000",
			DetailURL:   "https://nuri.g2b.go.kr/nn/nnb/nnbb/selectBidNoceDetl.do?pbancNo=B-001",
			RawData:     []byte(`{"bidPbancNo":"B-001"}`),
			CollectedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		},
		{
			NoticeID: "B-002",
			Title:    "청사 경비 용역 <긴급>",
		},
	}
}

func TestJSON_KeepsKoreanReadable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleNotices()))

	out := buf.String()
	assert.Contains(t, out, "사무용품 구매")
	assert.Contains(t, out, "<긴급>", "HTML escaping must be off")

	var decoded []model.Notice
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "B-001", decoded[0].NoticeID)
}

func TestJSON_NilBecomesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]", string(bytes.TrimSpace(buf.Bytes())))
}

func TestCSV_StartsWithBOM(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleNotices()))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM), "CSV must start with a UTF-8 BOM")

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "notice_id", records[0][0])
	assert.Equal(t, "B-001", records[1][0])
	assert.Equal(t, "사무용품 구매", records[1][1])
	assert.Equal(t, "2026-08-29T12:00:00Z", records[1][11])
	assert.Equal(t, "", records[2][11], "zero collected_at stays empty")
}

func TestCSVFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notices.csv")
	require.NoError(t, CSVFile(path, sampleNotices()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, utf8BOM))
}

func TestJSONFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notices.json")
	require.NoError(t, JSONFile(path, sampleNotices()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []model.Notice
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 2)
}

func TestXLSXFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notices.xlsx")
	require.NoError(t, XLSXFile(path, sampleNotices()))

	wb, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)

	sheet := wb.Sheets[0]
	assert.Equal(t, "notices", sheet.Name)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "notice_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "B-001", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "사무용품 구매", sheet.Rows[1].Cells[1].String())
}
