package ocr

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSample(t *testing.T, dir, name, text string) {
	t.Helper()
	data, err := json.Marshal(map[string]string{"text": text})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "sample_1.json", sampleTicket)
	writeSample(t, dir, "sample_2.json", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	results, err := ParseDir(dir)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Name order: broken.json, sample_1.json, sample_2.json.
	assert.False(t, results[0].Success())
	assert.Equal(t, "broken.json", results[0].Source)

	assert.True(t, results[1].Success())
	assert.Equal(t, "sample_1.json", results[1].Source)
	assert.Equal(t, "12가3456", results[1].Ticket.VehicleNumber)

	assert.False(t, results[2].Success())
}

func TestParseDir_MissingDir(t *testing.T) {
	_, err := ParseDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	dir := t.TempDir()
	writeSample(t, dir, "sample_1.json", sampleTicket)
	writeSample(t, dir, "bad.json", "")

	results, err := ParseDir(dir)
	require.NoError(t, err)

	out := filepath.Join(dir, "out", "results.csv")
	require.NoError(t, err)
	require.NoError(t, WriteCSV(results, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}), "CSV must start with a UTF-8 BOM")

	r := csv.NewReader(bytes.NewReader(data[3:]))
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "only successful parses are written")
	assert.Equal(t, "ticket_number", records[0][0])
	assert.Equal(t, "T-2024-001", records[1][0])
	assert.Equal(t, "14080", records[1][2])
	assert.Equal(t, "true", records[1][6])
}
