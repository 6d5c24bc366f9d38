package ocr

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

// sampleFile is the OCR engine's handoff format: one JSON object per ticket.
type sampleFile struct {
	Text string `json:"text"`
}

// ParseDir parses every *.json sample in dir, in name order. Files that
// cannot be read or decoded become failed results under their filename; a
// missing directory is an error.
func ParseDir(dir string) ([]ParseResult, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, eris.Wrapf(err, "ocr: glob %s", dir)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, eris.Wrapf(err, "ocr: sample dir %s", dir)
	}
	sort.Strings(paths)

	results := make([]ParseResult, 0, len(paths))
	for _, path := range paths {
		res := parseFile(path)
		res.Source = filepath.Base(path)

		if res.Success() {
			zap.L().Info("ticket parsed",
				zap.String("file", res.Source),
				zap.String("vehicle", res.Ticket.VehicleNumber),
				zap.Int("gross_kg", res.Ticket.GrossWeight),
				zap.Int("net_kg", res.Ticket.NetWeight),
				zap.Bool("weights_valid", res.Ticket.WeightValid),
			)
		} else {
			zap.L().Warn("ticket parse failed",
				zap.String("file", res.Source),
				zap.Error(res.Err),
			)
		}
		results = append(results, res)
	}
	return results, nil
}

func parseFile(path string) ParseResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{Err: eris.Wrapf(err, "ocr: read %s", path)}
	}
	var sample sampleFile
	if err := json.Unmarshal(data, &sample); err != nil {
		return ParseResult{Err: eris.Wrapf(err, "ocr: decode %s", path)}
	}
	return Parse(sample.Text)
}

var ticketCSVHeader = []string{
	"ticket_number", "vehicle_number",
	"gross_weight", "tare_weight", "net_weight",
	"parsed_at", "is_weight_valid",
}

// WriteCSV saves the successful results as UTF-8 CSV with a byte-order mark.
// Failed results are skipped. The parent directory is created if needed.
func WriteCSV(results []ParseResult, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "ocr: create output dir %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "ocr: create %s", path)
	}

	bw := unicode.UTF8BOM.NewEncoder().Writer(f)
	cw := csv.NewWriter(bw)

	if err := cw.Write(ticketCSVHeader); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "ocr: write csv header")
	}
	for _, res := range results {
		if !res.Success() {
			continue
		}
		t := res.Ticket
		row := []string{
			t.TicketNumber,
			t.VehicleNumber,
			strconv.Itoa(t.GrossWeight),
			strconv.Itoa(t.TareWeight),
			strconv.Itoa(t.NetWeight),
			t.ParsedAt.Format(time.RFC3339),
			strconv.FormatBool(t.WeightValid),
		}
		if err := cw.Write(row); err != nil {
			f.Close() //nolint:errcheck
			return eris.Wrap(err, "ocr: write csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close() //nolint:errcheck
		return eris.Wrap(err, "ocr: flush csv")
	}
	return eris.Wrapf(f.Close(), "ocr: close %s", path)
}
