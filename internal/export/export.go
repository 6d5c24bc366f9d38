// Package export renders collected notices into the supported output
// artifacts: JSON, spreadsheet-safe CSV, and XLSX.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/nurilab/nuri-collector/internal/model"
)

var csvHeader = []string{
	"notice_id", "title", "org_name", "notice_type", "bid_method",
	"due_date", "announce_date", "budget", "demand_company", "detail_url",
	"raw_data", "collected_at",
}

// JSON writes the notices as an indented JSON array. Korean text stays
// readable: HTML escaping is off and the encoder never transcodes.
func JSON(w io.Writer, notices []model.Notice) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if notices == nil {
		notices = []model.Notice{}
	}
	return eris.Wrap(enc.Encode(notices), "export: encode json")
}

// JSONFile writes the JSON export to path.
func JSONFile(path string, notices []model.Notice) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := JSON(f, notices); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// CSV writes the notices as UTF-8 CSV with a byte-order mark so spreadsheet
// tools render non-ASCII text correctly.
func CSV(w io.Writer, notices []model.Notice) error {
	bw := unicode.UTF8BOM.NewEncoder().Writer(w)
	cw := csv.NewWriter(bw)

	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for i := range notices {
		if err := cw.Write(csvRow(&notices[i])); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", notices[i].NoticeID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// CSVFile writes the CSV export to path.
func CSVFile(path string, notices []model.Notice) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := CSV(f, notices); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// XLSXFile writes the notices as a single-sheet workbook at path.
func XLSXFile(path string, notices []model.Notice) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("notices")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range csvHeader {
		header.AddCell().SetString(col)
	}
	for i := range notices {
		row := sheet.AddRow()
		for _, val := range csvRow(&notices[i]) {
			row.AddCell().SetString(val)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

func csvRow(n *model.Notice) []string {
	collected := ""
	if !n.CollectedAt.IsZero() {
		collected = n.CollectedAt.UTC().Format(time.RFC3339)
	}
	return []string{
		n.NoticeID, n.Title, n.OrgName, n.NoticeType, n.BidMethod,
		n.DueDate, n.AnnounceDate, n.Budget, n.DemandCompany, n.DetailURL,
		string(n.RawData), collected,
	}
}
