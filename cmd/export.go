package main

import (
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nurilab/nuri-collector/internal/export"
	"github.com/nurilab/nuri-collector/internal/store"
)

var (
	exportFormat string
	exportOut    string
	exportOrg    string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export collected notices to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		notices, err := st.ListNotices(ctx, store.NoticeFilter{
			OrgName: exportOrg,
			Limit:   exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list notices")
		}

		out := exportOut
		if out == "" {
			out = filepath.Join(cfg.Export.OutputDir, "nuri_notices."+exportFormat)
		}

		switch exportFormat {
		case "json":
			err = export.JSONFile(out, notices)
		case "csv":
			err = export.CSVFile(out, notices)
		case "xlsx":
			err = export.XLSXFile(out, notices)
		default:
			return eris.Errorf("unsupported format %q: want json, csv, or xlsx", exportFormat)
		}
		if err != nil {
			return err
		}

		fmt.Printf("Exported %d notices -> %s\n", len(notices), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: json, csv, or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default <export.output_dir>/nuri_notices.<format>)")
	exportCmd.Flags().StringVar(&exportOrg, "org", "", "filter by organization name substring")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 100000, "max notices to export")
	rootCmd.AddCommand(exportCmd)
}
