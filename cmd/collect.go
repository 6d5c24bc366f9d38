package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nurilab/nuri-collector/internal/client"
	"github.com/nurilab/nuri-collector/internal/crawler"
	"github.com/nurilab/nuri-collector/internal/export"
	"github.com/nurilab/nuri-collector/internal/store"
)

var (
	collectPages        int
	collectPerPage      int
	collectDaysBack     int
	collectDetails      bool
	collectMode         string
	collectIntervalSecs int
	collectExportJSON   string
	collectExportCSV    string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect bid notices from Nuri Jangteo",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runCollect(ctx)
	},
}

func runCollect(ctx context.Context) error {
	if collectMode != "once" && collectMode != "interval" {
		return eris.Errorf("invalid mode %q: want once or interval", collectMode)
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	cl := client.New(client.Options{
		BaseURL:        cfg.Client.BaseURL,
		Timeout:        time.Duration(cfg.Client.TimeoutSecs) * time.Second,
		MaxRetries:     cfg.Client.MaxRetries,
		BackoffBase:    cfg.Client.BackoffBaseSecs,
		BackoffCap:     cfg.Client.BackoffCapSecs,
		RateLimitWait:  time.Duration(cfg.Client.RateLimitWait) * time.Second,
		RequestsPerSec: cfg.Client.RequestsPerSec,
		UserAgent:      cfg.Client.UserAgent,
	})
	defer cl.Close()

	cr, err := crawler.New(cl, st, crawler.Config{
		MaxPages:       collectPages,
		RecordsPerPage: collectPerPage,
		DaysBack:       collectDaysBack,
		FetchDetails:   collectDetails,
		PageDelay:      cfg.Crawl.PageDelay(),
		DetailDelay:    cfg.Crawl.DetailDelay(),
	})
	if err != nil {
		return err
	}

	if collectMode == "interval" {
		interval := time.Duration(collectIntervalSecs) * time.Second
		zap.L().Info("interval mode", zap.Duration("interval", interval))
		if err := cr.RunInterval(ctx, interval); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}

	stats, err := cr.Run(ctx)
	if stats != nil {
		fmt.Println(stats.Summary())
	}
	if err != nil {
		return err
	}

	return exportAfterRun(ctx, st)
}

// exportAfterRun writes optional post-run artifacts named by flags.
func exportAfterRun(ctx context.Context, st store.Store) error {
	if collectExportJSON == "" && collectExportCSV == "" {
		return nil
	}

	notices, err := st.ListNotices(ctx, store.NoticeFilter{Limit: 100000})
	if err != nil {
		return eris.Wrap(err, "list notices for export")
	}

	if collectExportJSON != "" {
		if err := export.JSONFile(collectExportJSON, notices); err != nil {
			return err
		}
		zap.L().Info("exported json", zap.String("path", collectExportJSON), zap.Int("notices", len(notices)))
	}
	if collectExportCSV != "" {
		if err := export.CSVFile(collectExportCSV, notices); err != nil {
			return err
		}
		zap.L().Info("exported csv", zap.String("path", collectExportCSV), zap.Int("notices", len(notices)))
	}
	return nil
}

func init() {
	collectCmd.Flags().IntVar(&collectPages, "pages", 1, "number of listing pages to fetch")
	collectCmd.Flags().IntVar(&collectPerPage, "per-page", 10, "records per listing page (1-100)")
	collectCmd.Flags().IntVar(&collectDaysBack, "days-back", 30, "search window in days before today")
	collectCmd.Flags().BoolVar(&collectDetails, "details", false, "fetch per-notice detail records")
	collectCmd.Flags().StringVar(&collectMode, "mode", "once", "run mode: once or interval")
	collectCmd.Flags().IntVar(&collectIntervalSecs, "interval-secs", 3600, "seconds between runs in interval mode")
	collectCmd.Flags().StringVar(&collectExportJSON, "export-json", "", "write collected notices to a JSON file after the run")
	collectCmd.Flags().StringVar(&collectExportCSV, "export-csv", "", "write collected notices to a CSV file after the run")
	rootCmd.AddCommand(collectCmd)
}
