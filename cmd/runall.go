package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// run-all chains the two tasks: parse the OCR samples first, then run one
// collection pass.
var runAllCmd = &cobra.Command{
	Use:   "run-all",
	Short: "Run the OCR task and one collection pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := runOCRTask(); err != nil {
			return err
		}
		return runCollect(ctx)
	},
}

func init() {
	runAllCmd.Flags().IntVar(&collectPages, "pages", 1, "number of listing pages to fetch")
	runAllCmd.Flags().BoolVar(&collectDetails, "details", false, "fetch per-notice detail records")
	rootCmd.AddCommand(runAllCmd)
}
