package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var failedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List notice IDs whose last collection attempt failed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		ids, err := st.FailedNoticeIDs(ctx)
		if err != nil {
			return eris.Wrap(err, "list failed notices")
		}

		if len(ids) == 0 {
			fmt.Fprintln(os.Stderr, "No failed notices.")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(failedCmd)
}
