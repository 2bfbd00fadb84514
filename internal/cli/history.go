package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goickb/internal/di"
	"github.com/LeJamon/goickb/internal/storage/execlog"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent bot cycles from the execution log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, c, err := newProvider()
		if err != nil {
			return err
		}
		defer c.Close()

		el, err := di.Resolve[*execlog.Store](c, di.ServiceExecLog)
		if err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("no execution log configured (storage.exec_log_path)")
		}
		records, err := el.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return renderHistory(cmd.OutOrStdout(), records)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of cycles to show")
}
