package commands

import (
	"github.com/spf13/cobra"
)

var runsLimit int

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "The amount of runs to list.")
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs [--limit <n>]",
	Short: "Lists the recorded crawl runs, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clock, err := newClock()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(cmd.Context(), clock)
		if err != nil {
			return err
		}
		defer closeStore()

		runs, err := st.Runs(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			printWarning("no runs recorded yet")
			return nil
		}
		renderRuns(runs)
		return nil
	},
}
