package commands

import (
	"fmt"

	"wris-inventory/internal/config"
	"wris-inventory/internal/inventory"

	"github.com/spf13/cobra"
)

var exportFlags struct {
	run   int64
	state string
	out   string
}

func init() {
	exportCmd.Flags().Int64VarP(&exportFlags.run, "run", "r", 0, "The run to export, defaults to the latest complete run of the state.")
	exportCmd.Flags().StringVarP(&exportFlags.state, "state", "s", "", "The state whose latest run is exported, overrides the config.")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", "", "The JSON file to write, defaults to <State>_Stations.json.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--run <id> | --state <name>] [--out <path>]",
	Short: "Writes the stations of a recorded run as a JSON array.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		clock, err := newClock()
		if err != nil {
			return err
		}
		st, closeStore, err := openStore(ctx, clock)
		if err != nil {
			return err
		}
		defer closeStore()

		run, err := resolveRun(ctx, st, exportFlags.run, exportFlags.state)
		if err != nil {
			return err
		}
		records, err := st.Stations(ctx, run.ID)
		if err != nil {
			return err
		}

		path := exportFlags.out
		if path == "" {
			path = config.StationsFile(run.State)
		}
		sink := inventory.NewJSONSink(path)
		err = sink.Persist(ctx, records)
		if err != nil {
			return err
		}
		printSuccess(fmt.Sprintf("exported %d stations of run %d to %s", len(records), run.ID, sink.Path()))
		return nil
	},
}
