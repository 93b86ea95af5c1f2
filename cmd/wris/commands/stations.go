package commands

import (
	"context"
	"fmt"

	"wris-inventory/internal/store"

	"github.com/spf13/cobra"
)

var stationsFlags struct {
	run   int64
	state string
}

func init() {
	stationsCmd.Flags().Int64VarP(&stationsFlags.run, "run", "r", 0, "The run to list, defaults to the latest complete run of the state.")
	stationsCmd.Flags().StringVarP(&stationsFlags.state, "state", "s", "", "The state whose latest run is listed, overrides the config.")
	rootCmd.AddCommand(stationsCmd)
}

// resolveRun returns the run given by --run or the latest complete run of
// the configured state.
func resolveRun(ctx context.Context, st store.Store, runID int64, state string) (store.Run, error) {
	if runID > 0 {
		return st.Run(ctx, runID)
	}
	if state == "" {
		state = cfg.State
	}
	if state == "" {
		return store.Run{}, fmt.Errorf("either --run or a state is required")
	}
	return st.LatestRun(ctx, state)
}

var stationsCmd = &cobra.Command{
	Use:   "stations [station code] [--run <id> | --state <name>]",
	Short: "Lists the stations of a run, or every sighting of one station code.",
	Args:  cobra.MaximumNArgs(1),
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

		if len(args) == 1 {
			hits, err := st.FindStation(ctx, args[0])
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				printWarning(fmt.Sprintf("station %s was never seen", args[0]))
				return nil
			}
			renderStationHits(hits)
			return nil
		}

		run, err := resolveRun(ctx, st, stationsFlags.run, stationsFlags.state)
		if err != nil {
			return err
		}
		records, err := st.Stations(ctx, run.ID)
		if err != nil {
			return err
		}
		printSection(fmt.Sprintf("Run %d: %s (%s)", run.ID, run.State, formatTime(run.StartedAt)))
		renderRecords(records)
		return nil
	},
}
