package commands

import (
	"context"
	"fmt"
	"log/slog"

	"wris-inventory/internal/config"
	"wris-inventory/internal/crawler"
	"wris-inventory/internal/db"
	"wris-inventory/internal/inventory"
	"wris-inventory/internal/store"

	"github.com/spf13/cobra"
)

var crawlFlags struct {
	state             string
	surface           string
	fixture           string
	out               string
	modes             []string
	flushEachDistrict bool
	mergeTehsils      bool
	noDB              bool
}

func init() {
	flags := crawlCmd.Flags()
	flags.StringVarP(&crawlFlags.state, "state", "s", "", "The state to crawl, overrides the config.")
	flags.StringVar(&crawlFlags.surface, "surface", "", "The surface to crawl through: browser, lapi or fixture.")
	flags.StringVar(&crawlFlags.fixture, "fixture", "", "The json5 tree the fixture surface serves.")
	flags.StringVarP(&crawlFlags.out, "out", "o", "", "The JSON file to write, defaults to <State>_Stations.json.")
	flags.StringSliceVar(&crawlFlags.modes, "modes", nil, "Only crawl these modes (Telemetry, Manual).")
	flags.BoolVar(&crawlFlags.flushEachDistrict, "flush-each-district", false, "Write the results after every district.")
	flags.BoolVar(&crawlFlags.mergeTehsils, "merge-tehsils", false, "Visit a tehsil only once across districts sharing a name.")
	flags.BoolVar(&crawlFlags.noDB, "no-db", false, "Do not record the run in the database.")
	rootCmd.AddCommand(crawlCmd)
}

// applyCrawlFlags overrides the config with the flags that were set.
func applyCrawlFlags(cmd *cobra.Command, c config.Config) config.Config {
	flags := cmd.Flags()
	if flags.Changed("state") {
		c.State = crawlFlags.state
	}
	if flags.Changed("surface") {
		c.Surface.Kind = config.SurfaceKind(crawlFlags.surface)
	}
	if flags.Changed("fixture") {
		c.Surface.Fixture = crawlFlags.fixture
		if !flags.Changed("surface") {
			c.Surface.Kind = config.SURFACE_FIXTURE
		}
	}
	if flags.Changed("out") {
		c.Output.JSON = crawlFlags.out
	}
	if flags.Changed("modes") {
		c.Modes = crawlFlags.modes
	}
	if flags.Changed("flush-each-district") {
		c.Output.FlushEachDistrict = crawlFlags.flushEachDistrict
	}
	if flags.Changed("merge-tehsils") {
		c.MergeTehsils = crawlFlags.mergeTehsils
	}
	return c
}

func datasetOf(c config.Config) string {
	switch c.Surface.Kind {
	case config.SURFACE_BROWSER:
		if c.Surface.Browser.Dataset != "" {
			return c.Surface.Browser.Dataset
		}
		return "Ground Water Level"
	case config.SURFACE_LAPI:
		if c.Surface.Lapi.Dataset != "" {
			return c.Surface.Lapi.Dataset
		}
		return "GWATERLVL"
	}
	return string(c.Surface.Kind)
}

func logProgress(ev crawler.Event) {
	switch ev.Kind {
	case crawler.EVENT_BRANCH:
		slog.Debug("branch", "level", ev.Level.String(), "path", ev.Path.String())
	case crawler.EVENT_RESET:
		slog.Info("reset below ambiguous label", "path", ev.Path.String())
	case crawler.EVENT_EMPTY:
		slog.Debug("nothing to select", "level", ev.Level.String(), "path", ev.Path.String())
	case crawler.EVENT_ABANDONED:
		slog.Warn("branch abandoned", "level", ev.Level.String(), "path", ev.Path.String(), "err", ev.Err)
	case crawler.EVENT_LEAF:
		slog.Info("leaf", "path", ev.Path.String(), "stations", ev.Stations)
	}
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--state <name>] [--surface browser|lapi|fixture]",
	Short: "Crawls every station of a state and writes them to JSON and the database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg = applyCrawlFlags(cmd, cfg)
		err := cfg.Validate()
		if err != nil {
			return err
		}
		timing, err := cfg.Timing.Parse()
		if err != nil {
			return err
		}

		clock, err := newClock()
		if err != nil {
			return err
		}
		tel, shutdown := initTelemetry(ctx, timing)
		defer shutdown()

		jsonSink := inventory.NewJSONSink(cfg.OutputPath())
		sinks := []inventory.Sink{jsonSink}
		outputs := []string{jsonSink.Path()}

		var (
			st  store.Store
			run store.Run
			rec bool
		)
		if !crawlFlags.noDB && cfg.Output.Database.Enabled() {
			var closeStore func()
			st, closeStore, err = openStore(ctx, clock)
			if err != nil {
				return err
			}
			defer closeStore()

			run, err = st.BeginRun(ctx, store.BeginRunRequest{
				State:   cfg.State,
				Dataset: datasetOf(cfg),
				Surface: string(cfg.Surface.Kind),
			})
			if err != nil {
				return err
			}
			rec = true
			sinks = append(sinks, st.Sink(run.ID))
			outputs = append(outputs, fmt.Sprintf("run %d", run.ID))
		}

		surface, closeSurface, err := openSurface(ctx, timing, clock, tel)
		if err != nil {
			if rec {
				_, finishErr := st.FinishRun(context.WithoutCancel(ctx), run.ID, db.RUN_STATUS_ABORTED)
				if finishErr != nil {
					slog.Warn("finish run", "run", run.ID, "err", finishErr)
				}
			}
			return fmt.Errorf("open %s surface: %w", cfg.Surface.Kind, err)
		}
		defer closeSurface()

		collector := inventory.NewCollector(tel, sinks...)
		engine := crawler.NewEngine(surface, collector, clock, tel, crawler.Options{
			State:             cfg.State,
			Modes:             cfg.Modes,
			SettleDelay:       timing.SettleDelay,
			MetadataTimeout:   timing.MetadataTimeout,
			MergeTehsils:      cfg.MergeTehsils,
			FlushEachDistrict: cfg.Output.FlushEachDistrict,
			Progress:          logProgress,
		})

		slog.Info("crawling", "state", cfg.State, "surface", cfg.Surface.Kind, "out", jsonSink.Path())
		start := clock.Now()
		summary, runErr := engine.Run(ctx)
		slog.Info("crawl finished", "elapsed", clock.Now().Sub(start).String())

		if rec {
			status := db.RUN_STATUS_COMPLETE
			if runErr != nil {
				status = db.RUN_STATUS_ABORTED
			}
			_, err := st.FinishRun(context.WithoutCancel(ctx), run.ID, status)
			if err != nil {
				slog.Warn("finish run", "run", run.ID, "err", err)
			}
		}

		printSummary(cfg.State, summary, outputs, runErr)
		return runErr
	},
}
