package commands

import (
	"context"
	"fmt"
	"os"

	"wris-inventory/internal/components/telemetry"
	"wris-inventory/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:           "wris",
	Short:         "wris inventories the groundwater stations India-WRIS lists for a state.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		var err error
		cfg, err = config.Read(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "The json5 config file, <name>.local.json5 next to it overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err.Error())
		os.Exit(1)
	}
}
