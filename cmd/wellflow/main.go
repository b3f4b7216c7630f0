package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MishaelXV/Diplom-project/internal/log"
)

var (
	cfg    *settings
	logger *zap.SugaredLogger
)

var rootCmd = &cobra.Command{
	Use:   "wellflow",
	Short: "Estimate wellbore inflow from temperature profiles",
	Long: "Detects the producing intervals of a well from its temperature log and " +
		"recovers the Péclet number of every interval by fitting a steady-state heat-transfer model.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd.Root())
		if err != nil {
			return err
		}
		cfg = s

		if err := log.InitLevel(cfg.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = log.Named("wellflow")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func addPersistentFlags(c *cobra.Command) {
	pf := c.PersistentFlags()
	pf.String("config", "", "settings file (default ./wellflow.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.StringP("format", "f", "text", "output format: text, json, msgpack, csv")
	pf.IntP("workers", "w", 0, "concurrent wells in batch mode (0 uses every CPU)")
	pf.StringP("scenarios", "s", "", "scenario source: a YAML file or a SQLite store")
	pf.StringP("output", "o", "", "write results to this file instead of stdout")
}

func init() {
	addPersistentFlags(rootCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}
