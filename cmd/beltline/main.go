// beltline is a conveyor belt simulator for the terminal.
//
// Usage:
//
//	beltline run <layout>         - Run a layout headless and print a summary
//	beltline watch <layout>       - Watch a layout in the terminal
//	beltline serve <layout>       - Start SSH server showing a layout
//	beltline history <layout-id>  - Show recorded runs of a layout
//	beltline validate <layout>... - Check layout files
//
// Global flags:
//
//	--config <path>     - Path to beltline.yaml
//	--db <path>         - Set database path (default from config: ~/.beltline/runs.db)
//	--seed <value>      - Set RNG seed (0 = value from config)
//	--log-level <level> - debug, info, warn, error
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/beltline/internal/config"
	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/layout"
	"github.com/vovakirdan/beltline/internal/scenario"
	"github.com/vovakirdan/beltline/internal/snapshot"
)

var (
	// Global flags
	flagConfig   string
	flagDBPath   string
	flagSeed     int64
	flagLogLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "beltline",
	Short: "Beltline - conveyor belts and teleporters in your terminal",
	Long: `Beltline simulates item flow over conveyor belt segments: items ride
a belt until its counter reaches the belt speed, then move on to the
next segment, teleport to a paired receiver or drop onto the ground.

Available commands:
  run       - Run a layout headless and print a summary
  watch     - Watch a layout step by step
  serve     - Start SSH server for remote viewing
  history   - View recorded runs
  validate  - Check layout files

Examples:
  beltline validate layouts/*.yaml
  beltline run layouts/teleport.yaml --ticks 2000 --record
  beltline watch layouts/contention.yaml
  beltline history teleport-demo`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to beltline.yaml")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to run history database (default from config)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = value from config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig loads the configuration and applies the global flags to it.
func loadConfig() config.Config {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flagDBPath != "" {
		cfg.Storage.DBPath = flagDBPath
	}
	if flagSeed != 0 {
		cfg.Sim.Seed = flagSeed
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg
}

func newLogger(cfg config.Config) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "beltline",
		Level:           cfg.LogLevel(),
	})
}

func loadLayout(path string) *layout.Layout {
	l, err := layout.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'beltline validate %s' for details.\n", path)
		os.Exit(1)
	}
	return l
}

// buildScenario creates a fresh scenario, or resumes one when resume is
// set. resume is a snapshot path, or "latest" for the newest snapshot of
// the layout in the configured snapshot directory.
func buildScenario(cfg config.Config, l *layout.Layout, logger *log.Logger, resume string, hostOpts ...host.Option) (*scenario.Scenario, error) {
	opts := cfg.SimOptions(logger)
	if resume == "" {
		return scenario.New(l, opts, hostOpts...)
	}

	path := resume
	if resume == "latest" {
		dir, err := config.ExpandPath(cfg.Snapshot.Dir)
		if err != nil {
			return nil, err
		}
		if path, err = snapshot.Latest(dir, l.ID); err != nil {
			return nil, err
		}
	}
	snap, err := snapshot.Read(path)
	if err != nil {
		return nil, err
	}
	logger.Info("resuming", "snapshot", path, "tick", snap.Header.Tick)
	return scenario.Resume(l, opts, snap, hostOpts...)
}
