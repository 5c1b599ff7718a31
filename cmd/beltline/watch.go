package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/platform/tui"
)

var (
	flagFPS         int
	flagPaused      bool
	flagWatchResume string
	flagWatchRecord bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <layout>",
	Short: "Watch a layout in the terminal",
	Long: `Step a layout in the terminal and draw the belts, items and ground.

Controls:
  Space/P  - Pause / resume
  N        - Single step (while paused)
  +/-      - Faster / slower
  ?        - Toggle help
  Q/Ctrl+C - Quit

Examples:
  beltline watch layouts/teleport.yaml
  beltline watch layouts/contention.yaml --fps 60
  beltline watch layouts/teleport.yaml --paused --resume latest`,
	Args: cobra.ExactArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&flagFPS, "fps", 0, "Steps per second (default from config)")
	watchCmd.Flags().BoolVar(&flagPaused, "paused", false, "Start paused")
	watchCmd.Flags().StringVar(&flagWatchResume, "resume", "", `Snapshot to resume from ("latest" for the newest)`)
	watchCmd.Flags().BoolVar(&flagWatchRecord, "record", false, "Record the run summary when the viewer quits")
}

func runWatch(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	l := loadLayout(args[0])

	// The viewer owns the terminal; only errors reach stderr.
	logger := newLogger(cfg)
	if logger.GetLevel() < log.ErrorLevel {
		logger.SetLevel(log.ErrorLevel)
	}

	sc, err := buildScenario(cfg, l, logger, flagWatchResume, host.WithEventLog(tui.EventLogSize))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating scenario: %v\n", err)
		os.Exit(1)
	}
	startTick := sc.Sim.Ticks()

	rate := flagFPS
	if rate < 1 {
		rate = cfg.Sim.TickRate
	}

	_, err = tui.RunViewer(sc, tui.ViewerOptions{
		TickRate: rate,
		Seed:     cfg.Sim.Seed,
		Paused:   flagPaused,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running viewer: %v\n", err)
		os.Exit(1)
	}

	totals := sc.Totals()
	printSummary(l.ID, startTick, totals)
	if flagWatchRecord {
		recordRun(cfg, l.ID, sc.Sim.Options().Seed, startTick, totals)
	}
}
