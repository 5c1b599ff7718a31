package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/beltline/internal/belt"
	"github.com/vovakirdan/beltline/internal/config"
	"github.com/vovakirdan/beltline/internal/metrics"
	"github.com/vovakirdan/beltline/internal/scenario"
	"github.com/vovakirdan/beltline/internal/snapshot"
	"github.com/vovakirdan/beltline/internal/storage"
)

var (
	flagTicks      int
	flagSave       bool
	flagResume     string
	flagMetricsOut string
	flagRecord     bool
)

var runCmd = &cobra.Command{
	Use:   "run <layout>",
	Short: "Run a layout headless",
	Long: `Step a layout for a number of ticks without a viewer and print a
summary of what happened on the belts.

Snapshots:
  --save writes a snapshot after the run into the configured snapshot
  directory. --resume continues from a snapshot file, or from the newest
  snapshot of the layout when given "latest".

Examples:
  beltline run layouts/teleport.yaml
  beltline run layouts/teleport.yaml --ticks 5000 --save
  beltline run layouts/teleport.yaml --resume latest --record
  beltline run layouts/contention.yaml --metrics-out ./beltline.prom`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func init() {
	runCmd.Flags().IntVar(&flagTicks, "ticks", 1000, "Number of ticks to run")
	runCmd.Flags().BoolVar(&flagSave, "save", false, "Write a snapshot after the run")
	runCmd.Flags().StringVar(&flagResume, "resume", "", `Snapshot to resume from ("latest" for the newest)`)
	runCmd.Flags().StringVar(&flagMetricsOut, "metrics-out", "", "Write Prometheus metrics to this file")
	runCmd.Flags().BoolVar(&flagRecord, "record", false, "Record the run summary in the history database")
}

func runRun(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)
	l := loadLayout(args[0])

	sc, err := buildScenario(cfg, l, logger, flagResume)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating scenario: %v\n", err)
		os.Exit(1)
	}
	startTick := sc.Sim.Ticks()

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSink(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating metrics: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := sink.Observe(ctx, sc, flagTicks)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error running scenario: %v\n", runErr)
		os.Exit(1)
	}
	if runErr != nil {
		logger.Warn("run interrupted", "tick", sc.Sim.Ticks())
	}

	totals := sc.Totals()
	printSummary(l.ID, startTick, totals)

	if flagSave {
		dir, err := config.ExpandPath(cfg.Snapshot.Dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if !snapshot.ValidLayoutID(l.ID) {
			fmt.Fprintf(os.Stderr, "Error: layout id %q cannot name a snapshot file\n", l.ID)
			os.Exit(1)
		}
		path := snapshot.Path(dir, l.ID, totals.Ticks)
		if err := snapshot.Write(path, sc.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot: %s\n", path)
	}

	if flagMetricsOut != "" {
		if err := metrics.WriteTextfile(flagMetricsOut, reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing metrics: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Metrics: %s\n", flagMetricsOut)
	}

	if flagRecord {
		recordRun(cfg, l.ID, sc.Sim.Options().Seed, startTick, totals)
	}
}

func printSummary(layoutID string, startTick uint64, t scenario.Totals) {
	fmt.Printf("Run - %s (ticks %d..%d)\n", layoutID, startTick, t.Ticks)
	fmt.Println()
	fmt.Printf("  %-16s %d\n", "Spawned", t.Spawned)
	fmt.Printf("  %-16s %d\n", "Feeder blocked", t.FeederBlocked)
	fmt.Printf("  %-16s %d\n", "Transfers", t.Transfers)
	fmt.Printf("  %-16s %d\n", "Teleports", t.Teleports)
	fmt.Printf("  %-16s %d\n", "Delivered", t.Delivered)
	fmt.Printf("  %-16s %d\n", "Orphaned", t.Orphaned)
	fmt.Printf("  %-16s %d\n", "On belts", t.Resident)
	fmt.Printf("  %-16s %d/%d\n", "Senders paired", t.Paired, t.Paired+t.Unpaired)
	fmt.Printf("  %-16s %.2f per 1k ticks\n", "Throughput", t.Throughput())
	fmt.Printf("  %-16s %.1f ticks\n", "Mean held", t.MeanHeld())

	if len(t.Stalls) == 0 {
		fmt.Printf("  %-16s %d\n", "Stalls", 0)
		return
	}
	fmt.Printf("  %-16s %d\n", "Stalls", t.StallCount())
	reasons := make([]belt.StallReason, 0, len(t.Stalls))
	for reason := range t.Stalls {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		fmt.Printf("    %-14s %d\n", reason, t.Stalls[reason])
	}
}

func recordRun(cfg config.Config, layoutID string, seed int64, startTick uint64, t scenario.Totals) {
	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	run := storage.RunSummary{
		RunID:      uuid.NewString(),
		LayoutID:   layoutID,
		Seed:       seed,
		Resumed:    startTick > 0,
		StartTick:  startTick,
		Ticks:      t.Ticks,
		Delivered:  t.Delivered,
		Transfers:  t.Transfers,
		Teleports:  t.Teleports,
		Orphaned:   t.Orphaned,
		Throughput: t.Throughput(),
		MeanHeld:   t.MeanHeld(),
	}
	if len(t.Stalls) > 0 {
		run.Stalls = make(map[string]int, len(t.Stalls))
		for reason, n := range t.Stalls {
			run.Stalls[reason.String()] = n
		}
	}

	if _, err := store.SaveRun(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording run: %v\n", err)
		return
	}
	fmt.Printf("Recorded run %s\n", run.RunID)
}
