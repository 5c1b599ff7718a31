package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/beltline/internal/platform/tui"
	"github.com/vovakirdan/beltline/internal/storage"
)

var (
	flagLimit int
	flagTUI   bool
	flagClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history <layout-id>",
	Short: "Show recorded runs of a layout",
	Long: `Display the most recent recorded runs of a layout and its best
throughput. Runs are recorded with 'beltline run --record'.

Examples:
  beltline history teleport-demo
  beltline history teleport-demo --limit 25
  beltline history teleport-demo --tui
  beltline history teleport-demo --clear`,
	Args: cobra.ExactArgs(1),
	Run:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagLimit, "limit", 10, "Number of runs to show")
	historyCmd.Flags().BoolVar(&flagTUI, "tui", false, "Browse runs interactively")
	historyCmd.Flags().BoolVar(&flagClear, "clear", false, "Delete all recorded runs of the layout")
}

func runHistory(cmd *cobra.Command, args []string) {
	layoutID := args[0]
	cfg := loadConfig()

	store, err := storage.Open(cfg.Storage.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening history database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagClear {
		if err := store.ClearRuns(layoutID); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing runs: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared runs of %s\n", layoutID)
		return
	}

	if flagTUI {
		width, height := 80, 24 // Defaults
		if w, h, termErr := term.GetSize(int(os.Stdout.Fd())); termErr == nil {
			width = w
			height = h
		}
		if err := tui.RunHistory(store, layoutID, width, height); err != nil {
			fmt.Fprintf(os.Stderr, "Error running history browser: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runs, err := store.RecentRuns(layoutID, flagLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving runs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Run History - %s\n", layoutID)
	fmt.Println()

	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		fmt.Println()
		fmt.Println("Run 'beltline run <layout> --record' to record the first one.")
		return
	}

	fmt.Printf("  %-16s  %-8s  %-9s  %-9s  %-6s  %-8s  %s\n", "Date", "Ticks", "Delivered", "Teleports", "Stalls", "Per 1k", "Seed")
	fmt.Printf("  %-16s  %-8s  %-9s  %-9s  %-6s  %-8s  %s\n", "----", "-----", "---------", "---------", "------", "------", "----")

	for _, run := range runs {
		dateStr := run.CreatedAt.Format("2006-01-02 15:04")
		seed := fmt.Sprintf("%d", run.Seed)
		if run.Resumed {
			seed += "*"
		}
		fmt.Printf("  %-16s  %-8d  %-9d  %-9d  %-6d  %-8.2f  %s\n",
			dateStr, run.Ticks, run.Delivered, run.Teleports, run.StallCount(), run.Throughput, seed)
	}

	fmt.Println()
	if best, err := store.BestThroughput(layoutID); err == nil {
		fmt.Printf("Best: %.2f delivered per 1k ticks\n", best)
	}
}
