package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/beltline/internal/host"
	"github.com/vovakirdan/beltline/internal/layout"
	"github.com/vovakirdan/beltline/internal/platform/tui"
	"github.com/vovakirdan/beltline/internal/scenario"
)

var (
	flagSSHAddr     string
	flagHostKey     string
	flagIdleTimeout int
	flagMaxSessions int
)

var serveCmd = &cobra.Command{
	Use:   "serve <layout>",
	Short: "Start the beltline SSH server",
	Long: `Start an SSH server that shows a layout to every connecting user.

Each SSH connection gets its own copy of the layout, stepped from tick 0.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.beltline/host_key

Examples:
  beltline serve layouts/teleport.yaml                  # Listen on :23235
  beltline serve layouts/teleport.yaml --ssh :2222      # Listen on port 2222
  beltline serve layouts/teleport.yaml --host-key ./key # Use specific host key

Users can connect with:
  ssh localhost -p 23235`,
	Args: cobra.ExactArgs(1),
	Run:  runServe,
}

func init() {
	def := tui.DefaultSSHServerConfig()
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", def.Address, "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", int(def.IdleTimeout/time.Minute), "Idle timeout in minutes before disconnecting")
	serveCmd.Flags().IntVar(&flagMaxSessions, "max-sessions", def.MaxSessions, "Maximum concurrent viewers (0 = no limit)")
}

func runServe(_ *cobra.Command, args []string) {
	cfg := loadConfig()
	logger := newLogger(cfg)
	path := args[0]
	l := loadLayout(path)

	// Every session parses its own copy so scenarios share no state.
	factory := func() (*scenario.Scenario, error) {
		sl, err := layout.Load(path)
		if err != nil {
			return nil, err
		}
		return scenario.New(sl, cfg.SimOptions(logger.WithPrefix("beltline-sim")), host.WithEventLog(tui.EventLogSize))
	}

	sshCfg := tui.SSHServerConfig{
		Address:     flagSSHAddr,
		HostKeyPath: flagHostKey,
		IdleTimeout: time.Duration(flagIdleTimeout) * time.Minute,
		TickRate:    cfg.Sim.TickRate,
		MaxSessions: flagMaxSessions,
	}

	server, err := tui.NewSSHServer(sshCfg, factory, logger.WithPrefix("beltline-ssh"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Serving %s (%s) on %s\n", l.Name, l.ID, sshCfg.Address)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
