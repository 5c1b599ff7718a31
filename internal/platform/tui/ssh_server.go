package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/beltline/internal/scenario"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23235").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.beltline/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	// TickRate is the initial steps per second of every session.
	TickRate int

	// MaxSessions caps concurrent viewers; 0 means no limit.
	MaxSessions int
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23235",
		IdleTimeout: 30 * time.Minute,
		TickRate:    20,
		MaxSessions: 32,
	}
}

// ScenarioFactory builds a fresh scenario for one session.
type ScenarioFactory func() (*scenario.Scenario, error)

// SSHServer serves the viewer over SSH. Every session steps its own
// scenario built by the factory.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	factory  ScenarioFactory
	logger   *log.Logger
	sessions atomic.Int64
}

// NewSSHServer creates a server; it does not listen until Serve.
func NewSSHServer(cfg SSHServerConfig, factory ScenarioFactory, logger *log.Logger) (*SSHServer, error) {
	if factory == nil {
		return nil, errors.New("tui: no scenario factory")
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "beltline-ssh",
		})
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("tui: cannot get home directory: %w", err)
		}
		hostKeyPath = filepath.Join(home, ".beltline", "host_key")
	}
	if err := os.MkdirAll(filepath.Dir(hostKeyPath), 0o700); err != nil {
		return nil, fmt.Errorf("tui: cannot create host key directory: %w", err)
	}

	srv := &SSHServer{config: cfg, factory: factory, logger: logger}

	// Middlewares run last to first: session cap, PTY check, viewer.
	server, err := wish.NewServer(
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			activeterm.Middleware(),
			srv.sessionMiddleware,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tui: cannot create SSH server: %w", err)
	}
	srv.server = server
	return srv, nil
}

// teaHandler gives the session a viewer over a scenario of its own.
func (s *SSHServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	sc, err := s.factory()
	if err != nil {
		s.logger.Error("cannot build scenario", "user", sess.User(), "error", err)
		wish.Fatalln(sess, "beltline: cannot load layout")
		return nil, nil
	}

	model := NewViewerModel(sc, ViewerOptions{
		TickRate: s.config.TickRate,
		Seed:     time.Now().UnixNano(),
	})
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}

// sessionMiddleware enforces MaxSessions and logs session lifetimes.
func (s *SSHServer) sessionMiddleware(next ssh.Handler) ssh.Handler {
	return func(sess ssh.Session) {
		active := s.sessions.Add(1)
		defer s.sessions.Add(-1)

		remote := sess.RemoteAddr().String()
		if limit := s.config.MaxSessions; limit > 0 && active > int64(limit) {
			s.logger.Warn("session refused", "user", sess.User(), "remote", remote, "active", active-1)
			wish.Fatalln(sess, "beltline: too many viewers, try again later")
			return
		}

		started := time.Now()
		s.logger.Info("session started", "user", sess.User(), "remote", remote, "active", active)
		next(sess)
		s.logger.Info("session ended", "user", sess.User(), "remote", remote,
			"duration", time.Since(started).Round(time.Second))
	}
}

// Serve listens until ctx is done or the listener fails, then shuts the
// server down, giving open sessions up to ten seconds.
func (s *SSHServer) Serve(ctx context.Context) error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	errc := make(chan error, 1)
	go func() {
		errc <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		s.logger.Error("server error", "error", err)
		return err
	}

	s.logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}

// ActiveSessions returns the number of connected sessions.
func (s *SSHServer) ActiveSessions() int64 {
	return s.sessions.Load()
}
