package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestEmbeddedDefaultsMatchHardcoded(t *testing.T) {
	cfg, err := Parse(DefaultYAML())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("embedded defaults = %+v, want %+v", cfg, Default())
	}
}

func TestParsePartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("sim:\n  default_belt_speed: 40\nteleporter:\n  heat_researched: true\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.Sim.DefaultBeltSpeed != 40 {
		t.Errorf("DefaultBeltSpeed = %d, want 40", cfg.Sim.DefaultBeltSpeed)
	}
	if !cfg.Teleporter.HeatResearched {
		t.Error("HeatResearched should be true")
	}
	if cfg.Sim.TeleporterSpeedMultiplier != 3 {
		t.Errorf("TeleporterSpeedMultiplier = %d, want default 3", cfg.Sim.TeleporterSpeedMultiplier)
	}
	if cfg.Teleporter.BasePower != 100 {
		t.Errorf("BasePower = %v, want default 100", cfg.Teleporter.BasePower)
	}
}

func TestParseNormalizes(t *testing.T) {
	cfg, err := Parse([]byte(`
sim:
  tick_rate: 0
  default_belt_speed: -5
  teleporter_speed_multiplier: 0
  segment_capacity: 0
teleporter:
  base_power: -1
  degrees_per_distance: -2
log:
  level: " DEBUG "
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	def := Default()
	if cfg.Sim != (SimConfig{
		TickRate:                  def.Sim.TickRate,
		DefaultBeltSpeed:          def.Sim.DefaultBeltSpeed,
		TeleporterSpeedMultiplier: def.Sim.TeleporterSpeedMultiplier,
		SegmentCapacity:           def.Sim.SegmentCapacity,
		Seed:                      def.Sim.Seed,
	}) {
		t.Errorf("Sim = %+v, want defaults", cfg.Sim)
	}
	if cfg.Teleporter.BasePower != 0 || cfg.Teleporter.DegreesPerDistance != 0 {
		t.Errorf("Teleporter = %+v, want negatives clamped to 0", cfg.Teleporter)
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("sim: [unterminated")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadCustomPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("sim:\n  segment_capacity: 4\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sim.SegmentCapacity != 4 {
		t.Errorf("SegmentCapacity = %d, want 4", cfg.Sim.SegmentCapacity)
	}
}

func TestLoadCustomPathErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing custom config")
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("log: [\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}
	_, err := Load(bad)
	if err == nil || !strings.Contains(err.Error(), "config: failed to parse") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestLoadFallsBackToEmbedded(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want embedded defaults", cfg)
	}
}

func TestLoadPrefersLocalConfigsDir(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.MkdirAll(filepath.Join(dir, "configs"), 0o755); err != nil {
		t.Fatalf("MkdirAll() failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "configs", FileName), []byte("sim:\n  tick_rate: 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Sim.TickRate != 5 {
		t.Errorf("TickRate = %d, want 5 from ./configs", cfg.Sim.TickRate)
	}
}

func TestSimOptions(t *testing.T) {
	cfg := Default()
	cfg.Sim.DefaultBeltSpeed = 7
	cfg.Teleporter.HeatResearched = true
	logger := log.New(os.Stderr)

	opts := cfg.SimOptions(logger)
	if opts.DefaultSpeed != 7 || opts.TeleporterSpeedMultiplier != 3 || opts.Capacity != 1 {
		t.Errorf("SimOptions() = %+v", opts)
	}
	if !opts.HeatResearched || opts.BasePower != 100 || opts.Logger != logger {
		t.Errorf("SimOptions() teleporter fields = %+v", opts)
	}
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/.beltline/runs.db")
	if err != nil {
		t.Fatalf("ExpandPath() failed: %v", err)
	}
	if want := filepath.Join(home, ".beltline", "runs.db"); got != want {
		t.Errorf("ExpandPath() = %q, want %q", got, want)
	}
	if got, _ := ExpandPath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("ExpandPath() changed absolute path to %q", got)
	}
}
