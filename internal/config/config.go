// Package config provides YAML-based configuration loading for the
// beltline simulator.
package config

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/beltline/internal/belt"
)

// Config is the full beltline configuration.
type Config struct {
	Sim        SimConfig        `yaml:"sim"`
	Teleporter TeleporterConfig `yaml:"teleporter"`
	Storage    StorageConfig    `yaml:"storage"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Log        LogConfig        `yaml:"log"`
}

// SimConfig defines tick driver parameters.
type SimConfig struct {
	TickRate                  int   `yaml:"tick_rate"`                   // Viewer ticks per second
	DefaultBeltSpeed          int   `yaml:"default_belt_speed"`          // Counter threshold of plain belts
	TeleporterSpeedMultiplier int   `yaml:"teleporter_speed_multiplier"` // Sender threshold = default * this
	SegmentCapacity           int   `yaml:"segment_capacity"`            // Items per segment
	Seed                      int64 `yaml:"seed"`
}

// TeleporterConfig defines teleporter power and heat.
type TeleporterConfig struct {
	BasePower          float64 `yaml:"base_power"`
	DegreesPerDistance float64 `yaml:"degrees_per_distance"`
	HeatResearched     bool    `yaml:"heat_researched"`
}

// StorageConfig defines where run history is kept.
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// SnapshotConfig defines where snapshots are written.
type SnapshotConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig defines logging parameters.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// SimOptions converts the config into options for belt.NewSim.
func (c Config) SimOptions(logger *log.Logger) belt.Options {
	return belt.Options{
		DefaultSpeed:              c.Sim.DefaultBeltSpeed,
		TeleporterSpeedMultiplier: c.Sim.TeleporterSpeedMultiplier,
		Capacity:                  c.Sim.SegmentCapacity,
		BasePower:                 c.Teleporter.BasePower,
		DegreesPerDistance:        c.Teleporter.DegreesPerDistance,
		HeatResearched:            c.Teleporter.HeatResearched,
		Seed:                      c.Sim.Seed,
		Logger:                    logger,
	}
}

// LogLevel parses Log.Level, falling back to info.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
