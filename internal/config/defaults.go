package config

import (
	_ "embed"
)

//go:embed defaults/beltline.yaml
var defaultYAML []byte

// Default returns the hardcoded default configuration.
func Default() Config {
	return Config{
		Sim: SimConfig{
			TickRate:                  20,
			DefaultBeltSpeed:          100,
			TeleporterSpeedMultiplier: 3,
			SegmentCapacity:           1,
			Seed:                      1,
		},
		Teleporter: TeleporterConfig{
			BasePower:          100,
			DegreesPerDistance: 1,
			HeatResearched:     false,
		},
		Storage: StorageConfig{
			DBPath: "~/.beltline/runs.db",
		},
		Snapshot: SnapshotConfig{
			Dir: "~/.beltline/snapshots",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultYAML returns the embedded default configuration file.
func DefaultYAML() []byte {
	return defaultYAML
}
