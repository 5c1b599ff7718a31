package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file name looked up in config directories.
const FileName = "beltline.yaml"

// Load loads the beltline configuration. Fields missing from the file keep
// their default values.
// Search order: customPath -> ~/.beltline/configs/beltline.yaml -> ./configs/beltline.yaml -> embedded default
func Load(customPath string) (Config, error) {
	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %s: %w", customPath, err)
		}
		cfg, err := Parse(data)
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to parse %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try user config directory
	if userCfgPath := userConfigPath(FileName); userCfgPath != "" {
		if data, err := os.ReadFile(userCfgPath); err == nil {
			if cfg, err := Parse(data); err == nil {
				return cfg, nil
			}
		}
	}

	// Try local configs directory
	if data, err := os.ReadFile(filepath.Join("configs", FileName)); err == nil {
		if cfg, err := Parse(data); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	cfg, err := Parse(defaultYAML)
	if err != nil {
		return Default(), nil // Fallback to hardcoded if embed fails
	}
	return cfg, nil
}

// Parse decodes YAML over the hardcoded defaults and normalizes the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

// normalize replaces out-of-range values with their defaults.
func (c *Config) normalize() {
	def := Default()
	if c.Sim.TickRate < 1 {
		c.Sim.TickRate = def.Sim.TickRate
	}
	if c.Sim.DefaultBeltSpeed < 1 {
		c.Sim.DefaultBeltSpeed = def.Sim.DefaultBeltSpeed
	}
	if c.Sim.TeleporterSpeedMultiplier < 1 {
		c.Sim.TeleporterSpeedMultiplier = def.Sim.TeleporterSpeedMultiplier
	}
	if c.Sim.SegmentCapacity < 1 {
		c.Sim.SegmentCapacity = def.Sim.SegmentCapacity
	}
	if c.Teleporter.BasePower < 0 {
		c.Teleporter.BasePower = 0
	}
	if c.Teleporter.DegreesPerDistance < 0 {
		c.Teleporter.DegreesPerDistance = 0
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: cannot expand home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// userConfigPath returns the path to user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".beltline", "configs", filename)
}
