// Package config loads and validates the YAML configuration for the
// accelerometer watch tool.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Sensor      SensorConfig      `yaml:"sensor"`
	Shake       ShakeConfig       `yaml:"shake"`
	Orientation OrientationConfig `yaml:"orientation"`
}

// ---- SERIAL LINK ----

type SerialConfig struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// Read timeout in milliseconds
	TimeoutMs int `yaml:"timeout_ms"`
}

// ---- SENSOR ----

type SensorConfig struct {
	// Full scale in g: 2, 4 or 8
	ScaleG int `yaml:"scale_g"`

	// Output data rate in Hz. An explicit 0 disables streaming, which
	// is distinct from leaving the field unset (default 800).
	RateHz *float64 `yaml:"rate_hz"`
}

// ---- SHAKE DETECTION ----

type ShakeConfig struct {
	ThresholdG float64 `yaml:"threshold_g"`
}

// ---- ORIENTATION TRACKING ----

type OrientationConfig struct {
	BufferLength int     `yaml:"buffer_length"`
	Suppression  float64 `yaml:"suppression"`
}

// Load reads and parses a configuration file. The result still needs
// ApplyDefaults and Validate before use.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}
