package config

import (
	"fmt"
)

// Validate checks configuration correctness after defaults have been
// applied. It performs declarative validation only and MUST NOT
// mutate the configuration.
func Validate(cfg *Config) error {
	if cfg.Serial.Device == "" {
		return fmt.Errorf("serial: device path is required")
	}
	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("serial: baud must be positive, got %d", cfg.Serial.Baud)
	}
	if cfg.Serial.TimeoutMs < 0 {
		return fmt.Errorf("serial: timeout_ms must not be negative, got %d", cfg.Serial.TimeoutMs)
	}

	switch cfg.Sensor.ScaleG {
	case 2, 4, 8:
	default:
		return fmt.Errorf("sensor: scale_g must be 2, 4 or 8, got %d", cfg.Sensor.ScaleG)
	}
	if cfg.Sensor.RateHz == nil {
		return fmt.Errorf("sensor: rate_hz is unset; apply defaults before validating")
	}
	if *cfg.Sensor.RateHz < 0 {
		return fmt.Errorf("sensor: rate_hz must not be negative, got %v", *cfg.Sensor.RateHz)
	}

	if cfg.Shake.ThresholdG <= 0 {
		return fmt.Errorf("shake: threshold_g must be positive, got %v", cfg.Shake.ThresholdG)
	}

	if cfg.Orientation.BufferLength < 2 {
		return fmt.Errorf("orientation: buffer_length must be at least 2, got %d", cfg.Orientation.BufferLength)
	}
	if cfg.Orientation.Suppression <= 0.0001 {
		return fmt.Errorf("orientation: suppression must exceed 0.0001, got %v", cfg.Orientation.Suppression)
	}

	return nil
}
