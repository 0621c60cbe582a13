package config

import "mma8452/core"

// ApplyDefaults fills in zero-valued fields. It is allowed to mutate
// the configuration and runs before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 115200
	}
	if cfg.Serial.TimeoutMs == 0 {
		cfg.Serial.TimeoutMs = 100
	}

	if cfg.Sensor.ScaleG == 0 {
		cfg.Sensor.ScaleG = core.DefaultScaleRange
	}
	if cfg.Sensor.RateHz == nil {
		rate := core.DefaultOutputRate
		cfg.Sensor.RateHz = &rate
	}

	if cfg.Shake.ThresholdG == 0 {
		cfg.Shake.ThresholdG = core.DefaultShakeThreshold
	}

	if cfg.Orientation.BufferLength == 0 {
		cfg.Orientation.BufferLength = core.DefaultBufferLength
	}
	if cfg.Orientation.Suppression == 0 {
		cfg.Orientation.Suppression = core.DefaultSuppression
	}
}
