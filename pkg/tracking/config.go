package tracking

import (
	"fmt"
	"strings"
	"time"
)

// Preset names accepted by Preset.
const (
	PresetDefault    = "default"
	PresetResponsive = "responsive"
	PresetSteady     = "steady"
)

// Config holds the tunable parameters for angular tracking
type Config struct {
	// History
	Capacity int // Ring buffer size in samples

	// Velocity estimation
	SmoothingWindow int           // Number of recent velocities averaged
	MaxSampleGap    time.Duration // Velocity is undefined across larger gaps (0 = no limit)
}

// DefaultConfig returns the recommended tracking configuration.
// The smoothing window is fixed at 5 so predictions are reproducible.
func DefaultConfig() Config {
	return Config{
		Capacity:        64,              // ~2s of history at 30fps
		SmoothingWindow: 5,               // mean of the last 5 velocities
		MaxSampleGap:    1 * time.Second, // longer gaps start a new run
	}
}

// ResponsiveConfig returns a configuration that reacts faster to speed changes
func ResponsiveConfig() Config {
	cfg := DefaultConfig()
	cfg.SmoothingWindow = 3
	cfg.MaxSampleGap = 500 * time.Millisecond
	return cfg
}

// SteadyConfig returns a configuration that favours jitter rejection
func SteadyConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 128
	cfg.SmoothingWindow = 9
	return cfg
}

// Preset returns the named configuration. Names are case-insensitive and ""
// selects the default.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PresetDefault:
		return DefaultConfig(), nil
	case PresetResponsive:
		return ResponsiveConfig(), nil
	case PresetSteady:
		return SteadyConfig(), nil
	default:
		return Config{}, fmt.Errorf("%w: unknown preset %q (want %s, %s or %s)",
			ErrInvalidConfig, name, PresetDefault, PresetResponsive, PresetSteady)
	}
}

// Validate checks the configuration for values the tracker cannot work with.
func (c Config) Validate() error {
	if c.Capacity < 2 {
		return fmt.Errorf("%w: capacity %d, need at least 2", ErrInvalidConfig, c.Capacity)
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("%w: smoothing window %d", ErrInvalidConfig, c.SmoothingWindow)
	}
	if c.SmoothingWindow > c.Capacity-1 {
		return fmt.Errorf("%w: smoothing window %d exceeds capacity %d",
			ErrInvalidConfig, c.SmoothingWindow, c.Capacity)
	}
	if c.MaxSampleGap < 0 {
		return fmt.Errorf("%w: negative max sample gap", ErrInvalidConfig)
	}
	return nil
}
