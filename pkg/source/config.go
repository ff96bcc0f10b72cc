// Package source provides frame sources for the prediction pipeline: live or
// recorded video through gocv, ordered image directories, and in-memory frames.
package source

import (
	"fmt"
	"strings"
)

// Kinds of frame source.
const (
	KindCapture   = "capture"   // camera index, video file or stream URL
	KindDirectory = "directory" // ordered image files
)

// Config selects and tunes a frame source.
type Config struct {
	Kind string `mapstructure:"kind" json:"kind"`
	URI  string `mapstructure:"uri" json:"uri"` // device index ("0"), file path, URL or directory

	// Capture settings, 0 keeps the device default
	Width  int     `mapstructure:"width" json:"width"`
	Height int     `mapstructure:"height" json:"height"`
	FPS    float64 `mapstructure:"fps" json:"fps"` // also paces directory timestamps

	// Loop restarts a directory from its first image when exhausted
	Loop bool `mapstructure:"loop" json:"loop"`
}

// DefaultConfig returns the first local camera at its native resolution.
func DefaultConfig() Config {
	return Config{
		Kind: KindCapture,
		URI:  "0",
		FPS:  30,
	}
}

// Validate returns a list of problems, empty when the config is usable.
func (c Config) Validate() []string {
	var errs []string

	switch strings.ToLower(c.Kind) {
	case KindCapture, KindDirectory:
	default:
		errs = append(errs, fmt.Sprintf("kind must be %q or %q, got %q", KindCapture, KindDirectory, c.Kind))
	}
	if strings.TrimSpace(c.URI) == "" {
		errs = append(errs, "uri is required")
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, fmt.Sprintf("resolution must not be negative, got %dx%d", c.Width, c.Height))
	}
	if c.FPS < 0 {
		errs = append(errs, fmt.Sprintf("fps must not be negative, got %v", c.FPS))
	}
	if strings.EqualFold(c.Kind, KindDirectory) && c.FPS == 0 {
		errs = append(errs, "fps is required to timestamp directory frames")
	}

	return errs
}
