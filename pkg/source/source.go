package source

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teslashibe/go-roulette/pkg/vision"
)

// ErrInvalidConfig is returned by Open for an unusable config.
var ErrInvalidConfig = errors.New("source: invalid config")

// Source yields frames in arrival order. Next returns a nil frame when none
// is available yet and io.EOF when the source is exhausted.
type Source interface {
	Next() (*vision.Frame, error)
	Close() error
}

// Open builds the source described by cfg.
func Open(cfg Config) (Source, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	switch strings.ToLower(cfg.Kind) {
	case KindDirectory:
		return OpenDirectory(cfg.URI, cfg.FPS, cfg.Loop)
	default:
		return OpenCapture(cfg)
	}
}
