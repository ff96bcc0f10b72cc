// Package version holds build metadata set with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/teslashibe/go-roulette/internal/version.Version=v0.3.0"
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String returns a one-line description of the build.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
