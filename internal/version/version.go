// Package version holds build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build metadata as a single line for --version output.
func String() string {
	return fmt.Sprintf("matchdex %s (commit %s, built %s)", Version, Commit, Date)
}
