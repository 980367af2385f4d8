package version

import "strings"

// Set at build time via -ldflags.
var (
	Version = "0.1.0"
	Commit  = ""
)

// Resolve returns the version string, with a short commit suffix when the
// binary was built from a non-release commit.
func Resolve() string {
	base := Version
	if base == "" {
		base = "0.0.0"
	}

	commit := strings.TrimSpace(Commit)
	if commit == "" {
		return base
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return base + "+" + commit
}
