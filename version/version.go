// Package version holds build-time version information.
// Values are injected via -ldflags at release time.
package version

var (
	// GitRelease is the release tag this binary was built from.
	GitRelease = "dev"

	// GitCommit is the commit hash this binary was built from.
	GitCommit = "unknown"
)
