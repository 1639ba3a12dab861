// Package version carries build metadata injected with -ldflags.
package version

import "strings"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Built   string `json:"built"`
}

// Get returns build metadata with blank values replaced by defaults.
func Get() Info {
	return Info{
		Version: safeValue(Version, "dev"),
		Commit:  safeValue(CommitHash, "unknown"),
		Built:   safeValue(BuildDate, "unknown"),
	}
}

// Summary returns a human-friendly version string for CLI output.
func Summary() string {
	return Get().Version
}

func safeValue(value, fallback string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	return trimmed
}
