// Package buildinfo carries version metadata injected at build time.
package buildinfo

// These values are set via -ldflags for release binaries and default to
// empty for local builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// Short returns a human-readable version string.
func Short() string {
	v := Version
	if v == "" {
		v = "dev"
	}
	if Commit != "" {
		v += " (" + Commit + ")"
	}
	return v
}
