// Package buildinfo holds version metadata injected at link time.
package buildinfo

// Set with -ldflags "-X github.com/modoterra/adminlog/internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
