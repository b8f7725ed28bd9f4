// Package buildinfo carries the version and commit stamped into the dnsq
// and dnsqd binaries at link time.
package buildinfo

// Version is set at link-time with -ldflags "-X github.com/lc/dnsq/internal/buildinfo.Version=...".
var Version = "v0.3.0"

// Commit is set at link-time with -ldflags.
// Default is "unknown" so tests and "go run ." still work.
var Commit = "unknown"

// UserAgent is sent by pkg/client on every lookup request.
func UserAgent() string {
	return "dnsq/" + Version
}
