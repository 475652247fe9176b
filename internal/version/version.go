// Package version tracks the binary version reported by the CLI.
package version

// Version is the released version. Overridable at build time via
// -ldflags "-X github.com/agentmem/agentmem/internal/version.Version=...".
var Version = "0.1.0"

// GetCurrentVersion returns the version string, suffixed with the mode for
// non-production builds.
func GetCurrentVersion(mode string) string {
	if mode == "prod" {
		return Version
	}
	return Version + "-" + mode
}
