package version

import "fmt"

var (
	// Version is the current application version
	Version = "dev"
	// GitSHA is the git commit SHA
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String formats the build metadata for the version command. Set the
// variables at link time with -ldflags "-X".
func String() string {
	return fmt.Sprintf("eim %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
