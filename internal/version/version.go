package version

// Version contains the application version information.
// This should be set via build-time ldflags in production:
// go build -ldflags "-X git.home.luguber.info/inful/snapbridge/internal/version.Version=v0.3.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns a single-line description used by `--version` and the admin health endpoint.
func String() string {
	return Version + " (commit " + GitCommit + ", built " + BuildTime + ")"
}
