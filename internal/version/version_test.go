package version

import (
	"strings"
	"testing"
)

func TestStringIncludesBuildInfo(t *testing.T) {
	old := [3]string{Version, GitCommit, BuildTime}
	t.Cleanup(func() { Version, GitCommit, BuildTime = old[0], old[1], old[2] })

	Version, GitCommit, BuildTime = "v0.2.0", "abc123", "2025-01-01"
	got := String()
	for _, want := range []string{"v0.2.0", "commit abc123", "built 2025-01-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}

func TestDefaultsAreSet(t *testing.T) {
	if Version == "" || GitCommit == "" || BuildTime == "" {
		t.Error("build info variables must never be empty")
	}
}
