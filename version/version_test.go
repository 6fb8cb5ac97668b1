package version

import "testing"

// setBuildInfo overrides the ldflags variables for one test and restores
// them on cleanup.
func setBuildInfo(t *testing.T, version, commit, buildTime string) {
	t.Helper()

	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = origVersion, origCommit, origBuildTime
	})

	Version, GitCommit, BuildTime = version, commit, buildTime
}

func TestVersionNotEmpty(t *testing.T) {
	// "dev" locally; CI may inject a release version via ldflags.
	if Version == "" {
		t.Error("Version must never be empty")
	}
}

func TestFull(t *testing.T) {
	tests := []struct {
		name      string
		version   string
		commit    string
		buildTime string
		want      string
	}{
		{
			name:    "version only",
			version: "0.3.0",
			want:    "0.3.0",
		},
		{
			name:    "version and commit",
			version: "0.3.0",
			commit:  "f00dcafe",
			want:    "0.3.0-f00dcafe",
		},
		{
			name:      "version and build time",
			version:   "0.3.0",
			buildTime: "2026-08-30T09:00:00Z",
			want:      "0.3.0 (2026-08-30T09:00:00Z)",
		},
		{
			name:      "all fields",
			version:   "0.3.0",
			commit:    "f00dcafe",
			buildTime: "2026-08-30T09:00:00Z",
			want:      "0.3.0-f00dcafe (2026-08-30T09:00:00Z)",
		},
		{
			name:    "dev build",
			version: "dev",
			want:    "dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBuildInfo(t, tt.version, tt.commit, tt.buildTime)
			if got := Full(); got != tt.want {
				t.Errorf("Full() = %q, want %q", got, tt.want)
			}
		})
	}
}
