package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build variables to be set via ldflags during compilation:
// -X 'github.com/relembraq/relembraq/pkg/version.Version=v1.0.0'
// -X 'github.com/relembraq/relembraq/pkg/version.CommitHash=abc123'
// -X 'github.com/relembraq/relembraq/pkg/version.BuildDate=2024-01-01T00:00:00Z'
var (
	Version    = "unknown"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)

// Info returns build information in a structured format
type Info struct {
	Version    string `json:"version"`
	CommitHash string `json:"commit_hash"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
}

// Get returns the injected build information, falling back to the module
// version and VCS revision embedded by the Go toolchain.
func Get() Info {
	info := Info{
		Version:    Version,
		CommitHash: CommitHash,
		BuildDate:  BuildDate,
		GoVersion:  runtime.Version(),
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "unknown" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, setting := range bi.Settings {
		switch {
		case setting.Key == "vcs.revision" && info.CommitHash == "unknown":
			info.CommitHash = setting.Value
		case setting.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = setting.Value
		}
	}
	return info
}

func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s, %s)", i.Version, i.CommitHash, i.BuildDate, i.GoVersion)
}
