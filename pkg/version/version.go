// Package version provides build and version information for docsearch.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// EngineModule is the module path of the search engine library.
const EngineModule = "github.com/blevesearch/bleve/v2"

// Build information, set via ldflags:
//
//	-X github.com/Aman-CERP/docsearch/pkg/version.Version=$(VERSION)
//	-X github.com/Aman-CERP/docsearch/pkg/version.Commit=$(COMMIT)
//	-X github.com/Aman-CERP/docsearch/pkg/version.Date=$(DATE)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Engine    string `json:"engine"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns structured version information. Commit and date fall
// back to the VCS stamp embedded by the Go toolchain.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Engine:    "unknown",
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, dep := range bi.Deps {
		if dep.Path == EngineModule {
			info.Engine = dep.Version
		}
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = shortCommit(s.Value)
		case s.Key == "vcs.time" && info.Date == "unknown":
			info.Date = s.Value
		}
	}
	return info
}

func shortCommit(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String returns a one-line summary of the build.
func String() string {
	i := GetInfo()
	return fmt.Sprintf("docsearch %s (commit: %s, built: %s, go: %s, bleve: %s)",
		i.Version, i.Commit, i.Date, i.GoVersion, i.Engine)
}

// Short returns just the version string.
func Short() string {
	return Version
}
