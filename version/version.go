// Package version reports the build identity of the audiolens binary.
// Version, GitCommit and BuildTime are set with -ldflags; missing values are
// filled from the module build info.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// ServiceName is the name the binary reports in logs, telemetry and /version.
const ServiceName = "audiolens"

var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the build identity.
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the build identity of the running binary.
func Get() Info {
	info := Info{
		Service:   ServiceName,
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = shortCommit(s.Value)
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// IsRelease reports whether the binary was built from a tagged, clean tree.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty && !strings.Contains(i.Version, "dirty")
}

// Short is "<version>[-<commit>][-dirty]".
func (i Info) Short() string {
	parts := []string{i.Version}
	if i.GitCommit != "" {
		parts = append(parts, i.GitCommit)
	}
	if i.Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

// String is Short plus the build date when known.
func (i Info) String() string {
	s := i.Short()
	if t, err := time.Parse(time.RFC3339, i.BuildTime); err == nil {
		s += fmt.Sprintf(" (built %s)", t.UTC().Format("2006-01-02T15:04:05Z"))
	}
	return s
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}
