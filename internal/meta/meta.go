// Package meta collects the static environment snapshot merged into every
// result record of a run.
//
// Collection happens once per run, never per case, so every record of a run
// carries the identical snapshot. Individual probes fail soft: running
// outside a git repository or on a platform without a RAM probe records
// empty or zero fields rather than failing the run.
package meta

import (
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/mod/semver"

	"github.com/gobench-cli/gobench/internal/vcs"
)

// Metadata is the per-run environment snapshot.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Platform  string    `json:"platform"`
	GoVersion string    `json:"go_version"`
	Hostname  string    `json:"hostname,omitempty"`
	CPUCount  int       `json:"cpu_count"`
	RAMBytes  uint64    `json:"ram_bytes,omitempty"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Version   string    `json:"version,omitempty"`
}

// Value returns the metadata field named by a partition key. The key names
// match the JSON field names ("commit", "branch", ...). Unknown keys return
// false.
func (m Metadata) Value(key string) (string, bool) {
	switch key {
	case "commit":
		return m.Commit, true
	case "branch":
		return m.Branch, true
	case "version":
		return m.Version, true
	case "platform":
		return m.Platform, true
	case "hostname":
		return m.Hostname, true
	case "go_version":
		return m.GoVersion, true
	default:
		return "", false
	}
}

// Collect gathers the snapshot for a run rooted at dir.
func Collect(dir string) Metadata {
	md := Metadata{
		Timestamp: time.Now().UTC(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
		CPUCount:  runtime.NumCPU(),
		RAMBytes:  totalRAM(),
	}

	if hostname, err := os.Hostname(); err == nil {
		md.Hostname = hostname
	}

	if git, err := vcs.Detect(dir); err == nil {
		if commit, err := git.CommitID(); err == nil {
			md.Commit = commit
		}
		if branch, err := git.Branch(); err == nil {
			md.Branch = branch
		}
	}

	md.Version = projectVersion()

	return md
}

// projectVersion reads the main module version stamped into the build and
// normalizes it when it is valid semver. Development builds report "(devel)"
// which is kept as-is.
func projectVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	v := bi.Main.Version
	if semver.IsValid(v) {
		return semver.Canonical(v)
	}
	return v
}
