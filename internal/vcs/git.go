// Package vcs provides the git lookups the metadata collector needs:
// commit id, branch name, and a human-readable describe string.
//
// All operations shell out to the git binary. Failures are soft from the
// caller's perspective: a benchmark run outside a repository simply records
// empty commit metadata.
package vcs

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotRepository is returned when the directory is not inside a git
// repository or the git binary is unavailable.
var ErrNotRepository = errors.New("not inside a git repository")

// Git wraps git commands rooted at a repository.
type Git struct {
	// repoRoot is the repository root directory path
	repoRoot string
}

// Detect locates the repository containing dir.
func Detect(dir string) (*Git, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return nil, ErrNotRepository
	}

	root := strings.TrimSpace(string(output))
	if root == "" {
		return nil, ErrNotRepository
	}

	return &Git{repoRoot: root}, nil
}

// Root returns the repository root directory.
func (g *Git) Root() string {
	return g.repoRoot
}

// CommitID returns the full hash of HEAD.
func (g *Git) CommitID() (string, error) {
	return g.revParse("HEAD")
}

// ShortCommitID returns the abbreviated hash of HEAD.
func (g *Git) ShortCommitID() (string, error) {
	return g.revParse("--short", "HEAD")
}

// Branch returns the current branch name. Detached HEAD reports "HEAD",
// matching git's own output.
func (g *Git) Branch() (string, error) {
	return g.revParse("--abbrev-ref", "HEAD")
}

// Describe returns `git describe --tags --always` for HEAD, useful as a
// human-readable version when no module version is stamped.
func (g *Git) Describe() (string, error) {
	cmd := exec.Command("git", "describe", "--tags", "--always")
	cmd.Dir = g.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git describe failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

func (g *Git) revParse(args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"rev-parse"}, args...)...)
	cmd.Dir = g.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}
