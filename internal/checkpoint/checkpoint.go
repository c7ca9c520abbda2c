// Package checkpoint captures working-tree snapshots around lifecycle
// transitions, backed by version control.
package checkpoint

import (
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Checkpoint describes one stored snapshot.
type Checkpoint struct {
	Name      string
	Commit    string
	CreatedAt time.Time
}

// Service is the checkpoint collaborator the transition engine depends on.
// GitService is the real implementation; tests substitute a Recorder.
type Service interface {
	// TreeDirty reports whether the working tree has uncommitted changes.
	TreeDirty() (bool, error)
	// Create snapshots the current tree under the given name. The id is
	// the owning work unit; name is the full checkpoint name.
	Create(id, name string) error
	// List returns the checkpoints recorded for a work unit, newest first.
	List(id string) ([]Checkpoint, error)
}

// Runner executes version-control commands. Factored out so checkpoint
// tests can run without a git repository.
type Runner interface {
	Output(dir, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the local machine.
type ExecRunner struct{}

func (ExecRunner) Output(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	return cmd.Output()
}

// refPrefix is where checkpoint refs live, out of the way of branches.
const refPrefix = "refs/fspec/checkpoints/"

// GitService stores checkpoints as git refs over stash commits. `git stash
// create` captures the dirty tree without touching it or the index, and the
// ref keeps the commit reachable; the user's branch never notices.
type GitService struct {
	Dir string // repository directory
	Run Runner
}

// NewGitService returns a GitService for the given repository directory.
func NewGitService(dir string) *GitService {
	return &GitService{Dir: dir, Run: ExecRunner{}}
}

// TreeDirty reports whether `git status --porcelain` prints anything.
func (g *GitService) TreeDirty() (bool, error) {
	out, err := g.Run.Output(g.Dir, "git", "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) > 0, nil
}

// Create snapshots the dirty tree under refs/fspec/checkpoints/<name>.
func (g *GitService) Create(id, name string) error {
	out, err := g.Run.Output(g.Dir, "git", "stash", "create", name)
	if err != nil {
		return fmt.Errorf("git stash create: %w", err)
	}
	sha := strings.TrimSpace(string(out))
	if sha == "" {
		// Nothing to snapshot; a clean tree produces no stash commit.
		return nil
	}
	if _, err := g.Run.Output(g.Dir, "git", "update-ref", refPrefix+name, sha); err != nil {
		return fmt.Errorf("git update-ref: %w", err)
	}
	return nil
}

// List returns the checkpoints whose names start with "<id>-", newest
// first.
func (g *GitService) List(id string) ([]Checkpoint, error) {
	out, err := g.Run.Output(g.Dir, "git", "for-each-ref",
		"--sort=-creatordate",
		"--format=%(refname)%09%(objectname)%09%(creatordate:iso-strict)",
		refPrefix+id+"-*")
	if err != nil {
		return nil, fmt.Errorf("git for-each-ref: %w", err)
	}

	var cps []Checkpoint
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}
		cp := Checkpoint{
			Name:   strings.TrimPrefix(parts[0], refPrefix),
			Commit: parts[1],
		}
		if ts, err := time.Parse(time.RFC3339, parts[2]); err == nil {
			cp.CreatedAt = ts
		}
		cps = append(cps, cp)
	}
	return cps, nil
}
