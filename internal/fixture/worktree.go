package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kaizengine/shopfloor/internal/errors"
)

// sopArtifacts are materialized into the working directory at commission
// time and must never travel through checkpoints or merges.
var sopArtifacts = []string{".claude/", "CLAUDE.md"}

// Worktree is an isolated working copy on a dedicated branch, created by
// forking a Repo (or another Worktree). It shares the parent's object
// store, so creation is near-instant.
type Worktree struct {
	parentPath string
	path       string
	branch     string
}

// Setup creates the worktree via `git worktree add -b`. If the directory
// already exists the existing worktree is reused, so retries of the same
// fork name are idempotent.
func (f *Worktree) Setup() (string, error) {
	if _, err := os.Stat(f.path); err == nil {
		if err := ensureIgnored(f.path, sopArtifacts); err != nil {
			return "", errors.NewFixtureError("setup", f.path, err)
		}
		return f.path, nil
	}

	if _, err := runGit(f.parentPath, "worktree", "add", "-b", f.branch, f.path, "HEAD"); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}
	if err := ensureIgnored(f.path, sopArtifacts); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}
	return f.path, nil
}

// Checkpoint commits all changes inside the worktree.
func (f *Worktree) Checkpoint(message string) (string, error) {
	hash, err := commitAll(f.path, message)
	if err != nil {
		return "", errors.NewFixtureError("checkpoint", f.path, err)
	}
	return hash, nil
}

// Teardown removes the worktree, deletes its branch, and prunes stale
// worktree references. Removal falls back to deleting the directory when
// git cannot remove it cleanly.
func (f *Worktree) Teardown() error {
	if _, err := runGit(f.parentPath, "worktree", "remove", "--force", f.path); err != nil {
		_ = os.RemoveAll(f.path)
	}
	_, _ = runGit(f.parentPath, "branch", "-D", f.branch)
	_, _ = runGit(f.parentPath, "worktree", "prune")
	return nil
}

// Fork creates a nested worktree sharing the same object store. Branch
// names use a '-' separator: git cannot hold both refs/heads/sf/x and
// refs/heads/sf/x/y.
func (f *Worktree) Fork(name string) (Fixture, error) {
	if name == "" {
		return nil, errors.NewFixtureError("fork", f.path, fmt.Errorf("empty fork name"))
	}
	name = sanitizeName(name)
	return &Worktree{
		parentPath: f.parentPath,
		path:       filepath.Join(filepath.Dir(f.path), fmt.Sprintf(worktreeDirPattern, name)),
		branch:     f.branch + "-" + name,
	}, nil
}

// Path returns the worktree directory.
func (f *Worktree) Path() string { return f.path }

// Kind returns KindWorktree.
func (f *Worktree) Kind() Kind { return KindWorktree }

// Branch returns the worktree's dedicated branch.
func (f *Worktree) Branch() string { return f.branch }

// ParentPath returns the repository the worktree was forked from.
func (f *Worktree) ParentPath() string { return f.parentPath }
