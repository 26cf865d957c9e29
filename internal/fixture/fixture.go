// Package fixture provides the isolated on-disk execution contexts that
// workstations operate in. A fixture owns a working directory and a
// version-control handle, and exposes a uniform lifecycle: setup,
// checkpoint, fork, teardown.
//
// Four variants exist:
//   - LocalDir: a plain directory with no VCS; cannot fork.
//   - Repo: a git repository; the primary working directory. Fork produces
//     a Worktree on a dedicated branch.
//   - Worktree: an isolated working copy created by Fork, sharing the
//     parent's object store. Near-instant to create.
//   - Clone: a fresh clone of a remote or local repository, for contexts
//     that cannot share the local filesystem.
//
// Exactly one workstation owns a fixture at a time. A forked fixture is a
// distinct instance with its own directory and branch; it never shares
// mutable VCS state with its parent while both are live.
package fixture

import (
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
)

// Kind identifies the fixture variant. Construction is always by explicit
// kind, never by runtime type inspection.
type Kind string

const (
	// KindLocalDir is a plain directory with no version control.
	KindLocalDir Kind = "localdir"
	// KindRepo wraps an existing or newly initialized git repository.
	KindRepo Kind = "repo"
	// KindWorktree is an isolated working copy on a dedicated branch.
	KindWorktree Kind = "worktree"
	// KindClone performs a fresh clone before behaving as a repository.
	KindClone Kind = "clone"
)

// Fixture manages the working directory where a work order executes.
type Fixture interface {
	// Setup prepares the fixture and returns the working directory path.
	// It is idempotent: calling Setup on an already prepared fixture
	// returns the same path without side effects.
	Setup() (string, error)

	// Checkpoint commits the current working-directory state under the
	// given message. Returns the commit hash, or "" when there is nothing
	// to commit (a no-op success).
	Checkpoint(message string) (string, error)

	// Teardown removes the isolated working copy and, depending on kind,
	// the associated branch. LocalDir and Repo teardowns preserve the
	// directory itself.
	Teardown() error

	// Fork creates an isolated child fixture named deterministically from
	// this fixture's identity and the given name. Only repository-backed
	// fixtures can fork; others return a FixtureError.
	Fork(name string) (Fixture, error)

	// Path returns the absolute working directory path.
	Path() string

	// Kind returns the fixture variant.
	Kind() Kind
}

// Brancher is implemented by git-backed fixtures that carry a branch the
// assembly station can merge.
type Brancher interface {
	Branch() string
}

// Detect inspects a path and returns the fixture kind that matches what is
// on disk: KindWorktree when .git is a file (a linked working copy),
// KindRepo when the path is inside a repository, KindLocalDir otherwise.
// KindClone is never detected; it is an explicit caller choice.
func Detect(path string) Kind {
	gitPath := filepath.Join(path, ".git")
	if info, err := os.Stat(gitPath); err == nil {
		if info.Mode().IsRegular() {
			return KindWorktree
		}
		if info.IsDir() {
			return KindRepo
		}
	}
	// The path may still sit below a repository root.
	if _, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{DetectDotGit: true}); err == nil {
		return KindRepo
	}
	return KindLocalDir
}
