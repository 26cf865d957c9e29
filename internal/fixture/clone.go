package fixture

import (
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"

	"github.com/kaizengine/shopfloor/internal/errors"
)

// Clone performs a fresh clone of a repository before behaving like a
// repository fixture. Used for execution contexts that cannot share the
// local filesystem with the parent.
type Clone struct {
	repoURL string
	path    string
	branch  string
}

// NewClone creates a Clone fixture that will clone repoURL into clonePath
// and work on the given branch. An empty branch defaults to a derived
// shop-floor branch name.
func NewClone(repoURL, clonePath, branch string) *Clone {
	abs, err := filepath.Abs(clonePath)
	if err != nil {
		abs = clonePath
	}
	if branch == "" {
		branch = branchPrefix + "clone-" + sanitizeName(filepath.Base(abs))
	}
	return &Clone{repoURL: repoURL, path: abs, branch: branch}
}

// Setup clones the repository and checks out the working branch.
// Idempotent: an existing clone directory is reused as-is.
func (f *Clone) Setup() (string, error) {
	if _, err := os.Stat(f.path); err == nil {
		return f.path, nil
	}

	if _, err := gogit.PlainClone(f.path, false, &gogit.CloneOptions{URL: f.repoURL}); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}
	if _, err := runGit(f.path, "checkout", "-b", f.branch); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}
	return f.path, nil
}

// Checkpoint commits all changes and best-effort pushes the working branch
// to origin for later integration. Push failure is non-fatal: the clone
// may be tracking a local path with no receiving end.
func (f *Clone) Checkpoint(message string) (string, error) {
	hash, err := commitAll(f.path, message)
	if err != nil {
		return "", errors.NewFixtureError("checkpoint", f.path, err)
	}
	if hash != "" {
		_, _ = runGit(f.path, "push", "-u", "origin", f.branch)
	}
	return hash, nil
}

// Teardown removes the clone directory entirely.
func (f *Clone) Teardown() error {
	if err := os.RemoveAll(f.path); err != nil {
		return errors.NewFixtureError("teardown", f.path, err)
	}
	return nil
}

// Fork creates another clone of the same source with a derived branch.
func (f *Clone) Fork(name string) (Fixture, error) {
	if name == "" {
		return nil, errors.NewFixtureError("fork", f.path, fmt.Errorf("empty fork name"))
	}
	name = sanitizeName(name)
	return &Clone{
		repoURL: f.repoURL,
		path:    filepath.Join(filepath.Dir(f.path), ".sf-clone-"+name),
		branch:  f.branch + "-" + name,
	}, nil
}

// Path returns the clone directory.
func (f *Clone) Path() string { return f.path }

// Kind returns KindClone.
func (f *Clone) Kind() Kind { return KindClone }

// Branch returns the clone's working branch.
func (f *Clone) Branch() string { return f.branch }
