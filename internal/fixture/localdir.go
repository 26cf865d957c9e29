package fixture

import (
	"os"
	"path/filepath"

	"github.com/kaizengine/shopfloor/internal/errors"
)

// LocalDir is the simplest fixture: a plain directory with no VCS.
// It cannot fork and checkpoints are no-ops.
type LocalDir struct {
	path string
}

// NewLocalDir creates a LocalDir fixture rooted at path.
func NewLocalDir(path string) *LocalDir {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &LocalDir{path: abs}
}

// Setup creates the directory if missing. Idempotent.
func (f *LocalDir) Setup() (string, error) {
	if err := os.MkdirAll(f.path, 0o755); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}
	return f.path, nil
}

// Checkpoint is a no-op: there is no VCS to snapshot.
func (f *LocalDir) Checkpoint(message string) (string, error) {
	return "", nil
}

// Teardown preserves the directory.
func (f *LocalDir) Teardown() error {
	return nil
}

// Fork is unsupported on plain directories.
func (f *LocalDir) Fork(name string) (Fixture, error) {
	return nil, errors.NewFixtureError("fork", f.path, errors.ErrForkUnsupported)
}

// Path returns the working directory.
func (f *LocalDir) Path() string { return f.path }

// Kind returns KindLocalDir.
func (f *LocalDir) Kind() Kind { return KindLocalDir }
