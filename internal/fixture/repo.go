package fixture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/kaizengine/shopfloor/internal/errors"
)

// branchPrefix namespaces shop-floor branches in the underlying repository.
const branchPrefix = "sf/"

// worktreeDirPattern derives a fork's working directory name.
const worktreeDirPattern = ".sf-worktree-%s"

// Repo is the primary fixture: a git repository working directory.
// Setup initializes a repository when none exists; Fork produces Worktree
// children on dedicated branches.
type Repo struct {
	path   string
	branch string
}

// NewRepo creates a Repo fixture rooted at path. The branch is resolved
// during Setup when left empty.
func NewRepo(path string) *Repo {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Repo{path: abs}
}

// Setup validates or initializes the repository and guarantees a baseline
// commit exists so diffs and merges have a stable root. Idempotent.
func (f *Repo) Setup() (string, error) {
	if err := os.MkdirAll(f.path, 0o755); err != nil {
		return "", errors.NewFixtureError("setup", f.path, err)
	}

	if _, err := gogit.PlainOpen(f.path); err != nil {
		if err != gogit.ErrRepositoryNotExists {
			return "", errors.NewFixtureError("setup", f.path, err)
		}
		if _, err := runGit(f.path, "init"); err != nil {
			return "", errors.NewFixtureError("setup", f.path, err)
		}
	}

	// An existing repo may have no commits yet.
	if _, err := runGit(f.path, "rev-parse", "HEAD"); err != nil {
		if _, err := runGit(f.path, "add", "-A"); err != nil {
			return "", errors.NewFixtureError("setup", f.path, err)
		}
		if _, err := runGit(f.path, "commit", "--allow-empty", "-m", "baseline: initial commit"); err != nil {
			return "", errors.NewFixtureError("setup", f.path, err)
		}
	}

	if f.branch == "" {
		f.branch = f.currentBranch()
	}
	return f.path, nil
}

// currentBranch resolves the checked-out branch via go-git, falling back
// to "main" on detached or unborn HEADs.
func (f *Repo) currentBranch() string {
	repo, err := gogit.PlainOpen(f.path)
	if err != nil {
		return "main"
	}
	head, err := repo.Head()
	if err != nil || !head.Name().IsBranch() {
		return "main"
	}
	return head.Name().Short()
}

// Checkpoint commits all changes. Returns "" when the tree is clean.
func (f *Repo) Checkpoint(message string) (string, error) {
	hash, err := commitAll(f.path, message)
	if err != nil {
		return "", errors.NewFixtureError("checkpoint", f.path, err)
	}
	return hash, nil
}

// Teardown prunes stale worktrees. The repository itself is preserved.
func (f *Repo) Teardown() error {
	_, _ = runGit(f.path, "worktree", "prune")
	return nil
}

// Fork creates an isolated Worktree child. The child's branch and working
// directory are deterministic functions of this repository and the name:
// branch "sf/<name>", path "<repo-parent>/.sf-worktree-<name>". Retries of
// the same name reuse the same scheme and never collide with siblings.
func (f *Repo) Fork(name string) (Fixture, error) {
	if name == "" {
		return nil, errors.NewFixtureError("fork", f.path, fmt.Errorf("empty fork name"))
	}
	name = sanitizeName(name)
	return &Worktree{
		parentPath: f.path,
		path:       filepath.Join(filepath.Dir(f.path), fmt.Sprintf(worktreeDirPattern, name)),
		branch:     branchPrefix + name,
	}, nil
}

// Path returns the working directory.
func (f *Repo) Path() string { return f.path }

// Kind returns KindRepo.
func (f *Repo) Kind() Kind { return KindRepo }

// Branch returns the repository's checked-out branch.
func (f *Repo) Branch() string {
	if f.branch == "" {
		return f.currentBranch()
	}
	return f.branch
}

// sanitizeName keeps fork names safe for branch refs and directory names.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
