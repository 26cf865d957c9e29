// Package testutil provides shared helpers for ShopFloor tests that need
// real git repositories on disk.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// SetupTestRepo creates a temporary git repository with one baseline commit
// on a "main" branch. The repository lives in a subdirectory of the test's
// temp dir so fixture forks (which create sibling directories) stay inside
// the cleaned-up area.
func SetupTestRepo(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "repo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create repo dir: %v", err)
	}

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@shopfloor.dev")
	runGit(t, dir, "config", "user.name", "ShopFloor Test")

	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Test Repository\n"), 0o644); err != nil {
		t.Fatalf("failed to create README: %v", err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")
	runGit(t, dir, "branch", "-M", "main")

	return dir
}

// ConfigureGitIdentity points GIT_CONFIG_GLOBAL at a throwaway config file
// carrying a test identity, so commits made outside SetupTestRepo repos
// succeed on machines with no global git configuration.
func ConfigureGitIdentity(t *testing.T) {
	t.Helper()

	cfg := filepath.Join(t.TempDir(), "gitconfig")
	content := "[user]\n\tname = ShopFloor Test\n\temail = test@shopfloor.dev\n[init]\n\tdefaultBranch = main\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write git config: %v", err)
	}
	t.Setenv("GIT_CONFIG_GLOBAL", cfg)
}

// CommitFile creates or updates a file and commits it.
func CommitFile(t *testing.T, repoDir, path, content, message string) {
	t.Helper()

	fullPath := filepath.Join(repoDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	runGit(t, repoDir, "add", path)
	runGit(t, repoDir, "commit", "-m", message)
}

// WriteFile writes a file without committing it.
func WriteFile(t *testing.T, dir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// GetCurrentBranch returns the checked-out branch name.
func GetCurrentBranch(t *testing.T, repoDir string) string {
	t.Helper()
	return strings.TrimSpace(gitOutput(t, repoDir, "rev-parse", "--abbrev-ref", "HEAD"))
}

// GetCommitCount returns the number of commits reachable from HEAD.
func GetCommitCount(t *testing.T, repoDir string) int {
	t.Helper()

	out := strings.TrimSpace(gitOutput(t, repoDir, "rev-list", "--count", "HEAD"))
	count, err := strconv.Atoi(out)
	if err != nil {
		t.Fatalf("failed to parse commit count %q: %v", out, err)
	}
	return count
}

// HasUncommittedChanges reports whether the working tree is dirty.
func HasUncommittedChanges(t *testing.T, repoDir string) bool {
	t.Helper()
	return strings.TrimSpace(gitOutput(t, repoDir, "status", "--porcelain")) != ""
}

// BranchExists reports whether a local branch exists in the repository.
func BranchExists(t *testing.T, repoDir, branch string) bool {
	t.Helper()

	cmd := exec.Command("git", "rev-parse", "--verify", "refs/heads/"+branch)
	cmd.Dir = repoDir
	return cmd.Run() == nil
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, output)
	}
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %s failed: %v", strings.Join(args, " "), err)
	}
	return string(output)
}
