package fixture

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// runGit runs a git command in dir and returns its stdout. Failures wrap
// the combined output so callers can surface git's own diagnostics.
func runGit(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, string(output))
	}
	return string(output), nil
}

// hasChanges reports whether the working tree at dir has staged or
// unstaged changes.
func hasChanges(dir string) (bool, error) {
	out, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// commitAll stages everything and commits. Returns the new commit hash,
// or "" when the tree is clean.
func commitAll(dir, message string) (string, error) {
	if _, err := runGit(dir, "add", "-A"); err != nil {
		return "", err
	}
	dirty, err := hasChanges(dir)
	if err != nil {
		return "", err
	}
	if !dirty {
		return "", nil
	}
	if _, err := runGit(dir, "commit", "-m", message); err != nil {
		return "", err
	}
	out, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ensureIgnored appends the given entries to the .gitignore at dir if they
// are not already present. Keeps materialized SOP artifacts out of
// checkpoints and merges.
func ensureIgnored(dir string, entries []string) error {
	path := filepath.Join(dir, ".gitignore")

	existing := make(map[string]bool)
	if data, err := os.ReadFile(path); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			existing[strings.TrimSpace(line)] = true
		}
	}

	var missing []string
	for _, e := range entries {
		if !existing[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strings.Join(missing, "\n") + "\n")
	return err
}
