package assembly

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizengine/shopfloor/internal/fixture"
	"github.com/kaizengine/shopfloor/internal/station"
	"github.com/kaizengine/shopfloor/internal/telemetry"
	"github.com/kaizengine/shopfloor/internal/testutil"
)

func setupParentAndChild(t *testing.T) (*station.Workstation, *station.Workstation) {
	t.Helper()

	dir := testutil.SetupTestRepo(t)
	parent := station.New(fixture.NewRepo(dir))
	_, err := parent.Commission(context.Background())
	require.NoError(t, err)

	child, err := parent.Spawn("wo-1")
	require.NoError(t, err)
	_, err = child.Commission(context.Background())
	require.NoError(t, err)

	return parent, child
}

func TestIntegrate_Success(t *testing.T) {
	parent, child := setupParentAndChild(t)

	testutil.WriteFile(t, child.Path(), "widget.go", "package widget\n")
	_, err := child.Checkpoint("add widget")
	require.NoError(t, err)

	result := (&Station{}).Integrate(context.Background(), parent, child)
	require.Equal(t, StatusSuccess, result.Status, result.Message)
	assert.Contains(t, result.MergedFiles, "widget.go")
	assert.FileExists(t, parent.Path()+"/widget.go")
}

func TestIntegrate_Conflict(t *testing.T) {
	parent, child := setupParentAndChild(t)
	metrics := telemetry.New()

	// Both sides change the same file with different content.
	testutil.CommitFile(t, parent.Path(), "shared.txt", "parent version\n", "parent edit")
	testutil.WriteFile(t, child.Path(), "shared.txt", "child version\n")
	_, err := child.Checkpoint("child edit")
	require.NoError(t, err)

	result := (&Station{Metrics: metrics}).Integrate(context.Background(), parent, child)
	require.Equal(t, StatusConflict, result.Status)
	assert.Contains(t, result.ConflictedFiles, "shared.txt")
	assert.NotEmpty(t, result.ConflictDiff)
	assert.Equal(t, 1, metrics.Snapshot().MergeConflicts)

	// The merge was aborted: parent tree is clean and keeps its version.
	assert.False(t, testutil.HasUncommittedChanges(t, parent.Path()))
	data, err := readParentFile(parent.Path(), "shared.txt")
	require.NoError(t, err)
	assert.Equal(t, "parent version\n", string(data))
}

func TestIntegrate_OperationalFailureIsNotConflict(t *testing.T) {
	parent, child := setupParentAndChild(t)
	metrics := telemetry.New()

	// The child commits a file the parent holds untracked; git refuses
	// the merge outright, leaving no unmerged paths behind.
	testutil.WriteFile(t, child.Path(), "shared.txt", "child version\n")
	_, err := child.Checkpoint("child edit")
	require.NoError(t, err)
	testutil.WriteFile(t, parent.Path(), "shared.txt", "untracked parent copy\n")

	result := (&Station{Metrics: metrics}).Integrate(context.Background(), parent, child)
	require.Equal(t, StatusFailed, result.Status)
	assert.Empty(t, result.ConflictedFiles)
	assert.Contains(t, result.Message, "failed")
	assert.Equal(t, 0, metrics.Snapshot().MergeConflicts)
}

func readParentFile(dir, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, name))
}

func TestIntegrate_NonGitChildFails(t *testing.T) {
	dir := testutil.SetupTestRepo(t)
	parent := station.New(fixture.NewRepo(dir))
	_, err := parent.Commission(context.Background())
	require.NoError(t, err)

	child := station.New(fixture.NewLocalDir(t.TempDir()))
	_, err = child.Commission(context.Background())
	require.NoError(t, err)

	result := (&Station{}).Integrate(context.Background(), parent, child)
	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Message, "no branch")
}

func TestIntegrate_SequentialChildren(t *testing.T) {
	parent, first := setupParentAndChild(t)

	second, err := parent.Spawn("wo-2")
	require.NoError(t, err)
	_, err = second.Commission(context.Background())
	require.NoError(t, err)

	testutil.WriteFile(t, first.Path(), "a.go", "package a\n")
	_, err = first.Checkpoint("add a")
	require.NoError(t, err)

	testutil.WriteFile(t, second.Path(), "b.go", "package b\n")
	_, err = second.Checkpoint("add b")
	require.NoError(t, err)

	st := &Station{}
	require.Equal(t, StatusSuccess, st.Integrate(context.Background(), parent, first).Status)
	require.Equal(t, StatusSuccess, st.Integrate(context.Background(), parent, second).Status)

	assert.FileExists(t, parent.Path()+"/a.go")
	assert.FileExists(t, parent.Path()+"/b.go")
}
