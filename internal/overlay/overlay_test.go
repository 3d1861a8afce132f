package overlay

import (
	"context"
	"sync/atomic"
	"testing"

	"codeloom/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a store and counts original-content fetches.
type countingStore struct {
	workspace.Store
	reads int32
}

func (s *countingStore) ReadFile(ctx context.Context, projectID, filePath string) (string, error) {
	atomic.AddInt32(&s.reads, 1)
	return s.Store.ReadFile(ctx, projectID, filePath)
}

func newOverlay(t *testing.T, files map[string]string) (*Overlay, *countingStore) {
	t.Helper()
	mem := workspace.NewMemoryStore()
	require.NoError(t, mem.Seed("p1", files))
	store := &countingStore{Store: mem}
	ov, err := New(context.Background(), store, "p1")
	require.NoError(t, err)
	return ov, store
}

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		current   FileStatus
		op        Op
		hasNodeID bool
		want      FileStatus
		wantErr   error
	}{
		{StatusAbsent, OpCreate, false, StatusCreated, nil},
		{StatusUnchanged, OpCreate, true, "", ErrExists},
		{StatusCreated, OpCreate, false, "", ErrExists},
		{StatusUpdated, OpCreate, true, "", ErrExists},
		{StatusDeleted, OpCreate, true, StatusUpdated, nil},

		{StatusCreated, OpUpdate, false, StatusCreated, nil},
		{StatusUnchanged, OpUpdate, true, StatusUpdated, nil},
		{StatusUpdated, OpUpdate, true, StatusUpdated, nil},
		{StatusDeleted, OpUpdate, true, "", ErrNotFound},
		{StatusAbsent, OpUpdate, false, "", ErrNotFound},

		{StatusCreated, OpDelete, false, StatusAbsent, nil},
		{StatusCreated, OpDelete, true, StatusDeleted, nil},
		{StatusUnchanged, OpDelete, true, StatusDeleted, nil},
		{StatusUpdated, OpDelete, true, StatusDeleted, nil},
		{StatusDeleted, OpDelete, true, "", ErrNotFound},
		{StatusAbsent, OpDelete, false, "", ErrNotFound},
	}

	for _, tc := range cases {
		got, err := Transition(tc.current, tc.op, tc.hasNodeID)
		if tc.wantErr != nil {
			assert.ErrorIs(t, err, tc.wantErr, "%s + %s", tc.current, tc.op)
			assert.Equal(t, tc.current, got, "state must not change on error")
			continue
		}
		require.NoError(t, err, "%s + %s", tc.current, tc.op)
		assert.Equal(t, tc.want, got, "%s + %s", tc.current, tc.op)
	}
}

func TestUpdateThenReadReturnsNewContent(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"a.txt": "old"})
	ctx := context.Background()

	require.NoError(t, ov.Update(ctx, "a.txt", "new"))
	got, err := ov.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	// The persisted tree stays untouched.
	stored, err := ov.store.ReadFile(ctx, "p1", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "old", stored)
}

func TestCreateThenDeleteLeavesNoTrace(t *testing.T) {
	ov, _ := newOverlay(t, nil)
	ctx := context.Background()

	require.NoError(t, ov.Create(ctx, "tmp.txt", "scratch"))
	require.NoError(t, ov.Delete(ctx, "tmp.txt"))

	assert.Empty(t, ov.Staged())
	assert.Empty(t, BuildChangeset(ov.Staged()))
	_, err := ov.Read(ctx, "tmp.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteThenCreateKeepsIdentity(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"keep.txt": "original text"})
	ctx := context.Background()

	nodeID, ok := ov.NodeID("keep.txt")
	require.True(t, ok)

	require.NoError(t, ov.Delete(ctx, "keep.txt"))
	require.NoError(t, ov.Create(ctx, "keep.txt", "replacement"))

	changes := BuildChangeset(ov.Staged())
	require.Len(t, changes, 1)
	assert.Equal(t, ActionUpdate, changes[0].Action)
	assert.Equal(t, nodeID, changes[0].ID)
	assert.Equal(t, "original text", changes[0].OldContent)
	assert.Equal(t, "replacement", changes[0].NewContent)
}

func TestCreateOverLiveFileFails(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"a.txt": "x"})
	ctx := context.Background()

	err := ov.Create(ctx, "a.txt", "y")
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, ov.Create(ctx, "b.txt", "fresh"))
	err = ov.Create(ctx, "b.txt", "again")
	assert.ErrorIs(t, err, ErrExists)
}

func TestUpdateMissingFileFails(t *testing.T) {
	ov, _ := newOverlay(t, nil)
	err := ov.Update(context.Background(), "ghost.txt", "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditReplacesFirstOccurrenceOnly(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"a.txt": "foo bar foo"})
	ctx := context.Background()

	require.NoError(t, ov.Edit(ctx, "a.txt", "foo", "baz"))
	got, err := ov.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "baz bar foo", got)
}

func TestEditMissingSearchLeavesContentUntouched(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"a.txt": "hello"})
	ctx := context.Background()

	err := ov.Edit(ctx, "a.txt", "absent", "x")
	assert.ErrorIs(t, err, ErrSearchNotFound)

	got, err := ov.Read(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, StatusUnchanged, ov.Staged()["a.txt"].Status)
}

func TestOperationsOnDeletedFileFail(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{"a.txt": "x"})
	ctx := context.Background()
	require.NoError(t, ov.Delete(ctx, "a.txt"))

	_, err := ov.Read(ctx, "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, ov.Update(ctx, "a.txt", "y"), ErrNotFound)
	assert.ErrorIs(t, ov.Delete(ctx, "a.txt"), ErrNotFound)
	assert.ErrorIs(t, ov.Edit(ctx, "a.txt", "x", "y"), ErrNotFound)
}

func TestLazyLoadFetchesOriginalOnce(t *testing.T) {
	ov, store := newOverlay(t, map[string]string{"a.txt": "v1"})
	ctx := context.Background()

	_, err := ov.Read(ctx, "a.txt")
	require.NoError(t, err)
	require.NoError(t, ov.Update(ctx, "a.txt", "v2"))
	_, err = ov.Read(ctx, "a.txt")
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&store.reads))
	assert.Equal(t, "v1", ov.Staged()["a.txt"].OriginalContent)
}

func TestListReflectsOverlay(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{
		"src/a.ts": "a",
		"src/b.ts": "b",
		"gone.txt": "x",
	})
	ctx := context.Background()

	require.NoError(t, ov.Delete(ctx, "gone.txt"))
	require.NoError(t, ov.Create(ctx, "src/new/c.ts", "c"))
	require.NoError(t, ov.CreateFolder("docs"))

	var paths []string
	for _, e := range ov.List() {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"docs", "src", "src/a.ts", "src/b.ts", "src/new", "src/new/c.ts"}, paths)
}

func TestListDirReturnsDirectChildren(t *testing.T) {
	ov, _ := newOverlay(t, map[string]string{
		"src/a.ts":        "a",
		"src/deep/b.ts":   "b",
		"root.txt":        "r",
		"src/deep/c/d.ts": "d",
	})

	entries, err := ov.ListDir("src")
	require.NoError(t, err)
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"src/a.ts", "src/deep"}, paths)

	root, err := ov.ListDir("/")
	require.NoError(t, err)
	require.NotEmpty(t, root)
	assert.Equal(t, "root.txt", root[0].Path)
}
