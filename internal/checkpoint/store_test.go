package checkpoint

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"codeloom/internal/overlay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cpAt(id string, age time.Duration, now time.Time) AgentCheckpoint {
	return AgentCheckpoint{
		ID:        id,
		CreatedAt: now.Add(-age),
		Ops:       []Op{{Path: "a.txt", Kind: OpFile, AfterText: "x"}},
	}
}

func TestAppendSetsHead(t *testing.T) {
	store := NewStore(NewMemoryStorage(), 0, 0)

	cp := FromChanges("msg-1", "first change", []overlay.PendingChange{
		{FilePath: "a.txt", OldContent: "", NewContent: "hello"},
	})
	require.NoError(t, store.Append(cp, "msg-1"))

	head, ok, err := store.Head()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cp.ID, head.ID)
	require.Len(t, head.Ops, 1)
	assert.Equal(t, "a.txt", head.Ops[0].Path)
	assert.Equal(t, "hello", head.Ops[0].AfterText)
	assert.NotEmpty(t, head.Ops[0].Patch)
}

func TestPruneByAge(t *testing.T) {
	now := time.Now()
	store := NewStore(NewMemoryStorage(), 24*time.Hour, 0)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Append(cpAt("old", 48*time.Hour, now), "m1"))
	require.NoError(t, store.Append(cpAt("fresh", time.Hour, now), "m2"))

	cps, err := store.List()
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, "fresh", cps[0].ID)
}

func TestPruneByCountKeepsNewest(t *testing.T) {
	now := time.Now()
	store := NewStore(NewMemoryStorage(), 0, 3)
	store.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("cp-%d", i)
		require.NoError(t, store.Append(cpAt(id, time.Duration(5-i)*time.Minute, now), id))
	}

	cps, err := store.List()
	require.NoError(t, err)
	require.Len(t, cps, 3)
	assert.Equal(t, "cp-2", cps[0].ID)
	assert.Equal(t, "cp-4", cps[2].ID)
}

func TestHeadAdvancesWhenTrimmed(t *testing.T) {
	now := time.Now()
	storage := NewMemoryStorage()
	store := NewStore(storage, 0, 0)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Append(cpAt("a", 3*time.Hour, now), "m1"))
	require.NoError(t, store.Append(cpAt("b", 2*time.Hour, now), "m2"))

	// Point the head at the older entry, then reload through a store
	// whose age ceiling drops it.
	state, err := storage.Load()
	require.NoError(t, err)
	state.HeadCheckpointID = "a"
	require.NoError(t, storage.Save(state))

	pruning := NewStore(storage, 150*time.Minute, 0)
	pruning.now = func() time.Time { return now }
	head, ok, err := pruning.Head()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", head.ID)
}

func TestHeadClearedWhenAllTrimmed(t *testing.T) {
	now := time.Now()
	storage := NewMemoryStorage()
	store := NewStore(storage, 0, 0)
	store.now = func() time.Time { return now }
	require.NoError(t, store.Append(cpAt("a", 3*time.Hour, now), "m1"))

	pruning := NewStore(storage, time.Hour, 0)
	pruning.now = func() time.Time { return now }
	state, err := pruning.Load()
	require.NoError(t, err)
	assert.Empty(t, state.Checkpoints)
	assert.Empty(t, state.HeadCheckpointID)
	assert.Empty(t, state.HeadMessageID)
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoints.json")
	store := NewStore(NewFileStorage(path), 0, 0)

	cp := FromChanges("msg-9", "round trip", []overlay.PendingChange{
		{FilePath: "src/x.go", OldContent: "old", NewContent: "new"},
	})
	require.NoError(t, store.Append(cp, "msg-9"))

	reopened := NewStore(NewFileStorage(path), 0, 0)
	cps, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, cps, 1)
	assert.Equal(t, cp.ID, cps[0].ID)
	assert.Equal(t, "round trip", cps[0].Description)

	got, ok, err := reopened.Get(cp.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "src/x.go", got.Ops[0].Path)
}

func TestFileStorageMissingFileIsEmpty(t *testing.T) {
	store := NewStore(NewFileStorage(filepath.Join(t.TempDir(), "nope.json")), 0, 0)
	cps, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, cps)
}
