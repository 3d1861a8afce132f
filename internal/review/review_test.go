package review

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeloom/internal/overlay"
	"codeloom/internal/workspace"
)

func sampleChanges() []overlay.PendingChange {
	return []overlay.PendingChange{
		{ID: "create:a.txt", FilePath: "a.txt", FileName: "a.txt", NewContent: "a", Action: overlay.ActionCreate, Status: overlay.ChangePending},
		{ID: "n1", FilePath: "b.txt", FileName: "b.txt", OldContent: "old", NewContent: "new", Action: overlay.ActionUpdate, Status: overlay.ChangePending},
		{ID: "n2", FilePath: "c.txt", FileName: "c.txt", OldContent: "bye", Action: overlay.ActionDelete, Status: overlay.ChangePending},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestDecisionsAdvanceCursor(t *testing.T) {
	m := New(sampleChanges())

	m = update(t, m, key("y"))
	m = update(t, m, key("n"))
	m = update(t, m, key("y"))

	changes := m.Changes()
	assert.Equal(t, overlay.ChangeAccepted, changes[0].Status)
	assert.Equal(t, overlay.ChangeRejected, changes[1].Status)
	assert.Equal(t, overlay.ChangeAccepted, changes[2].Status)
	assert.False(t, m.Done())
}

func TestAcceptAllQuitsDone(t *testing.T) {
	m := New(sampleChanges())

	m = update(t, m, key("Y"))
	for _, c := range m.Changes() {
		assert.Equal(t, overlay.ChangeAccepted, c.Status)
	}
	assert.True(t, m.Done())
}

func TestEscapeRejectsEverything(t *testing.T) {
	m := New(sampleChanges())
	m = update(t, m, key("y"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})

	for _, c := range m.Changes() {
		assert.Equal(t, overlay.ChangeRejected, c.Status)
	}
	assert.False(t, m.Done())
}

func TestViewListsEveryChange(t *testing.T) {
	m := New(sampleChanges())
	m.setSize(100, 30)

	view := m.View()
	assert.Contains(t, view, "a.txt")
	assert.Contains(t, view, "b.txt")
	assert.Contains(t, view, "c.txt")
	assert.Contains(t, view, "pending 3")
}

func TestApplyWritesAcceptedChanges(t *testing.T) {
	ctx := context.Background()
	store := workspace.NewMemoryStore()
	require.NoError(t, store.Seed("p1", map[string]string{
		"b.txt": "old",
		"c.txt": "bye",
	}))

	nodes, err := store.ListNodes(ctx, "p1")
	require.NoError(t, err)
	ids := map[string]string{}
	for _, n := range nodes {
		ids[n.Path] = n.ID
	}

	changes := []overlay.PendingChange{
		{ID: "create:a.txt", FilePath: "a.txt", NewContent: "fresh", Action: overlay.ActionCreate, Status: overlay.ChangeAccepted},
		{ID: ids["b.txt"], FilePath: "b.txt", NewContent: "new", Action: overlay.ActionUpdate, Status: overlay.ChangeAccepted},
		{ID: ids["c.txt"], FilePath: "c.txt", Action: overlay.ActionDelete, Status: overlay.ChangeRejected},
	}

	res, err := Apply(ctx, store, "p1", changes)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 1, res.Rejected)

	got, err := store.ReadFile(ctx, "p1", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)

	got, err = store.ReadFile(ctx, "p1", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", got)

	// The rejected delete leaves c.txt in place.
	got, err = store.ReadFile(ctx, "p1", "c.txt")
	require.NoError(t, err)
	assert.Equal(t, "bye", got)
}

func TestApplySkipsPending(t *testing.T) {
	ctx := context.Background()
	store := workspace.NewMemoryStore()

	changes := []overlay.PendingChange{
		{ID: "create:a.txt", FilePath: "a.txt", NewContent: "x", Action: overlay.ActionCreate, Status: overlay.ChangePending},
	}
	res, err := Apply(ctx, store, "p1", changes)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Applied)
	assert.Equal(t, 1, res.Skipped)

	_, err = store.ReadFile(ctx, "p1", "a.txt")
	assert.ErrorIs(t, err, workspace.ErrNotFound)
}
