package tools

import (
	"context"
	"testing"

	"codeloom/internal/overlay"
	"codeloom/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRC(t *testing.T, mode Mode, files map[string]string) *RunContext {
	t.Helper()
	store := workspace.NewMemoryStore()
	require.NoError(t, store.Seed("p1", files))
	ov, err := overlay.New(context.Background(), store, "p1")
	require.NoError(t, err)
	return &RunContext{ProjectID: "p1", Mode: mode, FS: &OverlayFS{Overlay: ov}}
}

func TestModeGateFiltersDeclarations(t *testing.T) {
	registry := Default()

	for _, mode := range []Mode{ModeAsk, ModePlan} {
		for _, decl := range registry.DeclarationsFor(mode) {
			assert.False(t, IsMutating(decl.Name),
				"%s mode exposed mutating tool %s", mode, decl.Name)
		}
	}

	agentNames := map[string]bool{}
	for _, decl := range registry.DeclarationsFor(ModeAgent) {
		agentNames[decl.Name] = true
	}
	for _, name := range mutatingToolNames {
		assert.True(t, agentNames[name], "agent mode missing %s", name)
	}
}

func TestExecutorRejectsDisallowedCall(t *testing.T) {
	rc := newTestRC(t, ModeAsk, map[string]string{"main.go": "package main\n"})
	ex := NewExecutor(Default(), rc)

	// A call the declarations never offered must still come back as a
	// structured error, not abort the run.
	out, err := ex.Execute(context.Background(), "create_file", map[string]any{
		"path": "new.go", "content": "x",
	})
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "not allowed in ask mode")

	// The overlay stayed untouched.
	_, readErr := rc.FS.Read(context.Background(), "new.go")
	assert.Error(t, readErr)
}

func TestExecutorUnknownTool(t *testing.T) {
	rc := newTestRC(t, ModeAgent, nil)
	ex := NewExecutor(Default(), rc)

	out, err := ex.Execute(context.Background(), "launch_missiles", nil)
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])
	assert.Contains(t, out["error"], "unknown tool")
}

func TestExecutorTranscriptOrder(t *testing.T) {
	rc := newTestRC(t, ModeAgent, map[string]string{"a.txt": "hello"})
	ex := NewExecutor(Default(), rc)
	ctx := context.Background()

	_, err := ex.Execute(ctx, "read_file", map[string]any{"path": "a.txt"})
	require.NoError(t, err)
	_, err = ex.Execute(ctx, "update_file", map[string]any{"path": "a.txt", "content": "bye"})
	require.NoError(t, err)
	_, err = ex.Execute(ctx, "read_file", map[string]any{"path": "a.txt"})
	require.NoError(t, err)

	tr := ex.Transcript()
	require.Len(t, tr, 3)
	assert.Equal(t, []string{"read_file", "update_file", "read_file"},
		[]string{tr[0].Tool, tr[1].Tool, tr[2].Tool})

	// The second read observes the first call's mutation.
	assert.Equal(t, "bye", tr[2].Result["content"])
}

func TestExecutorNilArgs(t *testing.T) {
	rc := newTestRC(t, ModeAsk, map[string]string{"a.txt": "x"})
	ex := NewExecutor(Default(), rc)

	out, err := ex.Execute(context.Background(), "list_files", nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["success"])

	tr := ex.Transcript()
	require.Len(t, tr, 1)
	assert.NotNil(t, tr[0].Args)
}

func TestDomainErrorBecomesResult(t *testing.T) {
	rc := newTestRC(t, ModeAgent, map[string]string{"a.txt": "x"})
	ex := NewExecutor(Default(), rc)
	ctx := context.Background()

	out, err := ex.Execute(ctx, "read_file", map[string]any{"path": "missing.txt"})
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])

	out, err = ex.Execute(ctx, "create_file", map[string]any{"path": "a.txt", "content": "y"})
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])

	out, err = ex.Execute(ctx, "edit_file", map[string]any{
		"path": "a.txt", "search": "nope", "replace": "z",
	})
	require.NoError(t, err)
	assert.Equal(t, false, out["success"])
}
