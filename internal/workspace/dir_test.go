package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirStore(t *testing.T) (*DirStore, string) {
	t.Helper()
	root := t.TempDir()
	s, err := OpenDir(root, "p1")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, root
}

func TestDirStoreRoundTrip(t *testing.T) {
	s, root := newDirStore(t)
	ctx := context.Background()

	n, err := s.CreateFile(ctx, "p1", "src/app.ts", "hello")
	require.NoError(t, err)
	assert.Equal(t, "src/app.ts", n.ID)

	got, err := s.ReadFile(ctx, "p1", "src/app.ts")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	require.NoError(t, s.UpdateFile(ctx, "p1", "src/app.ts", "updated"))
	data, err := os.ReadFile(filepath.Join(root, "src", "app.ts"))
	require.NoError(t, err)
	assert.Equal(t, "updated", string(data))

	require.NoError(t, s.DeleteNode(ctx, "p1", "src"))
	_, err = s.ReadFile(ctx, "p1", "src/app.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreListSkipsHiddenDirs(t *testing.T) {
	s, root := newDirStore(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "pkg"), 0o755))
	_, err := s.CreateFile(ctx, "p1", "main.go", "package main")
	require.NoError(t, err)

	nodes, err := s.ListNodes(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "main.go", nodes[0].Path)
}

func TestDirStoreRejectsWrongProject(t *testing.T) {
	s, _ := newDirStore(t)
	_, err := s.ReadFile(context.Background(), "other", "a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStoreCreateConflict(t *testing.T) {
	s, _ := newDirStore(t)
	ctx := context.Background()

	_, err := s.CreateFile(ctx, "p1", "a.txt", "x")
	require.NoError(t, err)
	_, err = s.CreateFile(ctx, "p1", "a.txt", "y")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.CreateFolder(ctx, "p1", "a.txt")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestDirStoreRejectsEscapingPaths(t *testing.T) {
	s, _ := newDirStore(t)
	ctx := context.Background()

	_, err := s.ReadFile(ctx, "p1", "../outside.txt")
	assert.ErrorIs(t, err, ErrInvalidPath)
	_, err = s.CreateFile(ctx, "p1", "/etc/../..", "x")
	assert.ErrorIs(t, err, ErrInvalidPath)
}
