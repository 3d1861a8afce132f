package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChangesetOrderedByPath(t *testing.T) {
	files := map[string]*StagedFile{
		"z/last.ts":  {Path: "z/last.ts", Content: "z", Status: StatusCreated},
		"a/first.ts": {Path: "a/first.ts", Content: "a", Status: StatusCreated},
		"m/mid.ts":   {Path: "m/mid.ts", NodeID: "n1", OriginalContent: "old", Content: "new", Status: StatusUpdated},
	}

	changes := BuildChangeset(files)
	require.Len(t, changes, 3)
	assert.Equal(t, "a/first.ts", changes[0].FilePath)
	assert.Equal(t, "m/mid.ts", changes[1].FilePath)
	assert.Equal(t, "z/last.ts", changes[2].FilePath)
}

func TestBuildChangesetSkipsUnchangedAndPhantoms(t *testing.T) {
	files := map[string]*StagedFile{
		"read-only.ts": {Path: "read-only.ts", NodeID: "n1", OriginalContent: "x", Content: "x", Status: StatusUnchanged},
		// Deleted with no persisted identity and no original: nothing to
		// delete in the tree.
		"phantom.ts": {Path: "phantom.ts", Status: StatusDeleted},
		"real.ts":    {Path: "real.ts", NodeID: "n2", OriginalContent: "bye", Status: StatusDeleted},
	}

	changes := BuildChangeset(files)
	require.Len(t, changes, 1)
	assert.Equal(t, "real.ts", changes[0].FilePath)
	assert.Equal(t, ActionDelete, changes[0].Action)
	assert.Equal(t, "bye", changes[0].OldContent)
	assert.Equal(t, "", changes[0].NewContent)
}

func TestBuildChangesetIDs(t *testing.T) {
	files := map[string]*StagedFile{
		"new/file.ts": {Path: "new/file.ts", Content: "x", Status: StatusCreated},
		"old.ts":      {Path: "old.ts", NodeID: "node-7", OriginalContent: "a", Content: "b", Status: StatusUpdated},
	}

	changes := BuildChangeset(files)
	require.Len(t, changes, 2)
	assert.Equal(t, "create:new/file.ts", changes[0].ID)
	assert.Equal(t, "file.ts", changes[0].FileName)
	assert.Equal(t, ChangePending, changes[0].Status)
	assert.Equal(t, "node-7", changes[1].ID)
	assert.Equal(t, "old.ts", changes[1].FileName)
}

func TestBuildChangesetCreateShape(t *testing.T) {
	files := map[string]*StagedFile{
		"hello.txt": {Path: "hello.txt", Content: "hi there", Status: StatusCreated},
	}

	changes := BuildChangeset(files)
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, ActionCreate, c.Action)
	assert.Equal(t, "", c.OldContent)
	assert.Equal(t, "hi there", c.NewContent)
	require.NotEmpty(t, c.LineStatuses)
	assert.Equal(t, LineAdded, c.LineStatuses[0])
}

func TestDiffLines(t *testing.T) {
	oldText := "keep\ndrop\nkeep2\n"
	newText := "keep\nadded\nkeep2\n"

	lines := DiffLines(oldText, newText)
	require.Len(t, lines, 4)
	assert.Equal(t, DiffLine{Status: LineContext, Text: "keep"}, lines[0])
	assert.Equal(t, DiffLine{Status: LineRemoved, Text: "drop"}, lines[1])
	assert.Equal(t, DiffLine{Status: LineAdded, Text: "added"}, lines[2])
	assert.Equal(t, DiffLine{Status: LineContext, Text: "keep2"}, lines[3])
}

func TestDiffLinesEmptyOld(t *testing.T) {
	lines := DiffLines("", "a\nb\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		assert.Equal(t, LineAdded, l.Status)
	}
}
