package overlay

import (
	"sort"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ChangeAction is what applying a pending change does to the persisted
// tree.
type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
)

// ChangeStatus is the review decision on a pending change.
type ChangeStatus string

const (
	ChangePending  ChangeStatus = "pending"
	ChangeAccepted ChangeStatus = "accepted"
	ChangeRejected ChangeStatus = "rejected"
)

// LineStatus classifies one row of a change's unified diff.
type LineStatus string

const (
	LineAdded   LineStatus = "added"
	LineRemoved LineStatus = "removed"
	LineContext LineStatus = "context"
)

// DiffLine is one row of the unified old→new diff of a change.
type DiffLine struct {
	Status LineStatus `json:"status"`
	Text   string     `json:"text"`
}

// PendingChange is a single reviewable file change produced from a
// finished run.
type PendingChange struct {
	// ID is the persisted node id when the file exists, otherwise
	// "create:" plus the path.
	ID           string             `json:"id"`
	FilePath     string             `json:"filePath"`
	FileName     string             `json:"fileName"`
	OldContent   string             `json:"oldContent"`
	NewContent   string             `json:"newContent"`
	Action       ChangeAction       `json:"action"`
	Status       ChangeStatus       `json:"status"`
	LineStatuses map[int]LineStatus `json:"lineStatuses,omitempty"`
}

// BuildChangeset turns the staged entries of a finished run into the
// ordered list of pending changes. It is pure: unchanged entries are
// skipped, files created and deleted within the run leave no entry, and
// the result is ordered by file path.
func BuildChangeset(files map[string]*StagedFile) []PendingChange {
	changes := make([]PendingChange, 0, len(files))

	for path, f := range files {
		var action ChangeAction
		switch f.Status {
		case StatusCreated:
			action = ActionCreate
		case StatusUpdated:
			action = ActionUpdate
		case StatusDeleted:
			// A delete with no persisted identity and no original text
			// is a phantom: nothing exists to delete.
			if f.NodeID == "" && f.OriginalContent == "" {
				continue
			}
			action = ActionDelete
		default:
			continue
		}

		id := f.NodeID
		if id == "" {
			id = "create:" + path
		}
		name := path
		if idx := strings.LastIndex(path, "/"); idx >= 0 {
			name = path[idx+1:]
		}

		changes = append(changes, PendingChange{
			ID:           id,
			FilePath:     path,
			FileName:     name,
			OldContent:   f.OriginalContent,
			NewContent:   f.Content,
			Action:       action,
			Status:       ChangePending,
			LineStatuses: lineStatuses(f.OriginalContent, f.Content),
		})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].FilePath < changes[j].FilePath })
	return changes
}

// DiffLines computes the unified line diff between two texts.
func DiffLines(oldText, newText string) []DiffLine {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	var lines []DiffLine
	for _, d := range diffs {
		var status LineStatus
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			status = LineAdded
		case diffmatchpatch.DiffDelete:
			status = LineRemoved
		default:
			status = LineContext
		}
		for _, text := range splitDiffLines(d.Text) {
			lines = append(lines, DiffLine{Status: status, Text: text})
		}
	}
	return lines
}

// lineStatuses indexes the unified diff rows by position.
func lineStatuses(oldText, newText string) map[int]LineStatus {
	rows := DiffLines(oldText, newText)
	statuses := make(map[int]LineStatus, len(rows))
	for i, row := range rows {
		statuses[i] = row.Status
	}
	return statuses
}

func splitDiffLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
