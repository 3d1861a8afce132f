package overlay

import (
	"errors"
	"fmt"
)

// FileStatus is the staging state of a path within an overlay.
type FileStatus string

const (
	// StatusAbsent means no staged entry exists for the path.
	StatusAbsent FileStatus = "absent"
	// StatusUnchanged means the original was loaded but not modified.
	StatusUnchanged FileStatus = "unchanged"
	// StatusCreated means the file was created during this run.
	StatusCreated FileStatus = "created"
	// StatusUpdated means an existing file's content was replaced.
	StatusUpdated FileStatus = "updated"
	// StatusDeleted means the file is staged for deletion.
	StatusDeleted FileStatus = "deleted"
)

// Op is a state-changing overlay operation.
type Op int

const (
	OpCreate Op = iota
	OpUpdate
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return fmt.Sprintf("op(%d)", int(op))
}

var (
	// ErrExists reports a create against a path that already holds a
	// live file.
	ErrExists = errors.New("file already exists")
	// ErrNotFound reports an operation against a path with no live
	// file.
	ErrNotFound = errors.New("file not found")
	// ErrSearchNotFound reports an edit whose search string does not
	// occur in the staged content.
	ErrSearchNotFound = errors.New("search string not found")
)

// Transition computes the staging state a path moves to when op is
// applied in state current. hasNodeID tells whether the entry carries a
// persisted node id. Returning StatusAbsent means the entry is removed
// entirely (a file created and deleted within the same run leaves no
// trace). Illegal moves return an error and the state must not change.
func Transition(current FileStatus, op Op, hasNodeID bool) (FileStatus, error) {
	switch op {
	case OpCreate:
		switch current {
		case StatusAbsent:
			return StatusCreated, nil
		case StatusDeleted:
			// Recreating a deleted file revives it as an update so the
			// persisted identity survives the delete/create pair.
			return StatusUpdated, nil
		default:
			return current, fmt.Errorf("%w, use update_file to modify it", ErrExists)
		}

	case OpUpdate:
		switch current {
		case StatusCreated:
			return StatusCreated, nil
		case StatusUnchanged, StatusUpdated:
			return StatusUpdated, nil
		default:
			return current, ErrNotFound
		}

	case OpDelete:
		switch current {
		case StatusCreated:
			if !hasNodeID {
				return StatusAbsent, nil
			}
			return StatusDeleted, nil
		case StatusUnchanged, StatusUpdated:
			return StatusDeleted, nil
		default:
			return current, ErrNotFound
		}
	}
	return current, fmt.Errorf("unknown operation %v", op)
}
