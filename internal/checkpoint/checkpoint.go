// Package checkpoint persists apply/undo snapshots of accepted agent
// changes, so an applied changeset can be rolled back later.
package checkpoint

import (
	"time"

	"codeloom/internal/overlay"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// StateVersion is the envelope schema version.
const StateVersion = 1

// OpKind distinguishes file and folder snapshot entries.
type OpKind string

const (
	OpFile   OpKind = "file"
	OpFolder OpKind = "folder"
)

// Op records the before/after of one path at checkpoint time.
type Op struct {
	Path       string `json:"path"`
	Kind       OpKind `json:"kind"`
	BeforeText string `json:"beforeText"`
	AfterText  string `json:"afterText"`
	// Patch is the before→after text patch, kept alongside the full
	// texts for compact display.
	Patch string `json:"patch,omitempty"`
}

// AgentCheckpoint is one apply/undo snapshot.
type AgentCheckpoint struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	AnchorMessageID string    `json:"anchorMessageId,omitempty"`
	Description     string    `json:"description,omitempty"`
	Ops             []Op      `json:"ops"`
}

// StoredState is the versioned persistence envelope.
type StoredState struct {
	Version          int               `json:"version"`
	Checkpoints      []AgentCheckpoint `json:"checkpoints"`
	HeadCheckpointID string            `json:"headCheckpointId,omitempty"`
	HeadMessageID    string            `json:"headMessageId,omitempty"`
}

// FromChanges builds a checkpoint from an accepted changeset.
func FromChanges(anchorMessageID, description string, changes []overlay.PendingChange) AgentCheckpoint {
	dmp := diffmatchpatch.New()
	ops := make([]Op, 0, len(changes))
	for _, c := range changes {
		patches := dmp.PatchMake(c.OldContent, c.NewContent)
		ops = append(ops, Op{
			Path:       c.FilePath,
			Kind:       OpFile,
			BeforeText: c.OldContent,
			AfterText:  c.NewContent,
			Patch:      dmp.PatchToText(patches),
		})
	}
	return AgentCheckpoint{
		ID:              uuid.NewString(),
		CreatedAt:       time.Now().UTC(),
		AnchorMessageID: anchorMessageID,
		Description:     description,
		Ops:             ops,
	}
}
