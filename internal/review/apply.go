package review

import (
	"context"
	"fmt"
	"strings"

	"codeloom/internal/logging"
	"codeloom/internal/overlay"
	"codeloom/internal/workspace"
)

// ApplyResult summarizes what Apply did to the persisted tree.
type ApplyResult struct {
	Applied  int
	Rejected int
	Skipped  int
}

// Apply writes the accepted changes of a reviewed changeset through the
// store. Rejected and still-pending changes are left alone; a failing
// change aborts with the earlier ones already applied.
func Apply(ctx context.Context, store workspace.Store, projectID string, changes []overlay.PendingChange) (ApplyResult, error) {
	var res ApplyResult

	for _, c := range changes {
		switch c.Status {
		case overlay.ChangeAccepted:
		case overlay.ChangeRejected:
			res.Rejected++
			continue
		default:
			res.Skipped++
			continue
		}

		if err := applyOne(ctx, store, projectID, c); err != nil {
			return res, fmt.Errorf("failed to apply %s to %s: %w", c.Action, c.FilePath, err)
		}
		res.Applied++
		logging.Debug("applied change", "action", c.Action, "path", c.FilePath)
	}
	return res, nil
}

func applyOne(ctx context.Context, store workspace.Store, projectID string, c overlay.PendingChange) error {
	switch c.Action {
	case overlay.ActionCreate:
		_, err := store.CreateFile(ctx, projectID, c.FilePath, c.NewContent)
		return err
	case overlay.ActionUpdate:
		return store.UpdateFile(ctx, projectID, nodeID(c), c.NewContent)
	case overlay.ActionDelete:
		return store.DeleteNode(ctx, projectID, nodeID(c))
	}
	return fmt.Errorf("unknown action %q", c.Action)
}

// nodeID extracts the persisted node id from a change id. Create ids
// carry a "create:" path prefix instead and never reach here.
func nodeID(c overlay.PendingChange) string {
	return strings.TrimPrefix(c.ID, "create:")
}
