package checkpoint

import (
	"fmt"
	"time"

	"codeloom/internal/logging"
)

// Store keeps the checkpoint envelope within its retention ceilings.
// Pruning runs on every load and every save, so a state read from disk
// is never over the ceilings regardless of who wrote it.
type Store struct {
	storage  Storage
	maxAge   time.Duration
	maxCount int
	now      func() time.Time
}

// NewStore creates a checkpoint store. maxAge and maxCount are the
// retention ceilings; zero disables the corresponding ceiling.
func NewStore(storage Storage, maxAge time.Duration, maxCount int) *Store {
	return &Store{
		storage:  storage,
		maxAge:   maxAge,
		maxCount: maxCount,
		now:      time.Now,
	}
}

// Load returns the pruned state. A prune that changed anything is
// written back.
func (s *Store) Load() (StoredState, error) {
	state, err := s.storage.Load()
	if err != nil {
		return StoredState{}, fmt.Errorf("loading checkpoint state: %w", err)
	}
	if state.Version == 0 {
		state.Version = StateVersion
	}
	if s.prune(&state) {
		if err := s.storage.Save(state); err != nil {
			return StoredState{}, fmt.Errorf("saving pruned checkpoint state: %w", err)
		}
	}
	return state, nil
}

// Append adds a checkpoint, moves the head to it, prunes, and
// persists.
func (s *Store) Append(cp AgentCheckpoint, headMessageID string) error {
	state, err := s.Load()
	if err != nil {
		return err
	}
	state.Checkpoints = append(state.Checkpoints, cp)
	state.HeadCheckpointID = cp.ID
	state.HeadMessageID = headMessageID
	s.prune(&state)
	if err := s.storage.Save(state); err != nil {
		return fmt.Errorf("saving checkpoint state: %w", err)
	}
	logging.Debug("checkpoint appended", "id", cp.ID, "ops", len(cp.Ops), "total", len(state.Checkpoints))
	return nil
}

// List returns the retained checkpoints, oldest first.
func (s *Store) List() ([]AgentCheckpoint, error) {
	state, err := s.Load()
	if err != nil {
		return nil, err
	}
	return state.Checkpoints, nil
}

// Get finds a checkpoint by id.
func (s *Store) Get(id string) (AgentCheckpoint, bool, error) {
	state, err := s.Load()
	if err != nil {
		return AgentCheckpoint{}, false, err
	}
	for _, cp := range state.Checkpoints {
		if cp.ID == id {
			return cp, true, nil
		}
	}
	return AgentCheckpoint{}, false, nil
}

// Head returns the current head checkpoint, if any.
func (s *Store) Head() (AgentCheckpoint, bool, error) {
	state, err := s.Load()
	if err != nil {
		return AgentCheckpoint{}, false, err
	}
	if state.HeadCheckpointID == "" {
		return AgentCheckpoint{}, false, nil
	}
	for _, cp := range state.Checkpoints {
		if cp.ID == state.HeadCheckpointID {
			return cp, true, nil
		}
	}
	return AgentCheckpoint{}, false, nil
}

// Prune applies the retention ceilings and persists if anything was
// dropped.
func (s *Store) Prune() error {
	_, err := s.Load()
	return err
}

// prune drops checkpoints over the age ceiling, then trims oldest
// entries until under the count ceiling. If the head was dropped, it
// advances to the newest survivor. Reports whether anything changed.
func (s *Store) prune(state *StoredState) bool {
	before := len(state.Checkpoints)

	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		kept := state.Checkpoints[:0]
		for _, cp := range state.Checkpoints {
			if !cp.CreatedAt.Before(cutoff) {
				kept = append(kept, cp)
			}
		}
		state.Checkpoints = kept
	}

	if s.maxCount > 0 && len(state.Checkpoints) > s.maxCount {
		state.Checkpoints = state.Checkpoints[len(state.Checkpoints)-s.maxCount:]
	}

	if len(state.Checkpoints) == before {
		return false
	}

	if state.HeadCheckpointID != "" && !containsID(state.Checkpoints, state.HeadCheckpointID) {
		if n := len(state.Checkpoints); n > 0 {
			state.HeadCheckpointID = state.Checkpoints[n-1].ID
		} else {
			state.HeadCheckpointID = ""
			state.HeadMessageID = ""
		}
	}
	return true
}

func containsID(cps []AgentCheckpoint, id string) bool {
	for _, cp := range cps {
		if cp.ID == id {
			return true
		}
	}
	return false
}
