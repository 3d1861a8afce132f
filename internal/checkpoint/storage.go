package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"

	"codeloom/internal/fileutil"
)

// Storage persists the checkpoint envelope. The file adapter is used
// in production; tests use the in-memory adapter.
type Storage interface {
	Load() (StoredState, error)
	Save(state StoredState) error
}

// FileStorage keeps the envelope in one JSON file, written atomically.
type FileStorage struct {
	path string
}

// NewFileStorage creates file-backed storage at the given path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Load() (StoredState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return StoredState{Version: StateVersion}, nil
	}
	if err != nil {
		return StoredState{}, err
	}
	var state StoredState
	if err := json.Unmarshal(data, &state); err != nil {
		return StoredState{}, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return state, nil
}

func (f *FileStorage) Save(state StoredState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return fileutil.AtomicWrite(f.path, data, 0o600)
}

// MemoryStorage holds the envelope in memory.
type MemoryStorage struct {
	state StoredState
	saves int
}

// NewMemoryStorage creates empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{state: StoredState{Version: StateVersion}}
}

func (m *MemoryStorage) Load() (StoredState, error) {
	// Deep copy so callers cannot mutate the stored slice.
	cps := make([]AgentCheckpoint, len(m.state.Checkpoints))
	copy(cps, m.state.Checkpoints)
	state := m.state
	state.Checkpoints = cps
	return state, nil
}

func (m *MemoryStorage) Save(state StoredState) error {
	m.state = state
	m.saves++
	return nil
}

// Saves reports how many times Save ran. Used by tests.
func (m *MemoryStorage) Saves() int { return m.saves }
