package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memNode struct {
	id       string
	parentID string
	name     string
	kind     Kind
	content  string
}

// MemoryStore is an in-memory Store for tests and ephemeral projects.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string]map[string]*memNode
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string]map[string]*memNode)}
}

// Seed creates a project from a path → content map. Folder paths end
// with a slash and map to an empty string.
func (s *MemoryStore) Seed(projectID string, files map[string]string) error {
	ctx := context.Background()
	for p, content := range files {
		if len(p) > 0 && p[len(p)-1] == '/' {
			if _, err := s.CreateFolder(ctx, projectID, p[:len(p)-1]); err != nil {
				return err
			}
			continue
		}
		if _, err := s.CreateFile(ctx, projectID, p, content); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) project(projectID string) map[string]*memNode {
	nodes, ok := s.projects[projectID]
	if !ok {
		nodes = make(map[string]*memNode)
		s.projects[projectID] = nodes
	}
	return nodes
}

func (s *MemoryStore) listLocked(projectID string) []Node {
	nodes := make([]Node, 0, len(s.projects[projectID]))
	for _, n := range s.projects[projectID] {
		nodes = append(nodes, Node{
			ID:        n.id,
			ProjectID: projectID,
			ParentID:  n.parentID,
			Name:      n.name,
			Kind:      n.kind,
		})
	}
	return MaterializePaths(nodes)
}

func (s *MemoryStore) findByPathLocked(projectID, p string) (*memNode, bool) {
	for _, n := range s.listLocked(projectID) {
		if n.Path == p {
			return s.projects[projectID][n.ID], true
		}
	}
	return nil, false
}

// ensureFolderLocked creates missing folder nodes along dir and returns
// the id of the deepest one ("" for the project root).
func (s *MemoryStore) ensureFolderLocked(projectID, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	nodes := s.project(projectID)

	parentID := ""
	prefix := ""
	for _, seg := range strings.Split(dir, "/") {
		if seg == "" {
			continue
		}
		if prefix == "" {
			prefix = seg
		} else {
			prefix += "/" + seg
		}
		if existing, ok := s.findByPathLocked(projectID, prefix); ok {
			if existing.kind != KindFolder {
				return "", fmt.Errorf("%w: %s is a file", ErrAlreadyExists, prefix)
			}
			parentID = existing.id
			continue
		}
		n := &memNode{id: uuid.NewString(), parentID: parentID, name: seg, kind: KindFolder}
		nodes[n.id] = n
		parentID = n.id
	}
	return parentID, nil
}

// ReadFile returns the content of the file node at path.
func (s *MemoryStore) ReadFile(ctx context.Context, projectID, filePath string) (string, error) {
	p, err := CleanPath(filePath)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.findByPathLocked(projectID, p)
	if !ok || n.kind != KindFile {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return n.content, nil
}

// ListNodes returns every node of the project sorted by path.
func (s *MemoryStore) ListNodes(ctx context.Context, projectID string) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(projectID), nil
}

// CreateFile creates a file node, with mkdir-p parent folders.
func (s *MemoryStore) CreateFile(ctx context.Context, projectID, filePath, content string) (Node, error) {
	p, err := CleanPath(filePath)
	if err != nil {
		return Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.findByPathLocked(projectID, p); ok {
		return Node{}, fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	dir, name := SplitPath(p)
	parentID, err := s.ensureFolderLocked(projectID, dir)
	if err != nil {
		return Node{}, err
	}
	n := &memNode{id: uuid.NewString(), parentID: parentID, name: name, kind: KindFile, content: content}
	s.project(projectID)[n.id] = n
	return Node{ID: n.id, ProjectID: projectID, ParentID: parentID, Name: name, Kind: KindFile, Path: p}, nil
}

// CreateFolder creates a folder node, with mkdir-p parents. Creating an
// existing folder returns it unchanged.
func (s *MemoryStore) CreateFolder(ctx context.Context, projectID, folderPath string) (Node, error) {
	p, err := CleanPath(folderPath)
	if err != nil {
		return Node{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.findByPathLocked(projectID, p); ok {
		if existing.kind != KindFolder {
			return Node{}, fmt.Errorf("%w: %s is a file", ErrAlreadyExists, p)
		}
		return Node{ID: existing.id, ProjectID: projectID, ParentID: existing.parentID, Name: existing.name, Kind: KindFolder, Path: p}, nil
	}
	id, err := s.ensureFolderLocked(projectID, p)
	if err != nil {
		return Node{}, err
	}
	n := s.projects[projectID][id]
	return Node{ID: n.id, ProjectID: projectID, ParentID: n.parentID, Name: n.name, Kind: KindFolder, Path: p}, nil
}

// UpdateFile replaces the content of the file node with the given id.
func (s *MemoryStore) UpdateFile(ctx context.Context, projectID, nodeID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.projects[projectID][nodeID]
	if !ok || n.kind != KindFile {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	n.content = content
	return nil
}

// DeleteNode removes a node; folders cascade to their children.
func (s *MemoryStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.projects[projectID]
	if _, ok := nodes[nodeID]; !ok {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}

	doomed := map[string]bool{nodeID: true}
	for changed := true; changed; {
		changed = false
		for id, n := range nodes {
			if !doomed[id] && doomed[n.parentID] {
				doomed[id] = true
				changed = true
			}
		}
	}
	for id := range doomed {
		delete(nodes, id)
	}
	return nil
}
