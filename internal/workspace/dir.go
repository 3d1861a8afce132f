package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"codeloom/internal/cache"
	"codeloom/internal/fileutil"
	"codeloom/internal/logging"
)

// DirStore serves a single project from a directory on disk. Node ids
// are project-relative paths. A filesystem watcher invalidates the
// listing cache when files change outside the store.
type DirStore struct {
	root      string
	projectID string
	listings  *cache.LRU[string, []Node]

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

var _ Store = (*DirStore)(nil)

// OpenDir opens root as the tree of the given project id.
func OpenDir(root, projectID string) (*DirStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to open project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root %s is not a directory", abs)
	}

	s := &DirStore{
		root:      abs,
		projectID: projectID,
		listings:  cache.New[string, []Node](4, 15*time.Second),
		done:      make(chan struct{}),
	}
	if err := s.startWatcher(); err != nil {
		// The store still works without the watcher, listings just
		// rely on the cache TTL instead.
		logging.Warn("workspace watcher unavailable", "root", abs, "error", err)
	}
	return s, nil
}

// Close stops the filesystem watcher.
func (s *DirStore) Close() error {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *DirStore) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = w

	if err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirName(d.Name()) && p != s.root {
				return filepath.SkipDir
			}
			_ = w.Add(p)
		}
		return nil
	}); err != nil {
		w.Close()
		s.watcher = nil
		return err
	}

	go func() {
		for {
			select {
			case <-s.done:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				s.listings.Clear()
				if ev.Op.Has(fsnotify.Create) {
					if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDirName(filepath.Base(ev.Name)) {
						_ = w.Add(ev.Name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logging.Debug("workspace watcher error", "error", err)
			}
		}
	}()
	return nil
}

func skipDirName(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

func (s *DirStore) checkProject(projectID string) error {
	if projectID != s.projectID {
		return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	return nil
}

// abs resolves a clean project path inside the root.
func (s *DirStore) abs(p string) string {
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// ListNodes walks the project root. Dot-directories and node_modules
// are skipped.
func (s *DirStore) ListNodes(ctx context.Context, projectID string) ([]Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}
	if nodes, ok := s.listings.Get(projectID); ok {
		out := make([]Node, len(nodes))
		copy(out, nodes)
		return out, nil
	}

	var nodes []Node
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if p == s.root {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if skipDirName(d.Name()) {
				return filepath.SkipDir
			}
			nodes = append(nodes, s.node(rel, KindFolder))
			return nil
		}
		nodes = append(nodes, s.node(rel, KindFile))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk project root: %w", err)
	}

	SortNodes(nodes)
	s.listings.Set(projectID, nodes)

	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out, nil
}

func (s *DirStore) node(rel string, kind Kind) Node {
	dir, name := SplitPath(rel)
	return Node{
		ID:        rel,
		ProjectID: s.projectID,
		ParentID:  dir,
		Name:      name,
		Kind:      kind,
		Path:      rel,
	}
}

// ReadFile returns the content of the file at path.
func (s *DirStore) ReadFile(ctx context.Context, projectID, filePath string) (string, error) {
	if err := s.checkProject(projectID); err != nil {
		return "", err
	}
	p, err := CleanPath(filePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.abs(p))
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

// CreateFile writes a new file, creating parent directories.
func (s *DirStore) CreateFile(ctx context.Context, projectID, filePath, content string) (Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return Node{}, err
	}
	p, err := CleanPath(filePath)
	if err != nil {
		return Node{}, err
	}
	target := s.abs(p)
	if _, err := os.Stat(target); err == nil {
		return Node{}, fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return Node{}, fmt.Errorf("failed to create parent folders: %w", err)
	}
	if err := fileutil.AtomicWriteString(target, content, 0644); err != nil {
		return Node{}, fmt.Errorf("failed to create %s: %w", p, err)
	}
	s.listings.Clear()
	return s.node(p, KindFile), nil
}

// CreateFolder creates a directory, with mkdir-p semantics.
func (s *DirStore) CreateFolder(ctx context.Context, projectID, folderPath string) (Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return Node{}, err
	}
	p, err := CleanPath(folderPath)
	if err != nil {
		return Node{}, err
	}
	target := s.abs(p)
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		return Node{}, fmt.Errorf("%w: %s is a file", ErrAlreadyExists, p)
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return Node{}, fmt.Errorf("failed to create folder %s: %w", p, err)
	}
	s.listings.Clear()
	return s.node(p, KindFolder), nil
}

// UpdateFile replaces a file's content. The node id is its path.
func (s *DirStore) UpdateFile(ctx context.Context, projectID, nodeID, content string) error {
	if err := s.checkProject(projectID); err != nil {
		return err
	}
	p, err := CleanPath(nodeID)
	if err != nil {
		return err
	}
	target := s.abs(p)
	info, err := os.Stat(target)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err := fileutil.AtomicWriteString(target, content, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	s.listings.Clear()
	return nil
}

// DeleteNode removes a file or directory tree. The node id is its path.
func (s *DirStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	if err := s.checkProject(projectID); err != nil {
		return err
	}
	p, err := CleanPath(nodeID)
	if err != nil {
		return err
	}
	target := s.abs(p)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	s.listings.Clear()
	return nil
}
