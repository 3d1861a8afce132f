package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeloom/internal/overlay"
	"codeloom/internal/workspace"
)

// FileSystem is the file view tool handlers run against. In review
// mode it is the staging overlay; outside review mode it reads and
// writes the persisted store directly.
type FileSystem interface {
	Read(ctx context.Context, path string) (string, error)
	Create(ctx context.Context, path, content string) error
	Update(ctx context.Context, path, content string) error
	Delete(ctx context.Context, path string) error
	Edit(ctx context.Context, path, search, replace string) error
	CreateFolder(ctx context.Context, path string) error
	List(ctx context.Context) ([]overlay.Entry, error)
	ListDir(ctx context.Context, dir string) ([]overlay.Entry, error)
}

// OverlayFS adapts the staging overlay to the FileSystem contract.
type OverlayFS struct {
	Overlay *overlay.Overlay
}

var _ FileSystem = (*OverlayFS)(nil)

func (fs *OverlayFS) Read(ctx context.Context, path string) (string, error) {
	return fs.Overlay.Read(ctx, path)
}

func (fs *OverlayFS) Create(ctx context.Context, path, content string) error {
	return fs.Overlay.Create(ctx, path, content)
}

func (fs *OverlayFS) Update(ctx context.Context, path, content string) error {
	return fs.Overlay.Update(ctx, path, content)
}

func (fs *OverlayFS) Delete(ctx context.Context, path string) error {
	return fs.Overlay.Delete(ctx, path)
}

func (fs *OverlayFS) Edit(ctx context.Context, path, search, replace string) error {
	return fs.Overlay.Edit(ctx, path, search, replace)
}

func (fs *OverlayFS) CreateFolder(ctx context.Context, path string) error {
	return fs.Overlay.CreateFolder(path)
}

func (fs *OverlayFS) List(ctx context.Context) ([]overlay.Entry, error) {
	return fs.Overlay.List(), nil
}

func (fs *OverlayFS) ListDir(ctx context.Context, dir string) ([]overlay.Entry, error) {
	return fs.Overlay.ListDir(dir)
}

// StoreFS runs tools straight against the persisted store, for runs
// outside review mode. Mutations are durable immediately.
type StoreFS struct {
	Store     workspace.Store
	ProjectID string
}

var _ FileSystem = (*StoreFS)(nil)

func (fs *StoreFS) node(ctx context.Context, path string) (workspace.Node, error) {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return workspace.Node{}, err
	}
	nodes, err := fs.Store.ListNodes(ctx, fs.ProjectID)
	if err != nil {
		return workspace.Node{}, err
	}
	for _, n := range nodes {
		if n.Path == p {
			return n, nil
		}
	}
	return workspace.Node{}, fmt.Errorf("%w: %s", workspace.ErrNotFound, p)
}

func (fs *StoreFS) Read(ctx context.Context, path string) (string, error) {
	return fs.Store.ReadFile(ctx, fs.ProjectID, path)
}

func (fs *StoreFS) Create(ctx context.Context, path, content string) error {
	_, err := fs.Store.CreateFile(ctx, fs.ProjectID, path, content)
	return err
}

func (fs *StoreFS) Update(ctx context.Context, path, content string) error {
	n, err := fs.node(ctx, path)
	if err != nil {
		return err
	}
	if n.Kind != workspace.KindFile {
		return fmt.Errorf("%w: %s is not a file", workspace.ErrNotFound, n.Path)
	}
	return fs.Store.UpdateFile(ctx, fs.ProjectID, n.ID, content)
}

func (fs *StoreFS) Delete(ctx context.Context, path string) error {
	n, err := fs.node(ctx, path)
	if err != nil {
		return err
	}
	return fs.Store.DeleteNode(ctx, fs.ProjectID, n.ID)
}

func (fs *StoreFS) Edit(ctx context.Context, path, search, replace string) error {
	n, err := fs.node(ctx, path)
	if err != nil {
		return err
	}
	content, err := fs.Store.ReadFile(ctx, fs.ProjectID, path)
	if err != nil {
		return err
	}
	idx := strings.Index(content, search)
	if idx < 0 {
		return fmt.Errorf("%s: %w", n.Path, overlay.ErrSearchNotFound)
	}
	updated := content[:idx] + replace + content[idx+len(search):]
	return fs.Store.UpdateFile(ctx, fs.ProjectID, n.ID, updated)
}

func (fs *StoreFS) CreateFolder(ctx context.Context, path string) error {
	_, err := fs.Store.CreateFolder(ctx, fs.ProjectID, path)
	return err
}

func (fs *StoreFS) List(ctx context.Context) ([]overlay.Entry, error) {
	nodes, err := fs.Store.ListNodes(ctx, fs.ProjectID)
	if err != nil {
		return nil, err
	}
	entries := make([]overlay.Entry, 0, len(nodes))
	for _, n := range nodes {
		entries = append(entries, overlay.Entry{Path: n.Path, Kind: n.Kind})
	}
	return entries, nil
}

func (fs *StoreFS) ListDir(ctx context.Context, dir string) ([]overlay.Entry, error) {
	prefix := ""
	if trimmed := strings.Trim(strings.TrimSpace(dir), "/"); trimmed != "" {
		p, err := workspace.CleanPath(trimmed)
		if err != nil {
			return nil, err
		}
		prefix = p + "/"
	}

	all, err := fs.List(ctx)
	if err != nil {
		return nil, err
	}
	var entries []overlay.Entry
	for _, e := range all {
		if !strings.HasPrefix(e.Path, prefix) {
			continue
		}
		rest := e.Path[len(prefix):]
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// IsDomainErr reports whether err is a failure the model can react to
// (not found, already exists, search miss, bad path) rather than a
// transport failure that must abort the run.
func IsDomainErr(err error) bool {
	return errors.Is(err, overlay.ErrNotFound) ||
		errors.Is(err, overlay.ErrExists) ||
		errors.Is(err, overlay.ErrSearchNotFound) ||
		errors.Is(err, workspace.ErrNotFound) ||
		errors.Is(err, workspace.ErrAlreadyExists) ||
		errors.Is(err, workspace.ErrInvalidPath)
}

// resultOrAbort converts a domain error into an error Result and
// passes anything else through as a run-aborting error.
func resultOrAbort(err error) (Result, error) {
	if IsDomainErr(err) {
		return Errf("%s", err.Error()), nil
	}
	return Result{}, err
}
