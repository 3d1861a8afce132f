// Package overlay stages file mutations during an agent run. Tools read
// and write a virtual view of the project; the persisted tree is only
// consulted to fetch originals and is never written. The staged state
// becomes a reviewable changeset once the run finishes.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"codeloom/internal/workspace"
)

// StagedFile is the overlay entry for a single path.
type StagedFile struct {
	Path string `json:"path"`
	// NodeID is the persisted node id, empty for files created during
	// the run.
	NodeID string `json:"nodeId,omitempty"`
	// OriginalContent is the content fetched from the persisted tree on
	// first touch. It is set exactly once and never changes afterwards;
	// created files have it empty.
	OriginalContent string `json:"originalContent"`
	// Content is the current staged text.
	Content string     `json:"content"`
	Status  FileStatus `json:"status"`
}

// Entry is a single row of an overlay-adjusted listing.
type Entry struct {
	Path string         `json:"path"`
	Kind workspace.Kind `json:"kind"`
}

// Overlay is the virtual project view for one agent run.
type Overlay struct {
	store     workspace.Store
	projectID string

	// files holds staged entries keyed by path.
	files map[string]*StagedFile
	// nodeIDByPath is the id snapshot taken at construction. It never
	// changes during a run.
	nodeIDByPath map[string]string
	// baseKinds is the kind snapshot of the persisted tree, used by
	// listings and create conflict checks.
	baseKinds map[string]workspace.Kind
	// createdFolders tracks create_folder calls so listings show them.
	createdFolders map[string]bool
}

// New snapshots the project's node listing and returns an empty overlay
// on top of it.
func New(ctx context.Context, store workspace.Store, projectID string) (*Overlay, error) {
	nodes, err := store.ListNodes(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot project %s: %w", projectID, err)
	}

	ids := make(map[string]string, len(nodes))
	kinds := make(map[string]workspace.Kind, len(nodes))
	for _, n := range nodes {
		ids[n.Path] = n.ID
		kinds[n.Path] = n.Kind
	}
	return &Overlay{
		store:          store,
		projectID:      projectID,
		files:          make(map[string]*StagedFile),
		nodeIDByPath:   ids,
		baseKinds:      kinds,
		createdFolders: make(map[string]bool),
	}, nil
}

// ProjectID returns the project this overlay runs against.
func (o *Overlay) ProjectID() string { return o.projectID }

// NodeID returns the persisted node id snapshotted for path.
func (o *Overlay) NodeID(path string) (string, bool) {
	id, ok := o.nodeIDByPath[path]
	return id, ok
}

// Staged returns the staged entries keyed by path. Callers must not
// mutate the returned files.
func (o *Overlay) Staged() map[string]*StagedFile { return o.files }

// load returns the staged entry for path, fetching the original from
// the persisted tree on first touch.
func (o *Overlay) load(ctx context.Context, path string) (*StagedFile, error) {
	if f, ok := o.files[path]; ok {
		return f, nil
	}

	content, err := o.store.ReadFile(ctx, o.projectID, path)
	if err != nil {
		if errors.Is(err, workspace.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	f := &StagedFile{
		Path:            path,
		NodeID:          o.nodeIDByPath[path],
		OriginalContent: content,
		Content:         content,
		Status:          StatusUnchanged,
	}
	o.files[path] = f
	return f, nil
}

func (o *Overlay) apply(f *StagedFile, op Op) error {
	next, err := Transition(f.Status, op, f.NodeID != "")
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	if next == StatusAbsent {
		delete(o.files, f.Path)
		return nil
	}
	f.Status = next
	return nil
}

// Create stages a new file. Creating over a live file fails; creating
// over a file deleted earlier in the run revives it as an update.
func (o *Overlay) Create(ctx context.Context, path, content string) error {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return err
	}

	if f, ok := o.files[p]; ok {
		if err := o.apply(f, OpCreate); err != nil {
			return err
		}
		f.Content = content
		return nil
	}

	if kind, ok := o.baseKinds[p]; ok && kind == workspace.KindFolder {
		return fmt.Errorf("%s: %w, use update_file to modify it", p, ErrExists)
	}

	// A path present in the persisted tree is a live file even before
	// its first touch.
	if _, err := o.load(ctx, p); err == nil {
		return fmt.Errorf("%s: %w, use update_file to modify it", p, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	o.files[p] = &StagedFile{
		Path:    p,
		Content: content,
		Status:  StatusCreated,
	}
	return nil
}

// Update replaces the staged content of an existing file.
func (o *Overlay) Update(ctx context.Context, path, content string) error {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return err
	}
	f, err := o.load(ctx, p)
	if err != nil {
		return err
	}
	if err := o.apply(f, OpUpdate); err != nil {
		return err
	}
	f.Content = content
	return nil
}

// Delete stages a file deletion. Deleting a file created this run (and
// never persisted) removes the entry entirely.
func (o *Overlay) Delete(ctx context.Context, path string) error {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return err
	}
	f, err := o.load(ctx, p)
	if err != nil {
		return err
	}
	if err := o.apply(f, OpDelete); err != nil {
		return err
	}
	if f.Status == StatusDeleted {
		f.Content = ""
	}
	return nil
}

// Edit replaces the first occurrence of search in the staged content.
// The search string is matched literally; a miss is an error and leaves
// the content untouched.
func (o *Overlay) Edit(ctx context.Context, path, search, replace string) error {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return err
	}
	f, err := o.load(ctx, p)
	if err != nil {
		return err
	}
	if f.Status == StatusDeleted {
		return fmt.Errorf("%s: %w", p, ErrNotFound)
	}

	idx := strings.Index(f.Content, search)
	if idx < 0 {
		return fmt.Errorf("%s: %w", p, ErrSearchNotFound)
	}

	if err := o.apply(f, OpUpdate); err != nil {
		return err
	}
	f.Content = f.Content[:idx] + replace + f.Content[idx+len(search):]
	return nil
}

// Read returns the staged content of a file, loading the original on
// first touch.
func (o *Overlay) Read(ctx context.Context, path string) (string, error) {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return "", err
	}
	f, err := o.load(ctx, p)
	if err != nil {
		return "", err
	}
	if f.Status == StatusDeleted {
		return "", fmt.Errorf("%s: %w", p, ErrNotFound)
	}
	return f.Content, nil
}

// CreateFolder records a folder so listings include it. Folders carry
// no content and are materialized on apply by mkdir-p.
func (o *Overlay) CreateFolder(path string) error {
	p, err := workspace.CleanPath(path)
	if err != nil {
		return err
	}
	if kind, ok := o.baseKinds[p]; ok && kind == workspace.KindFile {
		return fmt.Errorf("%s: %w", p, ErrExists)
	}
	if f, ok := o.files[p]; ok && f.Status != StatusDeleted {
		return fmt.Errorf("%s: %w", p, ErrExists)
	}
	o.createdFolders[p] = true
	return nil
}

// List returns the overlay-adjusted listing of the whole project:
// deleted files hidden, created files and folders synthesized, sorted
// by path.
func (o *Overlay) List() []Entry {
	seen := make(map[string]workspace.Kind)

	for p, kind := range o.baseKinds {
		seen[p] = kind
	}
	for p := range o.createdFolders {
		addWithParents(seen, p, workspace.KindFolder)
	}
	for p, f := range o.files {
		switch f.Status {
		case StatusDeleted:
			delete(seen, p)
		case StatusCreated:
			addWithParents(seen, p, workspace.KindFile)
		}
	}

	entries := make([]Entry, 0, len(seen))
	for p, kind := range seen {
		entries = append(entries, Entry{Path: p, Kind: kind})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// ListDir returns the direct children of dir ("" or "/" for the project
// root), overlay-adjusted and sorted by path.
func (o *Overlay) ListDir(dir string) ([]Entry, error) {
	prefix := ""
	if trimmed := strings.Trim(strings.TrimSpace(dir), "/"); trimmed != "" {
		p, err := workspace.CleanPath(trimmed)
		if err != nil {
			return nil, err
		}
		prefix = p + "/"
	}

	var entries []Entry
	for _, e := range o.List() {
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

// addWithParents records a path and synthesizes folder entries for its
// ancestors so created files always appear under a visible folder chain.
func addWithParents(seen map[string]workspace.Kind, path string, kind workspace.Kind) {
	seen[path] = kind
	for {
		dir, _ := workspace.SplitPath(path)
		if dir == "" {
			return
		}
		if _, ok := seen[dir]; !ok {
			seen[dir] = workspace.KindFolder
		}
		path = dir
	}
}
