// Package workspace provides access to persisted project file trees.
// A project is a tree of file and folder nodes; files carry text content.
// The agent engine never writes through a Store during a run: it reads
// originals for the overlay and lists nodes, and only the apply step
// (review accept) mutates the tree.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Kind distinguishes file nodes from folder nodes.
type Kind string

const (
	KindFile   Kind = "file"
	KindFolder Kind = "folder"
)

// Node is a single entry of a project tree. Path is the materialized
// slash-separated path relative to the project root, e.g. "src/app.ts".
type Node struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	ParentID  string `json:"parentId,omitempty"`
	Name      string `json:"name"`
	Kind      Kind   `json:"kind"`
	Path      string `json:"path"`
}

var (
	// ErrNotFound is returned when no file node exists at a path or id.
	ErrNotFound = errors.New("workspace: not found")
	// ErrAlreadyExists is returned when a node already occupies a path.
	ErrAlreadyExists = errors.New("workspace: already exists")
	// ErrInvalidPath is returned for empty, absolute or escaping paths.
	ErrInvalidPath = errors.New("workspace: invalid path")
)

// Store is the persisted project tree the engine runs against.
type Store interface {
	// ReadFile returns the content of the file node at path.
	ReadFile(ctx context.Context, projectID, filePath string) (string, error)
	// ListNodes returns every node of the project with materialized
	// paths, sorted by path.
	ListNodes(ctx context.Context, projectID string) ([]Node, error)
	// CreateFile creates a file node at path, creating missing parent
	// folders along the way.
	CreateFile(ctx context.Context, projectID, filePath, content string) (Node, error)
	// CreateFolder creates a folder node at path, creating missing
	// parents. Creating an existing folder is not an error.
	CreateFolder(ctx context.Context, projectID, folderPath string) (Node, error)
	// UpdateFile replaces the text content of the file node with the
	// given id.
	UpdateFile(ctx context.Context, projectID, nodeID, content string) error
	// DeleteNode removes the node with the given id; folders are
	// removed together with everything beneath them.
	DeleteNode(ctx context.Context, projectID, nodeID string) error
}

// CleanPath normalizes a project-relative path: slashes as separators,
// no leading/trailing slash, no dot or parent segments.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	p = strings.Trim(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	cleaned := path.Clean(p)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return cleaned, nil
}

// SplitPath returns the parent directory ("" at the root) and base name.
func SplitPath(p string) (dir, name string) {
	dir, name = path.Split(p)
	return strings.TrimSuffix(dir, "/"), name
}

// SortNodes orders nodes by materialized path.
func SortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Path < nodes[j].Path })
}

// MaterializePaths fills in Path for every node from the parent chain and
// returns the nodes sorted by path. Nodes with a broken parent chain are
// dropped.
func MaterializePaths(nodes []Node) []Node {
	byID := make(map[string]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	var walk func(n *Node, depth int) (string, bool)
	walk = func(n *Node, depth int) (string, bool) {
		if depth > len(nodes) {
			return "", false // cycle
		}
		if n.ParentID == "" {
			return n.Name, true
		}
		parent, ok := byID[n.ParentID]
		if !ok {
			return "", false
		}
		prefix, ok := walk(parent, depth+1)
		if !ok {
			return "", false
		}
		return prefix + "/" + n.Name, true
	}

	out := make([]Node, 0, len(nodes))
	for i := range nodes {
		p, ok := walk(&nodes[i], 0)
		if !ok {
			continue
		}
		n := nodes[i]
		n.Path = p
		out = append(out, n)
	}
	SortNodes(out)
	return out
}
