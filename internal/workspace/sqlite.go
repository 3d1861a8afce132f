package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"codeloom/internal/cache"
)

const (
	listingCacheSize = 64
	listingCacheTTL  = 30 * time.Second
)

// SQLiteStore persists project trees in a SQLite database.
type SQLiteStore struct {
	db       *sql.DB
	listings *cache.LRU[string, []Node]
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the store database at dbPath.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace db: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate workspace db: %w", err)
	}
	return &SQLiteStore{
		db:       db,
		listings: cache.New[string, []Node](listingCacheSize, listingCacheTTL),
	}, nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		parent_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE(project_id, parent_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_project ON nodes(project_id);
	CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(project_id, parent_id);`
	_, err := db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) invalidate(projectID string) {
	s.listings.Delete(projectID)
}

// ListNodes returns every node of the project sorted by path.
func (s *SQLiteStore) ListNodes(ctx context.Context, projectID string) ([]Node, error) {
	if nodes, ok := s.listings.Get(projectID); ok {
		out := make([]Node, len(nodes))
		copy(out, nodes)
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, kind FROM nodes WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n := Node{ProjectID: projectID}
		var kind string
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		n.Kind = Kind(kind)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes = MaterializePaths(nodes)
	s.listings.Set(projectID, nodes)

	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out, nil
}

func (s *SQLiteStore) findByPath(ctx context.Context, projectID, p string) (Node, error) {
	nodes, err := s.ListNodes(ctx, projectID)
	if err != nil {
		return Node{}, err
	}
	for _, n := range nodes {
		if n.Path == p {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("%w: %s", ErrNotFound, p)
}

// ReadFile returns the content of the file node at path.
func (s *SQLiteStore) ReadFile(ctx context.Context, projectID, filePath string) (string, error) {
	p, err := CleanPath(filePath)
	if err != nil {
		return "", err
	}
	n, err := s.findByPath(ctx, projectID, p)
	if err != nil {
		return "", err
	}
	if n.Kind != KindFile {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}

	var content string
	err = s.db.QueryRowContext(ctx,
		`SELECT content FROM nodes WHERE id = ? AND project_id = ?`, n.ID, projectID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return content, nil
}

// ensureFolder creates missing folder nodes along dir and returns the id
// of the deepest one ("" for the project root).
func (s *SQLiteStore) ensureFolder(ctx context.Context, projectID, dir string) (string, error) {
	if dir == "" {
		return "", nil
	}

	nodes, err := s.ListNodes(ctx, projectID)
	if err != nil {
		return "", err
	}
	byPath := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byPath[n.Path] = n
	}

	parentID := ""
	prefix := ""
	for _, seg := range splitPathSegments(dir) {
		if prefix == "" {
			prefix = seg
		} else {
			prefix += "/" + seg
		}
		if existing, ok := byPath[prefix]; ok {
			if existing.Kind != KindFolder {
				return "", fmt.Errorf("%w: %s is a file", ErrAlreadyExists, prefix)
			}
			parentID = existing.ID
			continue
		}
		id := uuid.NewString()
		now := time.Now()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO nodes (id, project_id, parent_id, name, kind, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, projectID, parentID, seg, string(KindFolder), now, now)
		if err != nil {
			return "", fmt.Errorf("failed to create folder %s: %w", prefix, err)
		}
		s.invalidate(projectID)
		byPath[prefix] = Node{ID: id, ProjectID: projectID, ParentID: parentID, Name: seg, Kind: KindFolder, Path: prefix}
		parentID = id
	}
	return parentID, nil
}

// CreateFile creates a file node, with mkdir-p parent folders.
func (s *SQLiteStore) CreateFile(ctx context.Context, projectID, filePath, content string) (Node, error) {
	p, err := CleanPath(filePath)
	if err != nil {
		return Node{}, err
	}
	if _, err := s.findByPath(ctx, projectID, p); err == nil {
		return Node{}, fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	} else if !errors.Is(err, ErrNotFound) {
		return Node{}, err
	}

	dir, name := SplitPath(p)
	parentID, err := s.ensureFolder(ctx, projectID, dir)
	if err != nil {
		return Node{}, err
	}

	id := uuid.NewString()
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO nodes (id, project_id, parent_id, name, kind, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, projectID, parentID, name, string(KindFile), content, now, now)
	if err != nil {
		return Node{}, fmt.Errorf("failed to create file %s: %w", p, err)
	}
	s.invalidate(projectID)
	return Node{ID: id, ProjectID: projectID, ParentID: parentID, Name: name, Kind: KindFile, Path: p}, nil
}

// CreateFolder creates a folder node, with mkdir-p parents.
func (s *SQLiteStore) CreateFolder(ctx context.Context, projectID, folderPath string) (Node, error) {
	p, err := CleanPath(folderPath)
	if err != nil {
		return Node{}, err
	}
	if existing, err := s.findByPath(ctx, projectID, p); err == nil {
		if existing.Kind != KindFolder {
			return Node{}, fmt.Errorf("%w: %s is a file", ErrAlreadyExists, p)
		}
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return Node{}, err
	}

	id, err := s.ensureFolder(ctx, projectID, p)
	if err != nil {
		return Node{}, err
	}
	return s.nodeByID(ctx, projectID, id)
}

func (s *SQLiteStore) nodeByID(ctx context.Context, projectID, nodeID string) (Node, error) {
	nodes, err := s.ListNodes(ctx, projectID)
	if err != nil {
		return Node{}, err
	}
	for _, n := range nodes {
		if n.ID == nodeID {
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
}

// UpdateFile replaces the content of the file node with the given id.
func (s *SQLiteStore) UpdateFile(ctx context.Context, projectID, nodeID, content string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE nodes SET content = ?, updated_at = ? WHERE id = ? AND project_id = ? AND kind = ?`,
		content, time.Now(), nodeID, projectID, string(KindFile))
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: node %s", ErrNotFound, nodeID)
	}
	s.invalidate(projectID)
	return nil
}

// DeleteNode removes a node; folders cascade to their children.
func (s *SQLiteStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	if _, err := s.nodeByID(ctx, projectID, nodeID); err != nil {
		return err
	}

	doomed := []string{nodeID}
	for frontier := []string{nodeID}; len(frontier) > 0; {
		next := frontier[0]
		frontier = frontier[1:]
		rows, err := s.db.QueryContext(ctx,
			`SELECT id FROM nodes WHERE project_id = ? AND parent_id = ?`, projectID, next)
		if err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("failed to delete node: %w", err)
			}
			doomed = append(doomed, id)
			frontier = append(frontier, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("failed to delete node: %w", err)
		}
		rows.Close()
	}

	for _, id := range doomed {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM nodes WHERE id = ? AND project_id = ?`, id, projectID); err != nil {
			return fmt.Errorf("failed to delete node: %w", err)
		}
	}
	s.invalidate(projectID)
	return nil
}

func splitPathSegments(p string) []string {
	var segs []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}
