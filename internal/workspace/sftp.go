package workspace

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"codeloom/internal/logging"
)

// SFTPConfig holds connection settings for a remote project root.
type SFTPConfig struct {
	Host          string
	Port          int
	User          string
	KeyPath       string
	KeyPassphrase string
	Password      string // fallback if no key
	Root          string // remote directory holding the project
	Timeout       time.Duration
}

// DefaultSFTPConfig returns a configuration with sensible defaults.
func DefaultSFTPConfig() *SFTPConfig {
	home, _ := os.UserHomeDir()
	return &SFTPConfig{
		Port:    22,
		KeyPath: filepath.Join(home, ".ssh", "id_ed25519"),
		Timeout: 30 * time.Second,
	}
}

// SFTPStore serves a single project from a remote directory over SFTP.
// Node ids are project-relative paths, like DirStore.
type SFTPStore struct {
	config    *SFTPConfig
	projectID string

	mu      sync.Mutex
	conn    *ssh.Client
	client  *sftp.Client
	lastUse time.Time
}

var _ Store = (*SFTPStore)(nil)

// OpenSFTP creates a store for the remote root. The connection is
// established lazily on first use.
func OpenSFTP(config *SFTPConfig, projectID string) *SFTPStore {
	return &SFTPStore{config: config, projectID: projectID, lastUse: time.Now()}
}

// Close tears down the SFTP session and SSH connection.
func (s *SFTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		s.client.Close()
		s.client = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// connect establishes or revalidates the connection and returns the
// SFTP client.
func (s *SFTPStore) connect(ctx context.Context) (*sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if _, _, err := s.conn.SendRequest("keepalive@openssh.com", true, nil); err == nil {
			s.lastUse = time.Now()
			return s.client, nil
		}
		s.client.Close()
		s.conn.Close()
		s.conn, s.client = nil, nil
	}

	sshConfig, err := s.buildSSHConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build SSH config: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	logging.Info("connecting to SFTP workspace", "addr", addr, "user", s.config.User)

	dialer := &net.Dialer{Timeout: s.config.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake failed: %w", err)
	}
	s.conn = ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(s.conn)
	if err != nil {
		s.conn.Close()
		s.conn = nil
		return nil, fmt.Errorf("failed to create SFTP client: %w", err)
	}
	s.client = client
	s.lastUse = time.Now()
	return client, nil
}

func (s *SFTPStore) buildSSHConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if s.config.KeyPath != "" {
		if key, err := os.ReadFile(s.config.KeyPath); err == nil {
			var signer ssh.Signer
			if s.config.KeyPassphrase != "" {
				signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(s.config.KeyPassphrase))
			} else {
				signer, err = ssh.ParsePrivateKey(key)
			}
			if err != nil {
				logging.Warn("failed to parse SSH key", "path", s.config.KeyPath, "error", err)
			} else {
				authMethods = append(authMethods, ssh.PublicKeys(signer))
			}
		}
	}

	if len(authMethods) == 0 {
		home, _ := os.UserHomeDir()
		for _, keyFile := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			keyPath := filepath.Join(home, ".ssh", keyFile)
			if key, err := os.ReadFile(keyPath); err == nil {
				if signer, err := ssh.ParsePrivateKey(key); err == nil {
					authMethods = append(authMethods, ssh.PublicKeys(signer))
					break
				}
			}
		}
	}

	if s.config.Password != "" {
		authMethods = append(authMethods, ssh.Password(s.config.Password))
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("no authentication method available")
	}

	return &ssh.ClientConfig{
		User:            s.config.User,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.config.Timeout,
	}, nil
}

func (s *SFTPStore) checkProject(projectID string) error {
	if projectID != s.projectID {
		return fmt.Errorf("%w: project %s", ErrNotFound, projectID)
	}
	return nil
}

func (s *SFTPStore) remote(p string) string {
	return path.Join(s.config.Root, p)
}

func (s *SFTPStore) relNode(rel string, kind Kind) Node {
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

// ListNodes walks the remote root.
func (s *SFTPStore) ListNodes(ctx context.Context, projectID string) ([]Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return nil, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	root := s.config.Root
	var nodes []Node
	walker := client.Walk(root)
	for walker.Step() {
		if walker.Err() != nil {
			continue
		}
		p := walker.Path()
		if p == root {
			continue
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, root), "/")
		if rel == "" {
			continue
		}
		info := walker.Stat()
		if info.IsDir() {
			if skipDirName(path.Base(p)) {
				walker.SkipDir()
				continue
			}
			nodes = append(nodes, s.relNode(rel, KindFolder))
			continue
		}
		nodes = append(nodes, s.relNode(rel, KindFile))
	}

	SortNodes(nodes)
	return nodes, nil
}

// ReadFile returns the content of the remote file at path.
func (s *SFTPStore) ReadFile(ctx context.Context, projectID, filePath string) (string, error) {
	if err := s.checkProject(projectID); err != nil {
		return "", err
	}
	p, err := CleanPath(filePath)
	if err != nil {
		return "", err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return "", err
	}

	f, err := client.Open(s.remote(p))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return "", fmt.Errorf("failed to open %s: %w", p, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", p, err)
	}
	return string(data), nil
}

// CreateFile writes a new remote file, creating parent directories.
func (s *SFTPStore) CreateFile(ctx context.Context, projectID, filePath, content string) (Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return Node{}, err
	}
	p, err := CleanPath(filePath)
	if err != nil {
		return Node{}, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return Node{}, err
	}

	target := s.remote(p)
	if _, err := client.Stat(target); err == nil {
		return Node{}, fmt.Errorf("%w: %s", ErrAlreadyExists, p)
	}
	if err := client.MkdirAll(path.Dir(target)); err != nil {
		return Node{}, fmt.Errorf("failed to create parent folders: %w", err)
	}
	if err := s.writeRemote(client, target, content); err != nil {
		return Node{}, fmt.Errorf("failed to create %s: %w", p, err)
	}
	return s.relNode(p, KindFile), nil
}

func (s *SFTPStore) writeRemote(client *sftp.Client, target, content string) error {
	f, err := client.Create(target)
	if err != nil {
		return err
	}
	if _, err := f.Write([]byte(content)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CreateFolder creates a remote directory, with mkdir-p semantics.
func (s *SFTPStore) CreateFolder(ctx context.Context, projectID, folderPath string) (Node, error) {
	if err := s.checkProject(projectID); err != nil {
		return Node{}, err
	}
	p, err := CleanPath(folderPath)
	if err != nil {
		return Node{}, err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return Node{}, err
	}

	target := s.remote(p)
	if info, err := client.Stat(target); err == nil && !info.IsDir() {
		return Node{}, fmt.Errorf("%w: %s is a file", ErrAlreadyExists, p)
	}
	if err := client.MkdirAll(target); err != nil {
		return Node{}, fmt.Errorf("failed to create folder %s: %w", p, err)
	}
	return s.relNode(p, KindFolder), nil
}

// UpdateFile replaces a remote file's content. The node id is its path.
func (s *SFTPStore) UpdateFile(ctx context.Context, projectID, nodeID, content string) error {
	if err := s.checkProject(projectID); err != nil {
		return err
	}
	p, err := CleanPath(nodeID)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}

	target := s.remote(p)
	info, err := client.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	if err := s.writeRemote(client, target, content); err != nil {
		return fmt.Errorf("failed to update %s: %w", p, err)
	}
	return nil
}

// DeleteNode removes a remote file or directory tree. The node id is
// its path.
func (s *SFTPStore) DeleteNode(ctx context.Context, projectID, nodeID string) error {
	if err := s.checkProject(projectID); err != nil {
		return err
	}
	p, err := CleanPath(nodeID)
	if err != nil {
		return err
	}
	client, err := s.connect(ctx)
	if err != nil {
		return err
	}

	target := s.remote(p)
	info, err := client.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	if info.IsDir() {
		if err := client.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
		return nil
	}
	if err := client.Remove(target); err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}
