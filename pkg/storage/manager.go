package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager owns the media root directory: one subdirectory per owner, files
// named by content hash. Existence checks are cached in memory.
type Manager struct {
	rootDir string
	known   map[string]bool
	dirs    map[string]bool
	mu      sync.RWMutex
}

// NewManager creates a new storage manager rooted at rootDir
func NewManager(rootDir string) (*Manager, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}

	return &Manager{
		rootDir: rootDir,
		known:   make(map[string]bool),
		dirs:    make(map[string]bool),
	}, nil
}

// Root returns the media root directory
func (m *Manager) Root() string {
	return m.rootDir
}

// Path returns where a file for owner would live; it does not touch the disk
func (m *Manager) Path(owner, name string) string {
	return filepath.Join(m.rootDir, owner, name)
}

// OwnerDir returns the owner's directory, creating it on first use
func (m *Manager) OwnerDir(owner string) (string, error) {
	dir := filepath.Join(m.rootDir, owner)

	m.mu.RLock()
	ok := m.dirs[owner]
	m.mu.RUnlock()
	if ok {
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create owner directory: %w", err)
	}

	m.mu.Lock()
	m.dirs[owner] = true
	m.mu.Unlock()
	return dir, nil
}

// Exists reports whether the file has already been saved, in this run or a previous one
func (m *Manager) Exists(owner, name string) bool {
	path := m.Path(owner, name)

	m.mu.RLock()
	cached := m.known[path]
	m.mu.RUnlock()
	if cached {
		return true
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	m.mu.Lock()
	m.known[path] = true
	m.mu.Unlock()
	return true
}

// Save writes r to the owner's directory under name and returns the final path.
// Concurrent saves of the same name are safe: each writes its own temp file and the last rename wins.
func (m *Manager) Save(owner, name string, r io.Reader) (string, int64, error) {
	if _, err := m.OwnerDir(owner); err != nil {
		return "", 0, err
	}

	path := m.Path(owner, name)
	n, err := AtomicWrite(path, r)
	if err != nil {
		return "", n, err
	}

	m.mu.Lock()
	m.known[path] = true
	m.mu.Unlock()
	return path, n, nil
}

// Count returns the number of saved files for owner
func (m *Manager) Count(owner string) int {
	entries, err := os.ReadDir(filepath.Join(m.rootDir, owner))
	if err != nil {
		return 0
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		count++
	}
	return count
}

// AtomicWrite copies r into path via a temporary file in the same directory
func AtomicWrite(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, r)
	closeErr := tmp.Close()

	if err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to write data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return n, nil
}
