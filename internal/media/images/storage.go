package images

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Storage manages image files inside the library's data directory.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a Storage rooted at the given directory, creating
// it if needed.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &Storage{
		basePath: basePath,
	}, nil
}

// BasePath returns the storage root.
func (s *Storage) BasePath() string {
	return s.basePath
}

// Path resolves a filename within the storage root. The filename must
// not escape the root.
func (s *Storage) Path(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if filepath.Base(filename) != filename || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return filepath.Join(s.basePath, filename), nil
}

// Save writes image data under the given filename.
func (s *Storage) Save(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data cannot be empty")
	}

	path, err := s.Path(filename)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	return path, nil
}

// Rename moves a file within the storage root.
func (s *Storage) Rename(oldName, newName string) (string, error) {
	oldPath, err := s.Path(oldName)
	if err != nil {
		return "", err
	}
	newPath, err := s.Path(newName)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("failed to rename image: %w", err)
	}

	return newPath, nil
}

// Exists reports whether a file is present under the given filename.
func (s *Storage) Exists(filename string) bool {
	path, err := s.Path(filename)
	if err != nil {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = os.Stat(path)
	return err == nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *Storage) Delete(filename string) error {
	path, err := s.Path(filename)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
