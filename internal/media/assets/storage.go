// Package assets stores downloaded book assets on the local filesystem.
package assets

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Storage manages asset filesystem operations.
// Thread-safe for concurrent operations.
type Storage struct {
	basePath string
	mu       sync.RWMutex // Protects file operations
}

// NewStorage creates a new Storage instance for book assets.
// basePath should be the data directory (e.g., ~/Shelfmark/data).
// Assets are stored in {basePath}/assets/.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}

	storagePath := filepath.Join(basePath, "assets")

	// Create directory if it doesn't exist.
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}

	return &Storage{
		basePath: storagePath,
	}, nil
}

// Save stores asset data for a source identifier and returns the final path.
// Filename format: {sourceID}.pdf.
//
// The write goes through a temp file in the same directory followed by a
// rename, so a crash mid-write never leaves a truncated asset at the final
// path.
func (s *Storage) Save(sourceID string, data []byte) (string, error) {
	if sourceID == "" {
		return "", fmt.Errorf("source ID cannot be empty")
	}

	if len(data) == 0 {
		return "", fmt.Errorf("asset data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(sourceID)

	tmp, err := os.CreateTemp(s.basePath, sourceID+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write asset data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move asset into place: %w", err)
	}

	// CreateTemp uses 0600; assets are served read-only to the world.
	if err := os.Chmod(path, 0644); err != nil {
		return "", fmt.Errorf("failed to set asset permissions: %w", err)
	}

	return path, nil
}

// Get retrieves asset data for a source identifier.
func (s *Storage) Get(sourceID string) ([]byte, error) {
	if sourceID == "" {
		return nil, fmt.Errorf("source ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(sourceID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset not found for %s: %w", sourceID, err)
		}
		return nil, fmt.Errorf("failed to read asset file: %w", err)
	}

	return data, nil
}

// Exists checks if an asset exists for a source identifier.
func (s *Storage) Exists(sourceID string) bool {
	if sourceID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.Path(sourceID)
	_, err := os.Stat(path)
	return err == nil
}

// Delete removes an asset for a source identifier.
func (s *Storage) Delete(sourceID string) error {
	if sourceID == "" {
		return fmt.Errorf("source ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(sourceID)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			// Already deleted, not an error.
			return nil
		}
		return fmt.Errorf("failed to delete asset file: %w", err)
	}

	return nil
}

// Hash computes SHA256 hash of an asset.
// Returns hex-encoded string for ETag/cache validation.
func (s *Storage) Hash(sourceID string) (string, error) {
	if sourceID == "" {
		return "", fmt.Errorf("source ID cannot be empty")
	}

	data, err := s.Get(sourceID)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// Path returns the full filesystem path for a source identifier's asset.
func (s *Storage) Path(sourceID string) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s.pdf", sourceID))
}
