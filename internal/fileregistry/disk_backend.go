package fileregistry

import (
	"fmt"
	"os"
	"path/filepath"
)

// DiskBackend persists file bodies one-per-checksum under rootDir, so a
// FileRef's content survives eviction of its in-memory TaskContext. Writes
// are atomic: content lands in a temp file first, then gets renamed into
// place, so a crash mid-write never leaves a corrupt entry behind.
type DiskBackend struct {
	rootDir string
}

// NewDiskBackend creates rootDir if needed and returns a Backend writing
// into it.
func NewDiskBackend(rootDir string) (*DiskBackend, error) {
	if rootDir == "" {
		return nil, fmt.Errorf("file registry root directory is required")
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating file registry root directory: %w", err)
	}
	return &DiskBackend{rootDir: rootDir}, nil
}

func (b *DiskBackend) path(checksum string) string {
	// Fan out into two-character subdirectories so a large registry never
	// dumps every body into one flat directory.
	if len(checksum) < 2 {
		return filepath.Join(b.rootDir, checksum)
	}
	return filepath.Join(b.rootDir, checksum[:2], checksum)
}

func (b *DiskBackend) Store(checksum string, content []byte) error {
	full := b.path(checksum)
	if _, err := os.Stat(full); err == nil {
		return nil // already present; checksums are content-addressed
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("creating checksum directory: %w", err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming file into place: %w", err)
	}
	return nil
}

func (b *DiskBackend) Load(checksum string) ([]byte, error) {
	content, err := os.ReadFile(b.path(checksum))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading file body: %w", err)
	}
	return content, nil
}
