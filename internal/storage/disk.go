package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const DiskURLPrefix = "/uploads"

var _ ImageStore = (*DiskStore)(nil)

// DiskStore keeps uploads under rootDir. The server exposes rootDir under DiskURLPrefix.
type DiskStore struct {
	rootDir string
}

func NewDiskStore(rootDir string) (*DiskStore, error) {
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{rootDir: rootDir}, nil
}

func (s *DiskStore) RootDir() string {
	return s.rootDir
}

func (s *DiskStore) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if body == nil {
		return "", ErrEmptyUpload
	}

	path := filepath.Join(s.rootDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dir for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", key, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Errorf("close uploaded file %s: %s", path, err)
		}
	}()

	written, err := io.Copy(f, body)
	if err != nil {
		return "", fmt.Errorf("write %s: %w", key, err)
	}
	log.Debugf("disk store: saved %s (%d bytes)", key, written)

	return publicURL(DiskURLPrefix, key), nil
}
