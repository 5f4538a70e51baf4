package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Remover deletes a single stored object. The abandoned-upload
// sweeper depends on this narrow contract only.
type Remover interface {
	Remove(ctx context.Context, key string) error
}

// ObjectStore is the document storage collaborator: generated quote
// documents are written through it and abandoned uploads removed.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Remover
}

// DirStore keeps objects on the local filesystem under a root
// directory. It stands in for the direct-to-cloud store in local and
// test environments.
type DirStore struct {
	root string
}

func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &DirStore{root: root}, nil
}

// Root returns the store's root directory.
func (s *DirStore) Root() string {
	return s.root
}

func (s *DirStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return nil
}

func (s *DirStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove object %s: %w", key, err)
	}
	return nil
}

func (s *DirStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(s.root, clean), nil
}
