package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FS stores documents below a root directory.
type FS struct {
	root string
}

// NewFS creates the root directory when needed.
func NewFS(root string) (*FS, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("archive dir required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) Driver() Driver { return DriverFS }

// Put writes data atomically through a temporary file.
func (s *FS) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	target := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create archive subdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".archive-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("rename archive: %w", err)
	}
	return target, nil
}
