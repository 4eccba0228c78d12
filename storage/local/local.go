// Package local implements storage.Store on the local filesystem.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/skillsenselab/expflow/storage"
)

// Store keeps objects as files under a base directory.
type Store struct {
	basePath string
}

// NewStore creates a local store rooted at basePath, creating it if needed.
func NewStore(basePath string) (*Store, error) {
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("local: resolve base path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("local: create base directory: %w", err)
	}
	return &Store{basePath: abs}, nil
}

// Put writes data from reader to a file under the base directory.
func (s *Store) Put(_ context.Context, path string, reader io.Reader) error {
	fullPath := filepath.Join(s.basePath, filepath.Clean(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("local: create directory: %w", err)
	}

	f, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("local: create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		return fmt.Errorf("local: write file: %w", err)
	}
	return nil
}

// Get returns a reader for the file at the given path.
func (s *Store) Get(_ context.Context, path string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.basePath, filepath.Clean(path))
	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local: object not found: %s", path)
		}
		return nil, fmt.Errorf("local: open file: %w", err)
	}
	return f, nil
}

// Delete removes a file. A missing file is not an error.
func (s *Store) Delete(_ context.Context, path string) error {
	fullPath := filepath.Join(s.basePath, filepath.Clean(path))
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("local: delete file: %w", err)
	}
	return nil
}

// Exists reports whether a file exists at the given path.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(s.basePath, filepath.Clean(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("local: stat file: %w", err)
	}
	return true, nil
}

// List returns metadata for all files whose relative path starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var objects []storage.ObjectInfo

	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if !strings.HasPrefix(relPath, prefix) {
			return nil
		}
		objects = append(objects, storage.ObjectInfo{
			Path:         relPath,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local: list files: %w", err)
	}

	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Path < objects[j].Path
	})
	return objects, nil
}
