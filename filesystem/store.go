// Package filesystem provides the sandboxed file access the HTTP bridge
// serves resources from. The root prevents path traversal; opened files are
// plain *os.File handles eligible for zero-copy transmission.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/synodriver/davgate"
)

// Entry describes one directory member of a listing.
type Entry struct {
	Name        string
	IsDir       bool
	Size        int64
	ContentType string
	ModTime     string // RFC 3339
}

// Store provides read access rooted at a directory.
type Store struct {
	root *os.Root
}

// New creates a Store over the given root directory. The root provides
// sandboxed file operations preventing path traversal.
func New(root *os.Root) *Store {
	return &Store{root: root}
}

// Open opens a file for reading. Returns davgate.ErrNotFound if the file
// does not exist. The caller owns the returned handle.
func (s *Store) Open(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := s.root.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Stat returns file info for a path. "." refers to the root itself.
func (s *Store) Stat(ctx context.Context, path string) (os.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := s.root.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("failed to stat: %w", err)
	}
	return info, nil
}

// ReadDir lists one directory level, directories first, each group sorted by
// name.
func (s *Store) ReadDir(ctx context.Context, path string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, davgate.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("read directory: %w", err)
		}

		e := Entry{
			Name:    de.Name(),
			IsDir:   de.IsDir(),
			ModTime: info.ModTime().UTC().Format(time.RFC3339),
		}
		if de.IsDir() {
			e.ContentType = "httpd/unix-directory"
		} else {
			e.Size = info.Size()
			e.ContentType = DetectContentType(de.Name())
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}

// DetectContentType maps a file name to a MIME type by extension.
func DetectContentType(path string) string {
	ext := filepath.Ext(path)
	contentType := mime.TypeByExtension(ext)

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}
