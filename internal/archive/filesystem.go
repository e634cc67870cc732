package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"obslog/internal/logbook"
)

// FileSystemArchive stores each document as one file named by its key:
//
//	<root>/
//	  documents/
//	    <key>.oal
type FileSystemArchive struct {
	root    string
	docsDir string
}

var _ logbook.DocumentArchive = (*FileSystemArchive)(nil)

// NewFileSystemArchive creates an archive rooted at root, creating the
// directory structure if needed.
func NewFileSystemArchive(root string) (*FileSystemArchive, error) {
	docsDir := filepath.Join(root, "documents")
	if err := os.MkdirAll(docsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}
	return &FileSystemArchive{root: root, docsDir: docsDir}, nil
}

func (a *FileSystemArchive) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid document key %q", key)
	}
	return filepath.Join(a.docsDir, key+".oal"), nil
}

// PutDocument writes the document atomically (temp file + rename).
func (a *FileSystemArchive) PutDocument(_ context.Context, key string, r io.Reader, size int64) error {
	dest, err := a.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(a.docsDir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (a *FileSystemArchive) GetDocument(_ context.Context, key string, w io.Writer) error {
	src, err := a.path(key)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", logbook.ErrDocumentNotFound, key)
		}
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	return nil
}

func (a *FileSystemArchive) DeleteDocument(_ context.Context, key string) error {
	p, err := a.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the archive directories exist.
func (a *FileSystemArchive) ValidateSetup(context.Context) error {
	for _, dir := range []string{a.root, a.docsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("archive directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("archive path is not a directory: %s", dir)
		}
	}
	return nil
}
