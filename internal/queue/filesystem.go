package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"obslog/internal/logbook"
)

const requestExt = ".json"

// fileStore keeps one JSON file per request so that separate processes
// can submit and process without sharing an index file.
//
// Directory structure:
//
//	<queue_dir>/
//	  <submitted unix nanos>-<record id>.json
//
// File names sort in submission order.
type fileStore struct {
	dir string
}

// NewFileSystemQueue creates an import queue persisted under dir.
func NewFileSystemQueue(dir string) (logbook.ImportQueue, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating queue directory: %w", err)
	}
	return &importQueue{store: &fileStore{dir: dir}}, nil
}

func requestFileName(req *logbook.ImportRequest) string {
	return fmt.Sprintf("%020d-%s%s", req.SubmittedAt.UnixNano(), req.RecordID, requestExt)
}

// recordIDOf extracts the record id from a request file name.
func recordIDOf(name string) (string, bool) {
	if !strings.HasSuffix(name, requestExt) {
		return "", false
	}
	_, id, ok := strings.Cut(strings.TrimSuffix(name, requestExt), "-")
	return id, ok && id != ""
}

// names returns the queued request file names, oldest first.
func (f *fileStore) names() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("reading queue directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := recordIDOf(e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func (f *fileStore) Append(req *logbook.ImportRequest) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding import request: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, ".request-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing import request: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, filepath.Join(f.dir, requestFileName(req))); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("publishing import request: %w", err)
	}
	return nil
}

func (f *fileStore) Peek() (*logbook.ImportRequest, error) {
	names, err := f.names()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(f.dir, names[0]))
	if err != nil {
		return nil, fmt.Errorf("reading import request: %w", err)
	}
	var req logbook.ImportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding import request %s: %w", names[0], err)
	}
	return &req, nil
}

func (f *fileStore) Remove(recordID string) error {
	names, err := f.names()
	if err != nil {
		return err
	}
	for _, name := range names {
		if id, _ := recordIDOf(name); id != recordID {
			continue
		}
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing import request: %w", err)
		}
	}
	return nil
}

func (f *fileStore) Len() (int, error) {
	names, err := f.names()
	return len(names), err
}

func (f *fileStore) Contains(recordID string) (bool, error) {
	names, err := f.names()
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(names, func(name string) bool {
		id, _ := recordIDOf(name)
		return id == recordID
	}), nil
}
