// Package archive stores submitted import documents until the import worker
// reads them: in memory, on the local filesystem or in an S3 bucket.
package archive

import (
	"context"
	"fmt"
	"io"
	"sync"

	"obslog/internal/logbook"
)

// MemoryArchive is an in-memory DocumentArchive, useful for testing.
// It is safe for concurrent use.
type MemoryArchive struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

var _ logbook.DocumentArchive = (*MemoryArchive)(nil)

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{docs: make(map[string][]byte)}
}

func (m *MemoryArchive) PutDocument(_ context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = data
	return nil
}

func (m *MemoryArchive) GetDocument(_ context.Context, key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.docs[key]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", logbook.ErrDocumentNotFound, key)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func (m *MemoryArchive) DeleteDocument(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, key)
	return nil
}

func (m *MemoryArchive) ValidateSetup(context.Context) error {
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
