package logbook

import (
	"context"
	"errors"
	"io"
)

// ErrDocumentNotFound is returned by DocumentArchive.GetDocument for unknown keys.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentArchive stores submitted import documents until a worker picks them up.
// Documents are streamed so large logs are never held in memory twice.
type DocumentArchive interface {
	// PutDocument stores a document under key, replacing any previous one.
	// size is the number of bytes that will be read from r.
	PutDocument(ctx context.Context, key string, r io.Reader, size int64) error

	// GetDocument writes the document stored under key to w.
	GetDocument(ctx context.Context, key string, w io.Writer) error

	// DeleteDocument removes the document stored under key. Missing keys are not an error.
	DeleteDocument(ctx context.Context, key string) error

	// ValidateSetup verifies that the archive is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}
