package testutil

import (
	"obslog/internal/archive"
	"obslog/internal/queue"

	"obslog/internal/logbook"
)

// NewTestArchive creates an in-memory document archive.
func NewTestArchive() *archive.MemoryArchive {
	return archive.NewMemoryArchive()
}

// NewTestQueue creates an in-memory import queue.
func NewTestQueue() logbook.ImportQueue {
	return queue.NewMemoryQueue()
}
