package queue

import "obslog/internal/logbook"

// queueStore abstracts where queued requests live.
// Concurrency within a process is managed by the caller (importQueue.mu),
// so stores do not need to be safe for concurrent use.
type queueStore interface {
	// Append adds a request to the end of the queue.
	Append(req *logbook.ImportRequest) error

	// Peek returns the oldest request without removing it.
	// Returns nil if the queue is empty.
	Peek() (*logbook.ImportRequest, error)

	// Remove deletes the request for recordID. Removing a request that is
	// not queued is not an error.
	Remove(recordID string) error

	// Len returns the number of queued requests.
	Len() (int, error)

	// Contains reports whether a request for recordID is queued.
	Contains(recordID string) (bool, error)
}
