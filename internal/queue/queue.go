package queue

import (
	"errors"
	"fmt"
	"sync"

	"obslog/internal/logbook"
)

// importQueue implements logbook.ImportQueue on top of a pluggable
// queueStore. All shared logic lives here.
type importQueue struct {
	store queueStore
	mu    sync.Mutex
}

var _ logbook.ImportQueue = (*importQueue)(nil)

// Enqueue appends a request. A record may be queued at most once.
func (q *importQueue) Enqueue(req logbook.ImportRequest) error {
	if req.RecordID == "" {
		return errors.New("import request has no record id")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	queued, err := q.store.Contains(req.RecordID)
	if err != nil {
		return err
	}
	if queued {
		return fmt.Errorf("import %s is already queued", req.RecordID)
	}
	return q.store.Append(&req)
}

// ProcessNext calls fn with the oldest request. The request is removed
// only if fn returns nil. fn runs outside the lock.
func (q *importQueue) ProcessNext(fn logbook.ImportFunc) error {
	q.mu.Lock()
	req, err := q.store.Peek()
	q.mu.Unlock()
	if err != nil {
		return err
	}
	if req == nil {
		return nil
	}

	if err := fn(*req); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Remove(req.RecordID)
}

// Count returns the number of queued requests.
func (q *importQueue) Count() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Len()
}

// Contains reports whether a request for recordID is queued.
func (q *importQueue) Contains(recordID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Contains(recordID)
}
