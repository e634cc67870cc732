package queue

import (
	"slices"

	"obslog/internal/logbook"
)

// memoryStore keeps requests in a slice in submission order.
type memoryStore struct {
	requests []*logbook.ImportRequest
}

// NewMemoryQueue creates an in-memory import queue, useful for testing.
func NewMemoryQueue() logbook.ImportQueue {
	return &importQueue{store: &memoryStore{}}
}

func (m *memoryStore) Append(req *logbook.ImportRequest) error {
	m.requests = append(m.requests, req)
	return nil
}

func (m *memoryStore) Peek() (*logbook.ImportRequest, error) {
	if len(m.requests) == 0 {
		return nil, nil
	}
	return m.requests[0], nil
}

func (m *memoryStore) Remove(recordID string) error {
	m.requests = slices.DeleteFunc(m.requests, func(r *logbook.ImportRequest) bool {
		return r.RecordID == recordID
	})
	return nil
}

func (m *memoryStore) Len() (int, error) {
	return len(m.requests), nil
}

func (m *memoryStore) Contains(recordID string) (bool, error) {
	return slices.ContainsFunc(m.requests, func(r *logbook.ImportRequest) bool {
		return r.RecordID == recordID
	}), nil
}
