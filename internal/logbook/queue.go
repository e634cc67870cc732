package logbook

import "time"

// ImportRequest is the queued form of one import invocation.
// DocumentKey names the submitted document in the DocumentArchive.
type ImportRequest struct {
	RecordID        string    `json:"record_id"`
	OwnerID         string    `json:"owner_id"`
	ActorID         string    `json:"actor_id"`
	DocumentKey     string    `json:"document_key"`
	TargetSessionID string    `json:"target_session_id,omitempty"`
	Encrypted       bool      `json:"encrypted,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// ImportFunc handles one dequeued request.
type ImportFunc func(req ImportRequest) error

// ImportQueue is the fire-and-forget boundary between submission and execution.
// Requests are processed in submission order, one at a time.
type ImportQueue interface {
	// Enqueue appends a request to the queue.
	Enqueue(req ImportRequest) error

	// ProcessNext calls fn with the oldest request. The request is removed
	// only if fn returns nil; otherwise it stays queued for retry.
	// Returns nil without calling fn when the queue is empty.
	ProcessNext(fn ImportFunc) error

	// Count returns the number of queued requests.
	Count() (int, error)

	// Contains reports whether a request for recordID is queued.
	Contains(recordID string) (bool, error)
}
