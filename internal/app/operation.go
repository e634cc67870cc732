package app

import "time"

// Operation identifies one CLI invocation. Its ID tags every log line the
// invocation writes, so the lines of one import run can be grepped together.
type Operation struct {
	ID         string
	Name       string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
}

// NewOperation creates an operation started at now.
func NewOperation(name, parameters string, now time.Time) *Operation {
	now = now.UTC()
	return &Operation{
		ID:         now.Format("20060102T150405Z"),
		Name:       name,
		Parameters: parameters,
		Status:     "success",
		StartedAt:  now,
	}
}

// Track marks the operation failed when err is non-nil and returns err.
func (op *Operation) Track(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed reports whether any tracked step returned an error.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}
