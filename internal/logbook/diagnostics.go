package logbook

import (
	"fmt"
	"strings"

	"obslog/internal/model"
)

// Diagnostics accumulates the user-facing messages of one import, in order.
// Warnings are non-fatal conflicts (the user's data won); errors are
// references that could not be resolved.
type Diagnostics struct {
	Warnings []string
	Errors   []string
}

func (d *Diagnostics) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

func (d *Diagnostics) Errorf(format string, args ...any) {
	d.Errors = append(d.Errors, fmt.Sprintf(format, args...))
}

// ImportStats counts what an import did.
type ImportStats struct {
	LocationsCreated    int
	EquipmentCreated    int
	SessionsCreated     int
	SessionsUpdated     int
	SessionsKept        int // reused with fields untouched
	ObservationsCreated int
	ObservationsUpdated int
	ObservationsSkipped int
	Batches             int
}

// ImportResult is the typed outcome of one import job.
type ImportResult struct {
	Diagnostics
	Stats   ImportStats
	Outcome model.ImportOutcome
	// Failure is the reason the job stopped early, empty when it ran to completion.
	Failure string
}

// Log renders the result as the text stored on the ImportHistoryRecord.
func (r *ImportResult) Log() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Outcome: %s\n", r.Outcome)
	if r.Failure != "" {
		fmt.Fprintf(&b, "Failure: %s\n", r.Failure)
	}
	s := r.Stats
	fmt.Fprintf(&b, "Sessions: %d created, %d updated, %d kept\n", s.SessionsCreated, s.SessionsUpdated, s.SessionsKept)
	fmt.Fprintf(&b, "Observations: %d created, %d updated, %d skipped in %d batch(es)\n",
		s.ObservationsCreated, s.ObservationsUpdated, s.ObservationsSkipped, s.Batches)
	if s.LocationsCreated > 0 || s.EquipmentCreated > 0 {
		fmt.Fprintf(&b, "New locations: %d, new equipment: %d\n", s.LocationsCreated, s.EquipmentCreated)
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range r.Warnings {
			b.WriteString("  - " + w + "\n")
		}
	}
	if len(r.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range r.Errors {
			b.WriteString("  - " + e + "\n")
		}
	}
	return b.String()
}
