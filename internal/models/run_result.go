package models

import (
	"time"
)

// RunResult summarizes one connector run.
type RunResult struct {
	RunID         string
	Vendor        string
	Folder        string
	AcceptedCount int
	FilteredCount int
	// SavedCount is the number of accepted bills actually stored. It is below
	// AcceptedCount only when the run failed while saving.
	SavedCount  int
	LinkedCount int
	// Notification is empty when no new bill was accepted.
	Notification string
	Err          error
	// ErrorKind is the runerror kind name of Err, empty on success.
	ErrorKind  string
	Warnings   []string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether the run finished without a fatal error.
func (r RunResult) Succeeded() bool {
	return r.Err == nil
}

// Duration is the wall time of the run.
func (r RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
