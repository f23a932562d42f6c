package pipeline

import (
	"fmt"

	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// RunContext is the mutable state of one connector run. It is created per run
// and never shared between runs.
type RunContext struct {
	RunID       string
	Vendor      string
	Folder      string
	Credentials vendor.Credentials

	// Session is set by the login stage and owned by the vendor adapter.
	Session *vendor.Session
	// Document is the raw billing payload returned by the fetch stage.
	Document *vendor.Document

	Candidates []models.Bill
	Accepted   []models.Bill
	// Duplicates are candidates rejected because an identical bill exists.
	Duplicates []models.Bill
	// Saved are the accepted bills whose metadata reached the store. It only
	// differs from Accepted when the save stage failed.
	Saved []models.Bill
	Links []models.Link

	Notification string
	Warnings     []string
}

// Warn records a non-fatal failure on the run's error trail and logs it.
func (rc *RunContext) Warn(logger logging.Logger, err error, msg string, fields ...logging.Field) {
	rc.Warnings = append(rc.Warnings, fmt.Sprintf("%s: %v", msg, err))
	logger.WithError(err).Warn(msg, fields...)
}
