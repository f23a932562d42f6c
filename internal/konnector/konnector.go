// Package konnector assembles a vendor adapter and the shared bill stages
// into a runnable connector.
package konnector

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/files"
	"github.com/SomeAverageDev/konnectors/internal/ledger"
	"github.com/SomeAverageDev/konnectors/internal/linker"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/metrics"
	"github.com/SomeAverageDev/konnectors/internal/models"
	"github.com/SomeAverageDev/konnectors/internal/pipeline"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// BillStore is the bill persistence used by a run. store.Store implements it.
type BillStore interface {
	ExistingBills(ctx context.Context, vendor, folder string) ([]models.Bill, error)
	SaveBill(ctx context.Context, bill models.Bill, tags []string) (models.Bill, error)
	LinkBill(ctx context.Context, billID, operationID string, at time.Time) error
	LinkedOperationIDs(ctx context.Context, ids []string) (map[string]bool, error)
}

// Notifier renders the message announcing new bills.
type Notifier interface {
	Build(key string, count int) (string, bool)
}

// Definition is the static description of a connector.
type Definition struct {
	Vendor   string
	BillType string
	Link     linker.Options
	// NotificationKey selects the localized message of the vendor.
	NotificationKey string
	FileTags        []string
	// FilePattern formats the bill date in document names, e.g. YYYYMMDD.
	FilePattern string
	// Timeout bounds a whole run. Zero means no limit besides the caller's
	// context.
	Timeout time.Duration
}

// Deps are the collaborators of a connector. Files, Ledger, Notifier and
// Metrics are optional: a nil value skips the matching work.
type Deps struct {
	Adapter  vendor.Adapter
	Bills    BillStore
	Files    files.Store
	Ledger   ledger.Source
	Notifier Notifier
	Metrics  *metrics.Recorder
	Logger   logging.Logger
	// ValidateDocument checks a downloaded document before it is stored.
	ValidateDocument func([]byte) error
	// Now defaults to time.Now.
	Now func() time.Time
}

// Request carries the per-run inputs.
type Request struct {
	Credentials vendor.Credentials
	Folder      string
}

// Konnector runs the bill pipeline of one vendor.
type Konnector struct {
	def      Definition
	deps     Deps
	linker   *linker.Linker
	executor *pipeline.Executor
	logger   logging.Logger
}

// New validates def and deps and builds the stage sequence.
func New(def Definition, deps Deps) (*Konnector, error) {
	if deps.Adapter == nil {
		return nil, fmt.Errorf("connector needs a vendor adapter")
	}
	if deps.Bills == nil {
		return nil, fmt.Errorf("connector needs a bill store")
	}
	if def.Vendor == "" {
		def.Vendor = deps.Adapter.Name()
	}
	if def.FilePattern == "" {
		def.FilePattern = dateutils.DefaultFilePattern
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	logger := logging.OrDefault(deps.Logger).WithField(logging.FieldVendor, def.Vendor)

	lk, err := linker.New(def.Link, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid linking options for %s: %w", def.Vendor, err)
	}

	k := &Konnector{
		def:    def,
		deps:   deps,
		linker: lk,
		logger: logger,
	}
	k.executor = pipeline.New(logger,
		pipeline.NewStage("login", k.login),
		pipeline.NewStage("fetch", k.fetch),
		pipeline.NewStage("extract", k.extract),
		pipeline.NewStage("filter", k.filter),
		pipeline.NewStage("save", k.save),
		pipeline.NewStage("link", k.link),
		pipeline.NewStage("notify", k.notify),
	).Finally(pipeline.NewStage("logout", k.logout))
	return k, nil
}

// Vendor returns the vendor name.
func (k *Konnector) Vendor() string {
	return k.def.Vendor
}

// Definition returns the connector definition after defaults were applied.
func (k *Konnector) Definition() Definition {
	return k.def
}

// Stages lists the main stage names in execution order.
func (k *Konnector) Stages() []string {
	return k.executor.Stages()
}

// Run executes one connector run. The returned result always carries the
// counts reached before a fatal error, if any.
func (k *Konnector) Run(ctx context.Context, req Request) models.RunResult {
	if k.def.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, k.def.Timeout)
		defer cancel()
	}

	rc := &pipeline.RunContext{
		RunID:       uuid.New().String(),
		Vendor:      k.def.Vendor,
		Folder:      req.Folder,
		Credentials: req.Credentials,
	}
	result := models.RunResult{
		RunID:     rc.RunID,
		Vendor:    rc.Vendor,
		Folder:    rc.Folder,
		StartedAt: k.deps.Now(),
	}

	log := k.logger.WithFields(
		logging.F(logging.FieldRunID, rc.RunID),
		logging.F(logging.FieldFolder, rc.Folder))
	log.Info("Connector run started")

	err := k.executor.Execute(ctx, rc)

	result.AcceptedCount = len(rc.Accepted)
	result.FilteredCount = len(rc.Duplicates)
	result.SavedCount = len(rc.Saved)
	result.LinkedCount = len(rc.Links)
	result.Notification = rc.Notification
	result.Warnings = rc.Warnings
	result.FinishedAt = k.deps.Now()
	if err != nil {
		result.Err = err
		result.ErrorKind = runerror.KindOf(err).String()
		log.WithError(err).Error("Connector run failed",
			logging.F(logging.FieldReason, result.ErrorKind))
	} else {
		log.Info("Connector run completed",
			logging.F("accepted", result.AcceptedCount),
			logging.F("filtered", result.FilteredCount),
			logging.F("linked", result.LinkedCount),
			logging.F("warnings", len(result.Warnings)))
	}

	k.deps.Metrics.ObserveRun(result)
	return result
}
