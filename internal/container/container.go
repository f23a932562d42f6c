// Package container provides dependency injection for the konnectors
// application. It centralizes the creation and wiring of all application
// dependencies, making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SomeAverageDev/konnectors/internal/config"
	"github.com/SomeAverageDev/konnectors/internal/factory"
	"github.com/SomeAverageDev/konnectors/internal/files"
	"github.com/SomeAverageDev/konnectors/internal/konnector"
	"github.com/SomeAverageDev/konnectors/internal/ledger"
	"github.com/SomeAverageDev/konnectors/internal/linker"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/metrics"
	"github.com/SomeAverageDev/konnectors/internal/notification"
	"github.com/SomeAverageDev/konnectors/internal/scheduler"
	"github.com/SomeAverageDev/konnectors/internal/store"
	"github.com/SomeAverageDev/konnectors/internal/vendor"
)

// Container holds all application dependencies and provides methods to
// access them. It is immutable after creation.
type Container struct {
	logger    logging.Logger
	config    *config.Config
	store     *store.Store
	files     files.Store
	ledger    ledger.Source
	notifier  *notification.Builder
	metrics   *metrics.Recorder
	scheduler *scheduler.Scheduler

	// closers release clients opened for optional backends.
	closers []func() error
}

// NewContainer creates and wires all application dependencies with a
// logger configured from cfg.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	return NewContainerWithLogger(ctx, cfg, config.NewLogger(cfg))
}

// NewContainerWithLogger wires the dependencies around an existing logger.
func NewContainerWithLogger(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	logger = logging.OrDefault(logger)
	c := &Container{logger: logger, config: cfg}

	st, err := store.Open(cfg.Store.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	c.store = st
	c.closers = append(c.closers, st.Close)

	if err := c.initFiles(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.initLedger(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}

	var overrides notification.Messages
	if cfg.Notification.MessagesFile != "" {
		overrides, err = notification.LoadMessages(cfg.Notification.MessagesFile)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	c.notifier, err = notification.NewBuilder(cfg.Notification.Language, overrides)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.metrics, err = metrics.NewRecorder()
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.scheduler = scheduler.New(scheduler.NewJobStore(), cfg.Run.Parallelism, logger)

	logger.Debug("Container initialized successfully",
		logging.F("files_backend", cfg.Files.Backend),
		logging.F("ledger_source", cfg.Ledger.Source),
		logging.F("connectors_count", len(cfg.Connectors)))
	return c, nil
}

func (c *Container) initFiles(ctx context.Context) error {
	switch c.config.Files.Backend {
	case "local":
		c.files = files.NewLocalStore(c.config.Files.Directory, c.logger)
	case "gcs":
		gcs, err := files.NewGCSStore(ctx, c.config.Files.Bucket, c.config.Files.Prefix, c.logger)
		if err != nil {
			return err
		}
		c.files = gcs
		c.closers = append(c.closers, gcs.Close)
	case "none":
	default:
		return fmt.Errorf("invalid files backend: %s", c.config.Files.Backend)
	}
	return nil
}

func (c *Container) initLedger(ctx context.Context) error {
	switch c.config.Ledger.Source {
	case "store":
		c.ledger = c.store
	case "csv":
		c.ledger = ledger.NewCSVSource(c.config.Ledger.CSVPath, c.config.LedgerDelimiter(), c.logger)
	case "bigquery":
		bq := c.config.Ledger.BigQuery
		src, err := ledger.NewBigQuerySource(ctx, bq.Project, bq.Dataset, bq.Table, c.logger)
		if err != nil {
			return err
		}
		c.ledger = src
		c.closers = append(c.closers, src.Close)
	case "none":
	default:
		return fmt.Errorf("invalid ledger source: %s", c.config.Ledger.Source)
	}
	return nil
}

// HTTPOptions returns the vendor HTTP settings from the configuration.
func (c *Container) HTTPOptions() vendor.HTTPOptions {
	return vendor.HTTPOptions{
		Timeout:            c.config.HTTPTimeout(),
		UserAgent:          c.config.HTTP.UserAgent,
		AcceptLanguage:     c.config.HTTP.AcceptLanguage,
		InsecureSkipVerify: c.config.HTTP.InsecureSkipVerify,
	}
}

// Definition returns the vendor definition with the configured overrides.
func (c *Container) Definition(vt factory.VendorType) (konnector.Definition, error) {
	def, err := factory.GetDefinition(vt)
	if err != nil {
		return def, err
	}
	if o, ok := c.config.Linking[string(vt)]; ok {
		def.Link, err = applyLinking(def.Link, o)
		if err != nil {
			return def, err
		}
	}
	if c.config.Files.DatePattern != "" {
		def.FilePattern = c.config.Files.DatePattern
	}
	def.Timeout = c.config.RunTimeout()
	return def, nil
}

// Konnector builds a connector for the named vendor.
func (c *Container) Konnector(vendorName string) (*konnector.Konnector, error) {
	vt, err := factory.ParseVendorType(vendorName)
	if err != nil {
		return nil, err
	}
	adapter, err := factory.GetAdapterWithLogger(vt, c.HTTPOptions(), c.logger)
	if err != nil {
		return nil, err
	}
	def, err := c.Definition(vt)
	if err != nil {
		return nil, err
	}
	return konnector.New(def, c.Deps(adapter))
}

// Deps returns the shared connector dependencies around adapter.
func (c *Container) Deps(adapter vendor.Adapter) konnector.Deps {
	deps := konnector.Deps{
		Adapter:  adapter,
		Bills:    c.store,
		Files:    c.files,
		Ledger:   c.ledger,
		Notifier: c.notifier,
		Metrics:  c.metrics,
		Logger:   c.logger,
	}
	if c.config.Files.ValidatePDF {
		deps.ValidateDocument = files.ValidatePDF
	}
	return deps
}

// Jobs builds one scheduler job per configured connector.
func (c *Container) Jobs() ([]scheduler.Job, error) {
	jobs := make([]scheduler.Job, 0, len(c.config.Connectors))
	for i, cc := range c.config.Connectors {
		k, err := c.Konnector(cc.Vendor)
		if err != nil {
			return nil, fmt.Errorf("connectors[%d]: %w", i, err)
		}
		jobs = append(jobs, scheduler.Job{
			Runner: k,
			Request: konnector.Request{
				Credentials: vendor.Credentials{Login: cc.Login, Password: cc.ResolvedPassword()},
				Folder:      cc.Folder,
			},
		})
	}
	return jobs, nil
}

func applyLinking(opts linker.Options, o config.LinkingOverride) (linker.Options, error) {
	if o.Identifier != "" {
		opts.Identifier = o.Identifier
	}
	if o.MinDateDelta != nil {
		opts.MinDateDelta = *o.MinDateDelta
	}
	if o.MaxDateDelta != nil {
		opts.MaxDateDelta = *o.MaxDateDelta
	}
	if o.AmountDelta != "" {
		d, err := decimal.NewFromString(o.AmountDelta)
		if err != nil {
			return opts, fmt.Errorf("invalid amount delta %q: %w", o.AmountDelta, err)
		}
		opts.AmountDelta = d
	}
	return opts, opts.Validate()
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the bill and ledger store.
func (c *Container) GetStore() *store.Store {
	return c.store
}

// GetFiles returns the document store, nil when documents are not kept.
func (c *Container) GetFiles() files.Store {
	return c.files
}

// GetLedger returns the bank operation source, nil when linking is off.
func (c *Container) GetLedger() ledger.Source {
	return c.ledger
}

// GetMetrics returns the metrics recorder.
func (c *Container) GetMetrics() *metrics.Recorder {
	return c.metrics
}

// GetScheduler returns the connector scheduler.
func (c *Container) GetScheduler() *scheduler.Scheduler {
	return c.scheduler
}

// Close releases the store and cloud clients.
func (c *Container) Close() error {
	var firstErr error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.closers = nil
	return firstErr
}
