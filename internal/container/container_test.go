package container

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeAverageDev/konnectors/internal/config"
	"github.com/SomeAverageDev/konnectors/internal/factory"
	"github.com/SomeAverageDev/konnectors/internal/files"
	"github.com/SomeAverageDev/konnectors/internal/ledger"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Log:          config.LogConfig{Level: "info", Format: "text"},
		Store:        config.StoreConfig{DSN: store.MemoryDSN},
		Files:        config.FilesConfig{Backend: "local", Directory: t.TempDir(), ValidatePDF: true, DatePattern: "YYYYMMDD"},
		Ledger:       config.LedgerConfig{Source: "store", Delimiter: ","},
		HTTP:         config.HTTPConfig{TimeoutSeconds: 10, InsecureSkipVerify: true},
		Run:          config.RunConfig{TimeoutSeconds: 60, Parallelism: 2},
		Notification: config.NotificationConfig{Language: "fr"},
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	c, err := NewContainerWithLogger(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewContainer_NilConfig(t *testing.T) {
	_, err := NewContainer(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewContainer_WiresDependencies(t *testing.T) {
	cfg := testConfig(t)
	c := newTestContainer(t, cfg)

	assert.Same(t, cfg, c.GetConfig())
	assert.NotNil(t, c.GetLogger())
	require.NotNil(t, c.GetStore())
	assert.IsType(t, &files.LocalStore{}, c.GetFiles())
	assert.Same(t, c.GetStore(), c.GetLedger())
	assert.NotNil(t, c.GetMetrics())
	assert.NotNil(t, c.GetScheduler())

	opts := c.HTTPOptions()
	assert.True(t, opts.InsecureSkipVerify)
	assert.Equal(t, 10.0, opts.Timeout.Seconds())
}

func TestNewContainer_OptionalBackendsOff(t *testing.T) {
	cfg := testConfig(t)
	cfg.Files.Backend = "none"
	cfg.Ledger.Source = "none"
	c := newTestContainer(t, cfg)

	assert.Nil(t, c.GetFiles())
	assert.Nil(t, c.GetLedger())

	deps := c.Deps(nil)
	assert.Nil(t, deps.Files)
	assert.Nil(t, deps.Ledger)
}

func TestNewContainer_CSVLedger(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ledger.Source = "csv"
	cfg.Ledger.CSVPath = filepath.Join(t.TempDir(), "statement.csv")
	cfg.Ledger.Delimiter = ";"
	c := newTestContainer(t, cfg)

	src, ok := c.GetLedger().(*ledger.CSVSource)
	require.True(t, ok)
	assert.Equal(t, ';', src.Delimiter)
}

func TestNewContainer_MessagesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.Notification.MessagesFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := NewContainerWithLogger(context.Background(), cfg, logging.NewMockLogger())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "messages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fr:\n  notification edf:\n    one: \"%d facture\"\n    other: \"%d factures\"\n"), 0o600))
	cfg.Notification.MessagesFile = path
	c := newTestContainer(t, cfg)
	msg, ok := c.notifier.Build("notification edf", 2)
	assert.True(t, ok)
	assert.Equal(t, "2 factures", msg)
}

func TestDefinition_AppliesOverrides(t *testing.T) {
	cfg := testConfig(t)
	maxDelta := 30
	cfg.Linking = map[string]config.LinkingOverride{
		"edf": {MaxDateDelta: &maxDelta, AmountDelta: "0.5", Identifier: "EDF*PRLV"},
	}
	c := newTestContainer(t, cfg)

	def, err := c.Definition(factory.EDF)
	require.NoError(t, err)
	assert.Equal(t, 4, def.Link.MinDateDelta, "unset fields keep the vendor default")
	assert.Equal(t, 30, def.Link.MaxDateDelta)
	assert.Equal(t, "0.5", def.Link.AmountDelta.String())
	assert.Equal(t, "EDF*PRLV", def.Link.Identifier)
	assert.Equal(t, 60.0, def.Timeout.Seconds())

	leclerc, err := c.Definition(factory.LeclercDrive)
	require.NoError(t, err)
	assert.Equal(t, 20, leclerc.Link.MaxDateDelta)
}

func TestDefinition_InvalidOverride(t *testing.T) {
	cfg := testConfig(t)
	minDelta := 25
	cfg.Linking = map[string]config.LinkingOverride{"edf": {MinDateDelta: &minDelta}}
	c := newTestContainer(t, cfg)

	_, err := c.Definition(factory.EDF)
	assert.Error(t, err, "min above the shipped max")
}

func TestKonnectorAndJobs(t *testing.T) {
	cfg := testConfig(t)
	t.Setenv("EDF_PASSWORD", "secret")
	cfg.Connectors = []config.ConnectorConfig{
		{Vendor: "edf", Login: "jane", PasswordEnv: "EDF_PASSWORD", Folder: "/EDF"},
		{Vendor: "leclercdrive", Login: "jane", Password: "pw", Folder: "/Courses"},
	}
	c := newTestContainer(t, cfg)

	k, err := c.Konnector("EDF")
	require.NoError(t, err)
	assert.Equal(t, "edf", k.Vendor())

	_, err = c.Konnector("orange")
	assert.Error(t, err)

	jobs, err := c.Jobs()
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "secret", jobs[0].Request.Credentials.Password)
	assert.Equal(t, "/Courses", jobs[1].Request.Folder)
	assert.Equal(t, "leclercdrive", jobs[1].Runner.Vendor())

	cfg.Connectors = append(cfg.Connectors, config.ConnectorConfig{Vendor: "orange", Folder: "/x"})
	_, err = c.Jobs()
	assert.Error(t, err)
}

func TestDeps_ValidatePDFToggle(t *testing.T) {
	cfg := testConfig(t)
	c := newTestContainer(t, cfg)
	assert.NotNil(t, c.Deps(nil).ValidateDocument)

	cfg.Files.ValidatePDF = false
	assert.Nil(t, c.Deps(nil).ValidateDocument)
}

func TestClose_Idempotent(t *testing.T) {
	c, err := NewContainerWithLogger(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
