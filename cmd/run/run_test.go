package run

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeAverageDev/konnectors/cmd/root"
	"github.com/SomeAverageDev/konnectors/internal/config"
	"github.com/SomeAverageDev/konnectors/internal/container"
	"github.com/SomeAverageDev/konnectors/internal/logging"
	"github.com/SomeAverageDev/konnectors/internal/runerror"
	"github.com/SomeAverageDev/konnectors/internal/scheduler"
	"github.com/SomeAverageDev/konnectors/internal/store"
)

func TestRunCommand_Metadata(t *testing.T) {
	assert.Equal(t, "run", Cmd.Use)
	assert.Contains(t, Cmd.Short, "connector")
	assert.Contains(t, Cmd.Long, "Example")
	assert.NotNil(t, Cmd.RunE)

	for _, name := range []string{"vendor", "login", "password", "password-env", "folder"} {
		assert.NotNil(t, Cmd.Flags().Lookup(name), name)
	}
}

func TestRequest_ResolvesPassword(t *testing.T) {
	t.Setenv("EDF_PASSWORD", "from-env")

	req := request(Flags{Login: "jane", PasswordEnv: "EDF_PASSWORD", Folder: "/EDF"})
	assert.Equal(t, "jane", req.Credentials.Login)
	assert.Equal(t, "from-env", req.Credentials.Password)
	assert.Equal(t, "/EDF", req.Folder)

	req = request(Flags{Login: "jane", Password: "inline", PasswordEnv: "EDF_PASSWORD"})
	assert.Equal(t, "inline", req.Credentials.Password)
}

func withContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := &config.Config{
		Log:          config.LogConfig{Level: "info", Format: "text"},
		Store:        config.StoreConfig{DSN: store.MemoryDSN},
		Files:        config.FilesConfig{Backend: "none"},
		Ledger:       config.LedgerConfig{Source: "store"},
		HTTP:         config.HTTPConfig{TimeoutSeconds: 5},
		Run:          config.RunConfig{TimeoutSeconds: 30, Parallelism: 1},
		Notification: config.NotificationConfig{Language: "fr"},
	}
	c, err := container.NewContainerWithLogger(context.Background(), cfg, logging.NewMockLogger())
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(func() {
		root.SetContainer(nil)
		_ = c.Close()
	})
	return c
}

func newCommand(out *bytes.Buffer) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	cmd.SetOut(out)
	return cmd
}

func TestRunFunc_NoContainer(t *testing.T) {
	root.SetContainer(nil)
	err := runFunc(newCommand(&bytes.Buffer{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container not initialized")
}

func TestRunFunc_UnknownVendor(t *testing.T) {
	withContainer(t)
	original := flags
	t.Cleanup(func() { flags = original })
	flags = Flags{Vendor: "orange", Folder: "/x"}

	err := runFunc(newCommand(&bytes.Buffer{}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orange")
}

func TestRunFunc_BadCredentialsReported(t *testing.T) {
	c := withContainer(t)
	original := flags
	t.Cleanup(func() { flags = original })
	flags = Flags{Vendor: "edf", Login: "jane@example.org", Folder: "/Administration/EDF"}

	var out bytes.Buffer
	err := runFunc(newCommand(&out), nil)
	require.Error(t, err)
	assert.Equal(t, runerror.KindBadCredentials, runerror.KindOf(err))
	assert.Contains(t, out.String(), "bad_credentials")

	jobs, err := c.GetScheduler().Jobs().ListJobs(context.Background(), scheduler.JobFilter{})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, scheduler.JobStatusFailed, jobs[0].Status)
}
