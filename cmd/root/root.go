// Package root contains the root command for the application
package root

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SomeAverageDev/konnectors/internal/config"
	"github.com/SomeAverageDev/konnectors/internal/container"
	"github.com/SomeAverageDev/konnectors/internal/logging"
)

// CommonFlags represents the flags that are common to all commands
type CommonFlags struct {
	ConfigFile      string
	LogLevel        string
	MetricsTextfile string
}

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "konnectors",
		Short: "Fetch vendor bills, store them and link them to bank operations.",
		Long: `konnectors logs into vendor portals (EDF, Leclerc Drive), downloads the
bills that are not stored yet and links each of them to the bank operation
that paid it.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to konnectors!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}

	// Common flags accessible to all commands
	SharedFlags = CommonFlags{}

	appContainer *container.Container
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&SharedFlags.ConfigFile, "config", "c", "", "Config file (default: config.yaml in ., .konnectors or $HOME/.konnectors)")
	Cmd.PersistentFlags().StringVar(&SharedFlags.LogLevel, "log-level", "", "Override the configured log level")
	Cmd.PersistentFlags().StringVar(&SharedFlags.MetricsTextfile, "metrics-textfile", "", "Write run metrics to this file when the command ends")
}

func setup(cmd *cobra.Command, _ []string) error {
	config.LoadEnv(logging.NewLogrusAdapterFromLogger(Log))

	cfg, err := config.Load(SharedFlags.ConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if SharedFlags.LogLevel != "" {
		cfg.Log.Level = SharedFlags.LogLevel
	}
	if SharedFlags.MetricsTextfile != "" {
		cfg.Metrics.Textfile = SharedFlags.MetricsTextfile
	}
	Log = config.ConfigureLoggingFromConfig(cfg)

	c, err := container.NewContainerWithLogger(cmd.Context(), cfg, logging.NewLogrusAdapterFromLogger(Log))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	SetContainer(c)
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	c := GetContainer()
	if c == nil {
		return
	}
	if err := c.GetMetrics().WriteTextfile(c.GetConfig().Metrics.Textfile); err != nil {
		Log.Warnf("Failed to write metrics: %v", err)
	}
	if err := c.Close(); err != nil {
		Log.Warnf("Failed to close resources: %v", err)
	}
	SetContainer(nil)
}

// GetContainer returns the container built for the running command, nil
// before PersistentPreRunE.
func GetContainer() *container.Container {
	return appContainer
}

// SetContainer replaces the shared container. Tests use it to inject one.
func SetContainer(c *container.Container) {
	appContainer = c
}

// GetLogrusAdapter returns the shared logger behind the logging interface.
func GetLogrusAdapter() logging.Logger {
	return logging.NewLogrusAdapterFromLogger(Log)
}
