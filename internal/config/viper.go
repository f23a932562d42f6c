// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the configuration,
// e.g. KONNECTORS_LOG_LEVEL.
const EnvPrefix = "KONNECTORS"

// Config represents the complete application configuration
type Config struct {
	Log          LogConfig                  `mapstructure:"log" yaml:"log"`
	Store        StoreConfig                `mapstructure:"store" yaml:"store"`
	Files        FilesConfig                `mapstructure:"files" yaml:"files"`
	Ledger       LedgerConfig               `mapstructure:"ledger" yaml:"ledger"`
	HTTP         HTTPConfig                 `mapstructure:"http" yaml:"http"`
	Run          RunConfig                  `mapstructure:"run" yaml:"run"`
	Notification NotificationConfig         `mapstructure:"notification" yaml:"notification"`
	Metrics      MetricsConfig              `mapstructure:"metrics" yaml:"metrics"`
	Linking      map[string]LinkingOverride `mapstructure:"linking" yaml:"linking"`
	Connectors   []ConnectorConfig          `mapstructure:"connectors" yaml:"connectors"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// StoreConfig locates the SQLite database holding bills and the ledger.
type StoreConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn"`
}

// FilesConfig selects where downloaded documents go.
type FilesConfig struct {
	// Backend is local, gcs or none.
	Backend     string `mapstructure:"backend" yaml:"backend"`
	Directory   string `mapstructure:"directory" yaml:"directory"`
	Bucket      string `mapstructure:"bucket" yaml:"bucket"`
	Prefix      string `mapstructure:"prefix" yaml:"prefix"`
	ValidatePDF bool   `mapstructure:"validate_pdf" yaml:"validate_pdf"`
	DatePattern string `mapstructure:"date_pattern" yaml:"date_pattern"`
}

// LedgerConfig selects where bank operations are read from.
type LedgerConfig struct {
	// Source is store, csv, bigquery or none.
	Source    string         `mapstructure:"source" yaml:"source"`
	CSVPath   string         `mapstructure:"csv_path" yaml:"csv_path"`
	Delimiter string         `mapstructure:"delimiter" yaml:"delimiter"`
	BigQuery  BigQueryConfig `mapstructure:"bigquery" yaml:"bigquery"`
}

type BigQueryConfig struct {
	Project string `mapstructure:"project" yaml:"project"`
	Dataset string `mapstructure:"dataset" yaml:"dataset"`
	Table   string `mapstructure:"table" yaml:"table"`
}

type HTTPConfig struct {
	TimeoutSeconds     int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	UserAgent          string `mapstructure:"user_agent" yaml:"user_agent"`
	AcceptLanguage     string `mapstructure:"accept_language" yaml:"accept_language"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

type RunConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	Parallelism    int `mapstructure:"parallelism" yaml:"parallelism"`
}

type NotificationConfig struct {
	Language     string `mapstructure:"language" yaml:"language"`
	MessagesFile string `mapstructure:"messages_file" yaml:"messages_file"`
}

type MetricsConfig struct {
	// Textfile, when set, receives the metrics after every command.
	Textfile string `mapstructure:"textfile" yaml:"textfile"`
}

// LinkingOverride replaces parts of a vendor's linking tolerances. Unset
// fields keep the vendor defaults.
type LinkingOverride struct {
	Identifier   string `mapstructure:"identifier" yaml:"identifier"`
	MinDateDelta *int   `mapstructure:"min_date_delta" yaml:"min_date_delta"`
	MaxDateDelta *int   `mapstructure:"max_date_delta" yaml:"max_date_delta"`
	AmountDelta  string `mapstructure:"amount_delta" yaml:"amount_delta"`
}

// ConnectorConfig is one configured portal account.
type ConnectorConfig struct {
	Vendor   string `mapstructure:"vendor" yaml:"vendor"`
	Login    string `mapstructure:"login" yaml:"login"`
	Password string `mapstructure:"password" yaml:"-"`
	// PasswordEnv names an environment variable holding the password.
	PasswordEnv string `mapstructure:"password_env" yaml:"password_env"`
	Folder      string `mapstructure:"folder" yaml:"folder"`
}

// ResolvedPassword returns the inline password, or the one read from
// PasswordEnv.
func (c ConnectorConfig) ResolvedPassword() string {
	if c.Password != "" {
		return c.Password
	}
	if c.PasswordEnv != "" {
		return os.Getenv(c.PasswordEnv)
	}
	return ""
}

// HTTPTimeout is the per-request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// RunTimeout bounds one connector run; zero means none.
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.Run.TimeoutSeconds) * time.Second
}

// LedgerDelimiter returns the CSV delimiter as a rune.
func (c *Config) LedgerDelimiter() rune {
	if c.Ledger.Delimiter == "" {
		return ','
	}
	return []rune(c.Ledger.Delimiter)[0]
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return Load("")
}

// Load reads the configuration. An explicit file replaces the search of
// config.yaml in $HOME/.konnectors, .konnectors and the working directory.
func Load(file string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.konnectors")
		v.AddConfigPath(".konnectors")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless explicit)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			if file != "" {
				return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
			}
			fmt.Fprintf(os.Stderr, "Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("store.dsn", ".konnectors/konnectors.db")

	v.SetDefault("files.backend", "local")
	v.SetDefault("files.directory", "bills")
	v.SetDefault("files.bucket", "")
	v.SetDefault("files.prefix", "")
	v.SetDefault("files.validate_pdf", true)
	v.SetDefault("files.date_pattern", "YYYYMMDD")

	v.SetDefault("ledger.source", "store")
	v.SetDefault("ledger.csv_path", "")
	v.SetDefault("ledger.delimiter", ",")
	v.SetDefault("ledger.bigquery.project", "")
	v.SetDefault("ledger.bigquery.dataset", "finance")
	v.SetDefault("ledger.bigquery.table", "transactions")

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.accept_language", "")
	v.SetDefault("http.insecure_skip_verify", false)

	v.SetDefault("run.timeout_seconds", 300)
	v.SetDefault("run.parallelism", 2)

	v.SetDefault("notification.language", "fr")
	v.SetDefault("notification.messages_file", "")

	v.SetDefault("metrics.textfile", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required")
	}

	switch config.Files.Backend {
	case "none":
	case "local":
		if config.Files.Directory == "" {
			return fmt.Errorf("files.directory is required for the local backend")
		}
	case "gcs":
		if config.Files.Bucket == "" {
			return fmt.Errorf("files.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("invalid files backend: %s (must be 'local', 'gcs' or 'none')", config.Files.Backend)
	}

	switch config.Ledger.Source {
	case "store", "none":
	case "csv":
		if config.Ledger.CSVPath == "" {
			return fmt.Errorf("ledger.csv_path is required for the csv source")
		}
	case "bigquery":
		bq := config.Ledger.BigQuery
		if bq.Project == "" || bq.Dataset == "" || bq.Table == "" {
			return fmt.Errorf("ledger.bigquery needs project, dataset and table")
		}
	default:
		return fmt.Errorf("invalid ledger source: %s (must be 'store', 'csv', 'bigquery' or 'none')", config.Ledger.Source)
	}

	if len([]rune(config.Ledger.Delimiter)) > 1 {
		return fmt.Errorf("ledger delimiter must be a single character, got: %s", config.Ledger.Delimiter)
	}

	if config.HTTP.TimeoutSeconds < 1 || config.HTTP.TimeoutSeconds > 600 {
		return fmt.Errorf("http.timeout_seconds must be between 1 and 600, got: %d", config.HTTP.TimeoutSeconds)
	}

	if config.Run.TimeoutSeconds < 0 {
		return fmt.Errorf("run.timeout_seconds must be >= 0, got: %d", config.Run.TimeoutSeconds)
	}

	if config.Run.Parallelism < 1 || config.Run.Parallelism > 32 {
		return fmt.Errorf("run.parallelism must be between 1 and 32, got: %d", config.Run.Parallelism)
	}

	for vendor, o := range config.Linking {
		if o.AmountDelta != "" {
			if _, err := decimal.NewFromString(o.AmountDelta); err != nil {
				return fmt.Errorf("linking.%s.amount_delta is not a number: %s", vendor, o.AmountDelta)
			}
		}
	}

	for i, c := range config.Connectors {
		if c.Vendor == "" {
			return fmt.Errorf("connectors[%d]: vendor is required", i)
		}
		if c.Folder == "" {
			return fmt.Errorf("connectors[%d] (%s): folder is required", i, c.Vendor)
		}
	}

	return nil
}
