package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds the connection descriptor and file locations for a pipeline run.
type Config struct {
	// Relational source the products and transactions tables are read from
	Source DatabaseConfig `yaml:"source"`

	// Relational sink the merged table is written to
	Sink SinkConfig `yaml:"sink"`

	// Flat-file hand-off between the extraction and transform flows
	Files FilesConfig `yaml:"files"`

	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig describes one relational connection.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // postgres, mysql, sqlite
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"` // file path for sqlite
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"` // postgres only
}

// SinkConfig is the sink connection plus the table it replaces.
type SinkConfig struct {
	DatabaseConfig `yaml:",inline"`
	Table          string `yaml:"table"`
	BatchSize      int    `yaml:"batch_size"`
}

// FilesConfig names the three flat files, relative to Dir.
type FilesConfig struct {
	Dir          string `yaml:"dir"`
	Sales        string `yaml:"sales"`
	Products     string `yaml:"products"`
	Transactions string `yaml:"transactions"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"` // debug, info, warn, error
	Development bool   `yaml:"development"`
}

// DefaultConfig returns a configuration with defaults matching the
// conventional deployment: Postgres source, MySQL sink.
func DefaultConfig() *Config {
	return &Config{
		Source: DatabaseConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			Database: "postgres",
			User:     "postgres",
			SSLMode:  "disable",
		},
		Sink: SinkConfig{
			DatabaseConfig: DatabaseConfig{
				Driver:   "mysql",
				Host:     "localhost",
				Port:     3306,
				Database: "mydatabase",
				User:     "root",
			},
			Table:     "merged_sales",
			BatchSize: 500,
		},
		Files: FilesConfig{
			Dir:          ".",
			Sales:        "sales_data.csv",
			Products:     "db_products.csv",
			Transactions: "db_transactions.csv",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides. Only secrets
// are overridable so credentials can stay out of the file.
func (c *Config) applyEnvOverrides() {
	if pw := os.Getenv("SALESETL_SOURCE_PASSWORD"); pw != "" {
		c.Source.Password = pw
	}
	if pw := os.Getenv("SALESETL_SINK_PASSWORD"); pw != "" {
		c.Sink.Password = pw
	}
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Source.validate("source"); err != nil {
		errs = append(errs, err)
	}
	if err := c.Sink.validate("sink"); err != nil {
		errs = append(errs, err)
	}
	if c.Sink.Table == "" {
		errs = append(errs, errors.New("sink.table is required"))
	}
	if c.Sink.BatchSize < 0 {
		errs = append(errs, fmt.Errorf("sink.batch_size must not be negative, got %d", c.Sink.BatchSize))
	}
	if c.Files.Sales == "" || c.Files.Products == "" || c.Files.Transactions == "" {
		errs = append(errs, errors.New("files.sales, files.products and files.transactions are required"))
	}
	return errors.Join(errs...)
}

func (d DatabaseConfig) validate(section string) error {
	switch d.Driver {
	case "postgres", "mysql":
		if d.Host == "" {
			return fmt.Errorf("%s.host is required for driver %s", section, d.Driver)
		}
		if d.Port <= 0 || d.Port > 65535 {
			return fmt.Errorf("%s.port out of range: %d", section, d.Port)
		}
	case "sqlite":
	default:
		return fmt.Errorf("%s.driver %q is not supported (postgres, mysql, sqlite)", section, d.Driver)
	}
	if d.Database == "" {
		return fmt.Errorf("%s.database is required", section)
	}
	return nil
}

// SalesPath returns the path of the externally supplied sales file.
func (f FilesConfig) SalesPath() string { return filepath.Join(f.Dir, f.Sales) }

// ProductsPath returns the path the products extract is written to.
func (f FilesConfig) ProductsPath() string { return filepath.Join(f.Dir, f.Products) }

// TransactionsPath returns the path the transactions extract is written to.
func (f FilesConfig) TransactionsPath() string { return filepath.Join(f.Dir, f.Transactions) }
