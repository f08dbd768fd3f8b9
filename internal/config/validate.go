package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateExport(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.ContainsAny(c.Database.File, `/\`) {
			return fmt.Errorf("database.file must be a file name inside paths.db_dir, got %q", c.Database.File)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver (or set %s)", DSNEnv)
		}
	default:
		return fmt.Errorf("database.driver: unsupported value %q", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.Workers < 1 {
		return errors.New("dispatch.workers must be at least 1")
	}
	if c.Dispatch.JobTimeoutSeconds < 0 {
		return errors.New("dispatch.job_timeout_seconds must be zero (disabled) or positive")
	}
	return nil
}

func (c *Config) validateStages() error {
	if c.Stages.Strict && len(c.Stages.Names) == 0 {
		return errors.New("stages.strict requires stages.names")
	}
	if c.Stages.Strict && c.Stages.Default != "" && !slices.Contains(c.Stages.Names, c.Stages.Default) {
		return fmt.Errorf("stages.default %q is not listed in stages.names", c.Stages.Default)
	}
	for _, name := range c.Stages.Names {
		if strings.EqualFold(name, c.Database.SummaryTable) {
			return fmt.Errorf("stage %q collides with database.summary_table", name)
		}
	}
	return nil
}

func (c *Config) validateExport() error {
	switch c.Export.Headers {
	case HeadersCanonical, HeadersLocalized:
		return nil
	default:
		return fmt.Errorf("export.headers: unsupported value %q", c.Export.Headers)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
