package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDatabase()
	c.normalizeDispatch()
	c.normalizeStages()
	c.normalizeExport()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.DBDir) == "" {
		c.Paths.DBDir = defaultDBDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.DBDir, err = expandPath(c.Paths.DBDir); err != nil {
		return fmt.Errorf("paths.db_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDatabase() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	switch c.Database.Driver {
	case "":
		c.Database.Driver = defaultDatabaseDriver
	case "sqlite3":
		c.Database.Driver = DriverSQLite
	case "postgresql", "pgx":
		c.Database.Driver = DriverPostgres
	}
	c.Database.File = strings.TrimSpace(c.Database.File)
	if c.Database.File == "" {
		c.Database.File = defaultDatabaseFile
	}
	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		if value, ok := os.LookupEnv(DSNEnv); ok {
			c.Database.DSN = strings.TrimSpace(value)
		}
	}
	c.Database.SummaryTable = strings.TrimSpace(c.Database.SummaryTable)
	if c.Database.SummaryTable == "" {
		c.Database.SummaryTable = defaultSummaryTable
	}
}

func (c *Config) normalizeDispatch() {
	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = defaultWorkers
	}
}

func (c *Config) normalizeStages() {
	names := make([]string, 0, len(c.Stages.Names))
	seen := make(map[string]struct{}, len(c.Stages.Names))
	for _, name := range c.Stages.Names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	c.Stages.Names = names
	c.Stages.Default = strings.TrimSpace(c.Stages.Default)
	if c.Stages.Default == "" && len(names) > 0 {
		c.Stages.Default = names[0]
	}
}

func (c *Config) normalizeExport() {
	c.Export.Headers = strings.ToLower(strings.TrimSpace(c.Export.Headers))
	if c.Export.Headers == "" {
		c.Export.Headers = defaultExportHeaders
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
