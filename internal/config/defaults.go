package config

const (
	defaultOutputDir      = "output"
	defaultLogDir         = "log"
	defaultDBDir          = "db"
	defaultDatabaseDriver = DriverSQLite
	defaultDatabaseFile   = "database.db"
	defaultSummaryTable   = "Total"
	defaultWorkers        = 4
	defaultExportHeaders  = HeadersCanonical
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported export header styles.
const (
	HeadersCanonical = "canonical"
	HeadersLocalized = "localized"
)

// DSNEnv names the environment fallback for database.dsn.
const DSNEnv = "REPORT2CSV_DATABASE_DSN"

func defaultStageNames() []string {
	return []string{"MDL", "PT1", "PT2", "PPAP", "SOP"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			DBDir:     defaultDBDir,
		},
		Database: Database{
			Driver:       defaultDatabaseDriver,
			File:         defaultDatabaseFile,
			SummaryTable: defaultSummaryTable,
		},
		Dispatch: Dispatch{
			Workers: defaultWorkers,
		},
		Stages: Stages{
			Names: defaultStageNames(),
		},
		Export: Export{
			Headers:       defaultExportHeaders,
			IncludePrefix: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
