package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"report2csv/internal/config"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "report2csv", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "output") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.DatabasePath() != filepath.Join(tempHome, "db", "database.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Database.Driver != config.DriverSQLite {
		t.Fatalf("unexpected driver %q", cfg.Database.Driver)
	}
	if cfg.Database.SummaryTable != "Total" {
		t.Fatalf("unexpected summary table %q", cfg.Database.SummaryTable)
	}
	if cfg.Dispatch.Workers != 4 || cfg.Dispatch.JobTimeoutSeconds != 0 {
		t.Fatalf("unexpected dispatch defaults: %+v", cfg.Dispatch)
	}
	if cfg.Stages.Default != "MDL" {
		t.Fatalf("unexpected default stage %q", cfg.Stages.Default)
	}
	if !cfg.Export.IncludePrefix || cfg.Export.Headers != config.HeadersCanonical {
		t.Fatalf("unexpected export defaults: %+v", cfg.Export)
	}
}

func TestLoadFileOverridesAndExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
output_dir = "~/exports"
db_dir = "~/db"

[dispatch]
workers = 2
job_timeout_seconds = 30

[stages]
names = ["PT1", " PT1 ", "SOP"]
strict = true

[export]
headers = "LOCALIZED"
include_prefix = false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit path to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "exports") {
		t.Fatalf("unexpected output dir %q", cfg.Paths.OutputDir)
	}
	if cfg.Dispatch.Workers != 2 || cfg.Dispatch.JobTimeoutSeconds != 30 {
		t.Fatalf("unexpected dispatch: %+v", cfg.Dispatch)
	}
	if got := strings.Join(cfg.Stages.Names, ","); got != "PT1,SOP" {
		t.Fatalf("stage names not normalized: %q", got)
	}
	if cfg.Stages.Default != "PT1" {
		t.Fatalf("default stage = %q", cfg.Stages.Default)
	}
	if cfg.Export.Headers != config.HeadersLocalized || cfg.Export.IncludePrefix {
		t.Fatalf("unexpected export: %+v", cfg.Export)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"workers", func(c *config.Config) { c.Dispatch.Workers = -1 }, "dispatch.workers"},
		{"timeout", func(c *config.Config) { c.Dispatch.JobTimeoutSeconds = -5 }, "job_timeout_seconds"},
		{"driver", func(c *config.Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"postgres dsn", func(c *config.Config) { c.Database.Driver = config.DriverPostgres }, "database.dsn"},
		{"sqlite file", func(c *config.Config) { c.Database.File = "../escape.db" }, "database.file"},
		{"headers", func(c *config.Config) { c.Export.Headers = "fancy" }, "export.headers"},
		{"stage collides", func(c *config.Config) { c.Stages.Names = append(c.Stages.Names, "Total") }, "summary_table"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestPostgresDSNFromEnv(t *testing.T) {
	t.Setenv(config.DSNEnv, "postgres://localhost/reports")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[database]\ndriver = \"postgresql\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Database.Driver != config.DriverPostgres || cfg.Database.DSN != "postgres://localhost/reports" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
}

func TestResolveStage(t *testing.T) {
	cfg := config.Default()
	cfg.Stages.Default = "MDL"
	if got, err := cfg.ResolveStage(""); err != nil || got != "MDL" {
		t.Fatalf("default stage: %q %v", got, err)
	}
	if got, err := cfg.ResolveStage("试制"); err != nil || got != "试制" {
		t.Fatalf("lenient stage: %q %v", got, err)
	}
	if _, err := cfg.ResolveStage("total"); err == nil {
		t.Fatal("expected summary table name to be rejected")
	}
	cfg.Stages.Strict = true
	if _, err := cfg.ResolveStage("试制"); err == nil {
		t.Fatal("expected strict mode to reject unknown stage")
	}
	cfg.Stages.Default = ""
	cfg.Stages.Strict = false
	if _, err := cfg.ResolveStage("  "); err == nil {
		t.Fatal("expected error without stage and default")
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Database.SummaryTable != "Total" {
		t.Fatalf("unexpected sample summary table %q", parsed.Database.SummaryTable)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "log")
	cfg.Paths.DBDir = filepath.Join(base, "db")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.LogDir, cfg.Paths.DBDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
