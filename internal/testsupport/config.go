package testsupport

import (
	"path/filepath"
	"testing"

	"report2csv/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The directories exist when NewConfig returns.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "log")
	cfgVal.Paths.DBDir = filepath.Join(base, "db")
	cfgVal.Stages.Default = "MDL"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithWorkers sets the dispatcher pool size.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.Workers = n
	}
}

// WithJobTimeout sets the per-job timeout in seconds.
func WithJobTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.JobTimeoutSeconds = seconds
	}
}

// WithExportHeaders selects the CSV header style.
func WithExportHeaders(style string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Export.Headers = style
	}
}

// WithStrictStages restricts stages to names.
func WithStrictStages(names ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Stages.Names = names
		b.cfg.Stages.Strict = true
		if len(names) > 0 {
			b.cfg.Stages.Default = names[0]
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}
