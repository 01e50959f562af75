package testsupport

import (
	"path/filepath"
	"testing"

	"aistudio/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test,
// with zero job latency, no AI provider and the memory backend.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Server.Addr = "127.0.0.1:0"
	cfgVal.Store.Backend = config.BackendMemory
	cfgVal.Database.Driver = config.DriverSQLite
	cfgVal.Database.SQLitePath = filepath.Join(base, "studio.db")
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.OutputDir = filepath.Join(base, "uploads", "outputs")
	cfgVal.Jobs = config.Jobs{TimeoutSeconds: 30}
	cfgVal.AI.Provider = config.ProviderNone

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithBackend selects the store backend.
func WithBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = backend
	}
}

// WithLatency sets the same simulated latency for every job kind.
func WithLatency(millis int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jobs.StemLatencyMillis = millis
		b.cfg.Jobs.VoiceLatencyMillis = millis
		b.cfg.Jobs.MusicLatencyMillis = millis
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
