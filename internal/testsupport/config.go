package testsupport

import (
	"path/filepath"
	"testing"

	"showreel/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Credentials are filled with placeholders, rate limits are disabled, and
// base URLs point nowhere until a test overrides them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.CacheDir = filepath.Join(base, "data", "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Images.APIToken = "test-image-token"
	cfgVal.Images.RateLimitMS = 0
	cfgVal.Narration.APIKey = "test-narration-key"
	cfgVal.Narration.VoiceID = "test-voice"
	cfgVal.Narration.RateLimitMS = 0
	cfgVal.Photos.APIKey = "test-photo-key"
	cfgVal.Photos.RateLimitMS = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutCredentials clears every backend credential.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.APIToken = ""
		b.cfg.Narration.APIKey = ""
		b.cfg.Narration.VoiceID = ""
		b.cfg.Photos.APIKey = ""
	}
}

// WithImageConcurrency sets the image stage concurrency.
func WithImageConcurrency(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Images.Concurrency = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
