package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"showreel/internal/config"
)

func TestLoadDefaultConfigUsesEnvCredentialsAndExpandsPaths(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "r8-token")
	t.Setenv("ELEVENLABS_API_KEY", "xi-key")
	t.Setenv("ELEVENLABS_VOICE_ID", "voice-1")
	t.Setenv("FLICKR_API_KEY", "flickr-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "showreel")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.CacheDir != filepath.Join(wantData, "cache") {
		t.Fatalf("expected cache dir under data dir, got %q", cfg.Paths.CacheDir)
	}
	if cfg.Images.APIToken != "r8-token" {
		t.Fatalf("expected image token from env, got %q", cfg.Images.APIToken)
	}
	if cfg.Narration.APIKey != "xi-key" || cfg.Narration.VoiceID != "voice-1" {
		t.Fatalf("expected narration credentials from env, got %+v", cfg.Narration)
	}
	if cfg.Photos.APIKey != "flickr-key" {
		t.Fatalf("expected photo key from env, got %q", cfg.Photos.APIKey)
	}
	if cfg.Images.Concurrency != config.Default().Images.Concurrency {
		t.Fatalf("unexpected concurrency: %d", cfg.Images.Concurrency)
	}
	if cfg.ImageRateLimit() != 500*time.Millisecond {
		t.Fatalf("unexpected image rate limit: %s", cfg.ImageRateLimit())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.CacheDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist", dir)
		}
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	t.Setenv("REPLICATE_API_TOKEN", "env-token")
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")

	custom := config.Default()
	custom.Paths.DataDir = filepath.Join(base, "data")
	custom.Paths.LogDir = filepath.Join(base, "logs")
	custom.Images.APIToken = "file-token"
	custom.Images.Concurrency = 5
	custom.Images.RateLimitMS = 0
	custom.Photos.MaxArchival = 4
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected config at %s, got %s (exists=%v)", cfgPath, resolved, exists)
	}
	if cfg.Images.APIToken != "file-token" {
		t.Fatalf("expected file token to win over env, got %q", cfg.Images.APIToken)
	}
	if cfg.Images.Concurrency != 5 {
		t.Fatalf("expected concurrency 5, got %d", cfg.Images.Concurrency)
	}
	if cfg.ImageRateLimit() != 0 {
		t.Fatalf("expected zero rate limit, got %s", cfg.ImageRateLimit())
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
	if got := cfg.EpisodeDir("ep-1"); got != filepath.Join(base, "data", "episodes", "ep-1") {
		t.Fatalf("unexpected episode dir %q", got)
	}
}

func TestValidateRejectsArchivalAboveResults(t *testing.T) {
	cfg := config.Default()
	cfg.Photos.MaxResults = 2
	cfg.Photos.MaxArchival = 5
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "max_archival") {
		t.Fatalf("expected max_archival validation error, got %v", err)
	}
}

func TestValidateRejectsBadBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.Images.BaseURL = "ftp://example.com"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for non-http base url")
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Photos.MaxArchival != 8 {
		t.Fatalf("expected sample max_archival 8, got %d", cfg.Photos.MaxArchival)
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatal(err)
		}
	})
}
