package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
}

// Images contains configuration for the image-generation backend.
type Images struct {
	APIToken    string `toml:"api_token"`
	BaseURL     string `toml:"base_url"`
	Concurrency int    `toml:"concurrency"`
	RateLimitMS int    `toml:"rate_limit_ms"`
	Width       int    `toml:"width"`
	Height      int    `toml:"height"`
	// PollTimeoutSeconds bounds how long a single prediction may stay
	// non-terminal before it is reported as failed.
	PollTimeoutSeconds int `toml:"poll_timeout_seconds"`
}

// Narration contains configuration for the text-to-speech backend.
type Narration struct {
	APIKey      string `toml:"api_key"`
	VoiceID     string `toml:"voice_id"`
	Model       string `toml:"model"`
	BaseURL     string `toml:"base_url"`
	RateLimitMS int    `toml:"rate_limit_ms"`
}

// Photos contains configuration for archival photo search.
type Photos struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	RateLimitMS int    `toml:"rate_limit_ms"`
	MaxResults  int    `toml:"max_results"`
	MaxArchival int    `toml:"max_archival"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for showreel.
//
// Configuration sections by subsystem:
//   - Paths: data, cache, and log directories
//   - Images: image-generation backend credentials, pacing, and geometry
//   - Narration: text-to-speech backend credentials and voice
//   - Photos: archival photo search credentials and limits
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Images    Images    `toml:"images"`
	Narration Narration `toml:"narration"`
	Photos    Photos    `toml:"photos"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/showreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/showreel/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("showreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, cache, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "showreel.db")
}

// EpisodeDir returns the working directory for one episode's materialized assets.
func (c *Config) EpisodeDir(episodeID string) string {
	return filepath.Join(c.Paths.DataDir, "episodes", episodeID)
}

// ImageRateLimit returns the minimum spacing between image backend calls.
func (c *Config) ImageRateLimit() time.Duration {
	return millis(c.Images.RateLimitMS)
}

// NarrationRateLimit returns the minimum spacing between narration backend calls.
func (c *Config) NarrationRateLimit() time.Duration {
	return millis(c.Narration.RateLimitMS)
}

// PhotoRateLimit returns the minimum spacing between photo search calls.
func (c *Config) PhotoRateLimit() time.Duration {
	return millis(c.Photos.RateLimitMS)
}

// ImagePollTimeout returns how long a prediction may remain pending.
func (c *Config) ImagePollTimeout() time.Duration {
	return time.Duration(c.Images.PollTimeoutSeconds) * time.Second
}

func millis(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Millisecond
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
