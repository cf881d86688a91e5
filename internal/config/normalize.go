package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImages()
	c.normalizeNarration()
	c.normalizePhotos()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = filepath.Join(c.Paths.DataDir, defaultCacheSubdir)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeImages() {
	c.Images.APIToken = envFallback(c.Images.APIToken, "REPLICATE_API_TOKEN")
	c.Images.BaseURL = strings.TrimRight(strings.TrimSpace(c.Images.BaseURL), "/")
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = defaultImageBaseURL
	}
	if c.Images.Concurrency <= 0 {
		c.Images.Concurrency = defaultImageConcurrency
	}
	if c.Images.Width <= 0 {
		c.Images.Width = defaultImageWidth
	}
	if c.Images.Height <= 0 {
		c.Images.Height = defaultImageHeight
	}
	if c.Images.PollTimeoutSeconds <= 0 {
		c.Images.PollTimeoutSeconds = defaultImagePollTimeout
	}
}

func (c *Config) normalizeNarration() {
	c.Narration.APIKey = envFallback(c.Narration.APIKey, "ELEVENLABS_API_KEY")
	c.Narration.VoiceID = envFallback(c.Narration.VoiceID, "ELEVENLABS_VOICE_ID")
	c.Narration.Model = strings.TrimSpace(c.Narration.Model)
	if c.Narration.Model == "" {
		c.Narration.Model = defaultNarrationModel
	}
	c.Narration.BaseURL = strings.TrimRight(strings.TrimSpace(c.Narration.BaseURL), "/")
	if c.Narration.BaseURL == "" {
		c.Narration.BaseURL = defaultNarrationBaseURL
	}
}

func (c *Config) normalizePhotos() {
	c.Photos.APIKey = envFallback(c.Photos.APIKey, "FLICKR_API_KEY")
	c.Photos.BaseURL = strings.TrimSpace(c.Photos.BaseURL)
	if c.Photos.BaseURL == "" {
		c.Photos.BaseURL = defaultPhotoBaseURL
	}
	if c.Photos.MaxResults <= 0 {
		c.Photos.MaxResults = defaultPhotoMaxResults
	}
	if c.Photos.MaxArchival <= 0 {
		c.Photos.MaxArchival = defaultPhotoMaxArchival
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}
