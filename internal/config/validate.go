package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateNarration(); err != nil {
		return err
	}
	if err := c.validatePhotos(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateImages() error {
	if err := validateURL("images.base_url", c.Images.BaseURL); err != nil {
		return err
	}
	if c.Images.Concurrency < 1 {
		return errors.New("images.concurrency must be at least 1")
	}
	if c.Images.RateLimitMS < 0 {
		return errors.New("images.rate_limit_ms must be non-negative")
	}
	return nil
}

func (c *Config) validateNarration() error {
	if err := validateURL("narration.base_url", c.Narration.BaseURL); err != nil {
		return err
	}
	if c.Narration.RateLimitMS < 0 {
		return errors.New("narration.rate_limit_ms must be non-negative")
	}
	return nil
}

func (c *Config) validatePhotos() error {
	if err := validateURL("photos.base_url", c.Photos.BaseURL); err != nil {
		return err
	}
	if c.Photos.RateLimitMS < 0 {
		return errors.New("photos.rate_limit_ms must be non-negative")
	}
	if c.Photos.MaxArchival > c.Photos.MaxResults {
		return fmt.Errorf("photos.max_archival (%d) cannot exceed photos.max_results (%d)", c.Photos.MaxArchival, c.Photos.MaxResults)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateURL(field, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", field, value)
	}
	return nil
}
