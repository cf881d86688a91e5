package config

const (
	defaultDataDir            = "~/.local/share/showreel"
	defaultLogDir             = "~/.local/share/showreel/logs"
	defaultCacheSubdir        = "cache"
	defaultImageBaseURL       = "https://api.replicate.com/v1"
	defaultImageConcurrency   = 3
	defaultImageRateLimitMS   = 500
	defaultImageWidth         = 1920
	defaultImageHeight        = 1080
	defaultImagePollTimeout   = 300
	defaultNarrationBaseURL   = "https://api.elevenlabs.io/v1"
	defaultNarrationModel     = "eleven_multilingual_v2"
	defaultNarrationRateLimit = 1000
	defaultPhotoBaseURL       = "https://api.flickr.com/services/rest/"
	defaultPhotoRateLimitMS   = 1000
	defaultPhotoMaxResults    = 20
	defaultPhotoMaxArchival   = 8
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Images: Images{
			BaseURL:            defaultImageBaseURL,
			Concurrency:        defaultImageConcurrency,
			RateLimitMS:        defaultImageRateLimitMS,
			Width:              defaultImageWidth,
			Height:             defaultImageHeight,
			PollTimeoutSeconds: defaultImagePollTimeout,
		},
		Narration: Narration{
			BaseURL:     defaultNarrationBaseURL,
			Model:       defaultNarrationModel,
			RateLimitMS: defaultNarrationRateLimit,
		},
		Photos: Photos{
			BaseURL:     defaultPhotoBaseURL,
			RateLimitMS: defaultPhotoRateLimitMS,
			MaxResults:  defaultPhotoMaxResults,
			MaxArchival: defaultPhotoMaxArchival,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
