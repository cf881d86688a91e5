package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"showreel/internal/assetcache"
	"showreel/internal/generation"
	"showreel/internal/logging"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
	"showreel/internal/workpool"
)

// CacheService names the cache namespace for generated images.
const CacheService = "replicate"

const imageExt = ".png"

// Dimensions is the pixel geometry requested from the backend.
type Dimensions struct {
	Width  int
	Height int
}

// DefaultDimensions is the fixed 16:9 video frame geometry.
var DefaultDimensions = Dimensions{Width: 1920, Height: 1080}

// GenerateRequest is one backend call.
type GenerateRequest struct {
	Prompt string
	Tier   Tier
	Width  int
	Height int
}

// Backend synthesizes image bytes for a styled prompt.
type Backend interface {
	Generate(ctx context.Context, req GenerateRequest) ([]byte, error)
}

// Image is the result of a single generation.
type Image struct {
	Data []byte
	Tier Tier
	Cost float64
}

// Item is one planned image in a batch.
type Item struct {
	generation.Request
	Tier Tier
}

// BatchOptions tunes GenerateBatch.
type BatchOptions struct {
	Concurrency int
	Force       bool
}

// Service generates images with caching and pacing.
type Service struct {
	backend    Backend
	cache      *assetcache.Cache
	limiter    *ratelimit.Limiter
	dimensions Dimensions
	logger     *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithDimensions overrides the requested geometry.
func WithDimensions(d Dimensions) Option {
	return func(s *Service) {
		if d.Width > 0 && d.Height > 0 {
			s.dimensions = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logging.NewComponentLogger(logger, "imagegen")
	}
}

// NewService wires an image service. The limiter may be nil to disable pacing.
func NewService(backend Backend, cache *assetcache.Cache, limiter *ratelimit.Limiter, opts ...Option) *Service {
	svc := &Service{
		backend:    backend,
		cache:      cache,
		limiter:    limiter,
		dimensions: DefaultDimensions,
		logger:     logging.NewComponentLogger(nil, "imagegen"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Dimensions returns the geometry used for batch generation.
func (s *Service) Dimensions() Dimensions {
	return s.dimensions
}

// CacheKey returns the cache key for prompt at tier using the service geometry.
func (s *Service) CacheKey(prompt string, tier Tier) (assetcache.Key, error) {
	return cacheKey(StylePrompt(prompt), tier, s.dimensions)
}

func cacheKey(styled string, tier Tier, dims Dimensions) (assetcache.Key, error) {
	return assetcache.NewKey(CacheService, map[string]any{
		"prompt": styled,
		"model":  tier.Model(),
		"width":  dims.Width,
		"height": dims.Height,
	}, imageExt)
}

// Generate styles prompt, waits for a backend slot, and returns the image bytes.
// It does not consult the cache.
func (s *Service) Generate(ctx context.Context, prompt string, tier Tier, dims Dimensions) (Image, error) {
	if !tier.Valid() {
		return Image{}, services.Wrap(services.ErrValidation, "images", "generate", fmt.Sprintf("unknown tier %q", tier), nil)
	}
	if s.backend == nil {
		return Image{}, services.Wrap(services.ErrConfiguration, "images", "generate", "image backend not configured", nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return Image{}, services.Wrap(services.ErrValidation, "images", "generate", "prompt is empty", nil)
	}
	if dims.Width <= 0 || dims.Height <= 0 {
		dims = s.dimensions
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return Image{}, fmt.Errorf("rate limit wait: %w", err)
	}
	data, err := s.backend.Generate(ctx, GenerateRequest{
		Prompt: StylePrompt(prompt),
		Tier:   tier,
		Width:  dims.Width,
		Height: dims.Height,
	})
	if err != nil {
		return Image{}, services.Wrap(services.ErrGeneration, "images", "generate", "backend call failed", err)
	}
	if len(data) == 0 {
		return Image{}, services.Wrap(services.ErrGeneration, "images", "generate", "backend returned no image data", nil)
	}
	return Image{Data: data, Tier: tier, Cost: tier.Cost()}, nil
}

// GenerateBatch produces every item with at most opts.Concurrency backend
// calls in flight. Outcomes are returned in item order.
func (s *Service) GenerateBatch(ctx context.Context, items []Item, opts BatchOptions) []generation.Outcome {
	units := make([]workpool.Unit[generation.Outcome], len(items))
	for i, item := range items {
		item := item
		units[i] = func(ctx context.Context) (generation.Outcome, error) {
			return s.generateItem(ctx, item, opts.Force), nil
		}
	}
	results := workpool.Run(ctx, opts.Concurrency, units)
	if errs := workpool.Errors(results); len(errs) > 0 {
		logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "image batch units aborted", "image_batch_unit_panic",
			logging.Int("aborted", len(errs)),
			logging.Error(errs[0]),
		)
	}

	outcomes := make([]generation.Outcome, len(results))
	for _, r := range results {
		outcome := r.Value
		if r.Err != nil {
			item := items[r.Index]
			outcome = generation.Outcome{
				Key:         item.Key,
				Destination: item.Destination,
				Err:         fmt.Errorf("image %s: %w", item.Key, r.Err),
			}
		}
		outcomes[r.Index] = outcome
	}
	return outcomes
}

func (s *Service) generateItem(ctx context.Context, item Item, force bool) generation.Outcome {
	outcome := generation.Outcome{Key: item.Key, Destination: item.Destination}
	fail := func(err error) generation.Outcome {
		outcome.Cached = false
		outcome.Err = fmt.Errorf("image %s: %w", item.Key, err)
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "image generation failed", "image_generation_failed",
			logging.String("key", item.Key),
			logging.String("tier", item.Tier.String()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun the episode to retry; cached images are reused"),
		)
		return outcome
	}

	if !item.Tier.Valid() {
		return fail(fmt.Errorf("unknown tier %q", item.Tier))
	}
	if strings.TrimSpace(item.Destination) == "" {
		return fail(errors.New("destination path is empty"))
	}
	key, err := s.CacheKey(item.Prompt, item.Tier)
	if err != nil {
		return fail(err)
	}
	outcome.Digest = key.Digest

	logger := logging.WithContext(ctx, s.logger)
	if !force {
		if cachedPath, ok := s.cache.Lookup(key); ok {
			if err := assetcache.Materialize(cachedPath, item.Destination); err != nil {
				return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
			}
			logger.Debug("image cache hit",
				logging.Args(append(logging.DecisionAttrs("asset_cache", "hit", "digest present"),
					logging.String("key", item.Key))...)...)
			outcome.Cached = true
			return outcome
		}
	}
	reason := "digest absent"
	if force {
		reason = "force regeneration"
	}
	logger.Debug("image cache miss",
		logging.Args(append(logging.DecisionAttrs("asset_cache", "miss", reason),
			logging.String("key", item.Key))...)...)

	img, err := s.Generate(ctx, item.Prompt, item.Tier, s.dimensions)
	if err != nil {
		return fail(err)
	}
	// The backend has charged for the image even if caching it fails below.
	outcome.Cost = img.Cost
	cachedPath, err := s.cache.Store(key, img.Data)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
	}
	if err := assetcache.Materialize(cachedPath, item.Destination); err != nil {
		return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
	}
	logger.Info("image generated",
		logging.String("key", item.Key),
		logging.String("tier", item.Tier.String()),
		logging.Float64("cost", img.Cost),
	)
	return outcome
}
