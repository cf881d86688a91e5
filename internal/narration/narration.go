// Package narration turns episode script text into cached narration audio.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"showreel/internal/assetcache"
	"showreel/internal/generation"
	"showreel/internal/logging"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
)

// CacheService names the cache namespace for narration audio.
const CacheService = "elevenlabs"

// CostPerCharacter is the accounting rate for synthesized characters.
const CostPerCharacter = 0.0003

const audioExt = ".mp3"

// Synthesizer converts text to audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Voice identifies the voice and model that shape the audio; both are part
// of the cache key.
type Voice struct {
	ID    string
	Model string
}

// Request is one narration to produce.
type Request struct {
	Key         string
	Text        string
	Destination string
}

// Service produces narration with caching and pacing.
type Service struct {
	synth   Synthesizer
	cache   *assetcache.Cache
	limiter *ratelimit.Limiter
	voice   Voice
	logger  *slog.Logger
}

// NewService wires a narration service. The limiter may be nil.
func NewService(synth Synthesizer, cache *assetcache.Cache, limiter *ratelimit.Limiter, voice Voice, logger *slog.Logger) *Service {
	return &Service{
		synth:   synth,
		cache:   cache,
		limiter: limiter,
		voice:   voice,
		logger:  logging.NewComponentLogger(logger, "narration"),
	}
}

// Cost returns the accounting cost for synthesizing text.
func Cost(text string) float64 {
	chars := utf8.RuneCountInString(strings.TrimSpace(text))
	return math.Round(float64(chars)*CostPerCharacter*1e6) / 1e6
}

// CacheKey returns the cache key for text under the service voice.
func (s *Service) CacheKey(text string) (assetcache.Key, error) {
	return assetcache.NewKey(CacheService, map[string]any{
		"text":  strings.TrimSpace(text),
		"voice": s.voice.ID,
		"model": s.voice.Model,
	}, audioExt)
}

// Generate produces audio for req. Cache hits cost nothing and make no
// backend call unless force is set. The returned outcome carries any error.
func (s *Service) Generate(ctx context.Context, req Request, force bool) generation.Outcome {
	key := req.Key
	if key == "" {
		key = "narration"
	}
	outcome := generation.Outcome{Key: key, Destination: req.Destination}
	logger := logging.WithContext(ctx, s.logger)
	fail := func(err error) generation.Outcome {
		outcome.Cached = false
		outcome.Err = fmt.Errorf("narration %s: %w", key, err)
		logging.WarnWithContext(logger, "narration generation failed", "narration_generation_failed",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the narration api key, voice id, and quota"),
		)
		return outcome
	}

	if strings.TrimSpace(req.Text) == "" {
		return fail(errors.New("narration text is empty"))
	}
	if strings.TrimSpace(req.Destination) == "" {
		return fail(errors.New("destination path is empty"))
	}
	cacheKey, err := s.CacheKey(req.Text)
	if err != nil {
		return fail(err)
	}
	outcome.Digest = cacheKey.Digest

	if !force {
		if cachedPath, ok := s.cache.Lookup(cacheKey); ok {
			if err := assetcache.Materialize(cachedPath, req.Destination); err != nil {
				return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
			}
			logger.Debug("narration cache hit", logging.Args(logging.DecisionAttrs("asset_cache", "hit", "digest present")...)...)
			outcome.Cached = true
			return outcome
		}
	}
	if s.synth == nil {
		return fail(services.Wrap(services.ErrConfiguration, "narration", "synthesize", "synthesizer not configured", nil))
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fail(fmt.Errorf("rate limit wait: %w", err))
	}
	audio, err := s.synth.Synthesize(ctx, req.Text)
	if err != nil {
		return fail(services.Wrap(services.ErrGeneration, "narration", "synthesize", "backend call failed", err))
	}
	if len(audio) == 0 {
		return fail(services.Wrap(services.ErrGeneration, "narration", "synthesize", "backend returned no audio", nil))
	}
	outcome.Cost = Cost(req.Text)
	cachedPath, err := s.cache.Store(cacheKey, audio)
	if err != nil {
		return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
	}
	if err := assetcache.Materialize(cachedPath, req.Destination); err != nil {
		return fail(fmt.Errorf("%w: %w", services.ErrCacheIO, err))
	}
	logger.Info("narration generated",
		logging.String("key", key),
		logging.Int("characters", utf8.RuneCountInString(strings.TrimSpace(req.Text))),
		logging.Float64("cost", outcome.Cost),
	)
	return outcome
}
