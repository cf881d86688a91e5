package assetgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"showreel/internal/assetcache"
	"showreel/internal/config"
	"showreel/internal/imagegen"
	"showreel/internal/logging"
	"showreel/internal/narration"
	"showreel/internal/ratelimit"
	"showreel/internal/services"
	"showreel/internal/services/elevenlabs"
	"showreel/internal/services/flickr"
	"showreel/internal/services/replicate"
	"showreel/internal/store"
)

// Stage names used in logs and failure messages.
const (
	StageNarration = "narration"
	StageImages    = "images"
	StageThumbnail = "thumbnail"
	StageArchival  = "archival"
)

// EpisodeStore is the persistence the orchestrator needs.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, id string) (*store.Episode, error)
	RecordAsset(ctx context.Context, asset *store.AssetRecord, cost *store.CostEntry) error
	LogCost(ctx context.Context, entry *store.CostEntry) error
}

// PhotoSource searches and downloads archival photos.
type PhotoSource interface {
	Search(ctx context.Context, req flickr.SearchRequest) ([]flickr.Photo, error)
	Download(ctx context.Context, url string) []byte
}

// Options controls one run.
type Options struct {
	Concurrency   int
	SkipNarration bool
	SkipImages    bool
	SkipThumbnail bool
	SkipArchival  bool
	DryRun        bool
	Force         bool
}

// Orchestrator runs the asset stages for episodes.
type Orchestrator struct {
	cfg    *config.Config
	store  EpisodeStore
	cache  *assetcache.Cache
	logger *slog.Logger

	imageLimiter     *ratelimit.Limiter
	narrationLimiter *ratelimit.Limiter
	photoLimiter     *ratelimit.Limiter

	imageBackend imagegen.Backend
	synthesizer  narration.Synthesizer
	photos       PhotoSource

	images    *imagegen.Service
	narration *narration.Service
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithImageBackend replaces the hosted image backend.
func WithImageBackend(backend imagegen.Backend) Option {
	return func(o *Orchestrator) {
		o.imageBackend = backend
	}
}

// WithSynthesizer replaces the hosted text-to-speech backend.
func WithSynthesizer(synth narration.Synthesizer) Option {
	return func(o *Orchestrator) {
		o.synthesizer = synth
	}
}

// WithPhotoSource replaces the photo search client.
func WithPhotoSource(source PhotoSource) Option {
	return func(o *Orchestrator) {
		o.photos = source
	}
}

// New wires an orchestrator from configuration. Backends default to the
// hosted services named in cfg; options replace them.
func New(cfg *config.Config, st EpisodeStore, opts ...Option) (*Orchestrator, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "init", "config is nil", nil)
	}
	if st == nil {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "init", "store is nil", nil)
	}
	o := &Orchestrator{
		cfg:              cfg,
		store:            st,
		imageLimiter:     ratelimit.New(imagegen.CacheService, cfg.ImageRateLimit()),
		narrationLimiter: ratelimit.New(narration.CacheService, cfg.NarrationRateLimit()),
		photoLimiter:     ratelimit.New("flickr", cfg.PhotoRateLimit()),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "assetgen")

	cache, err := assetcache.New(cfg.Paths.CacheDir, o.logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "assets", "init", "asset cache", err)
	}
	o.cache = cache

	if o.imageBackend == nil {
		o.imageBackend = replicate.NewClient(cfg.Images.APIToken,
			replicate.WithBaseURL(cfg.Images.BaseURL),
			replicate.WithPollTimeout(cfg.ImagePollTimeout()),
		)
	}
	if o.synthesizer == nil {
		o.synthesizer = elevenlabs.NewClient(cfg.Narration.APIKey, cfg.Narration.VoiceID,
			elevenlabs.WithBaseURL(cfg.Narration.BaseURL),
			elevenlabs.WithModel(cfg.Narration.Model),
		)
	}
	if o.photos == nil && strings.TrimSpace(cfg.Photos.APIKey) != "" {
		o.photos = flickr.NewClient(cfg.Photos.APIKey, o.photoLimiter,
			flickr.WithBaseURL(cfg.Photos.BaseURL),
			flickr.WithLogger(o.logger),
		)
	}

	o.images = imagegen.NewService(o.imageBackend, cache, o.imageLimiter,
		imagegen.WithDimensions(imagegen.Dimensions{Width: cfg.Images.Width, Height: cfg.Images.Height}),
		imagegen.WithLogger(o.logger),
	)
	o.narration = narration.NewService(o.synthesizer, cache, o.narrationLimiter,
		narration.Voice{ID: cfg.Narration.VoiceID, Model: cfg.Narration.Model}, o.logger)
	return o, nil
}

// LimiterInvocations reports the total number of rate limiter waits across
// every endpoint class the orchestrator owns.
func (o *Orchestrator) LimiterInvocations() int64 {
	return o.imageLimiter.Invocations() + o.narrationLimiter.Invocations() + o.photoLimiter.Invocations()
}

// Run generates every requested asset for episodeID and returns the manifest.
// The error is non-nil only for structural failures.
func (o *Orchestrator) Run(ctx context.Context, episodeID string, opts Options) (*Manifest, error) {
	episodeID = strings.TrimSpace(episodeID)
	runID := uuid.NewString()
	ctx = services.WithEpisodeID(ctx, episodeID)
	ctx = services.WithRequestID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	ep, err := o.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, services.Wrap(services.ErrStructural, "assets", "load episode", episodeID, err)
	}
	if ep == nil {
		return nil, fmt.Errorf("%w: %s", ErrEpisodeNotFound, episodeID)
	}
	if !opts.DryRun {
		if err := o.checkCredentials(opts); err != nil {
			return nil, err
		}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = o.cfg.Images.Concurrency
	}

	started := time.Now()
	manifest := newManifest(ep.ID, runID, opts.DryRun)
	episodeDir := o.cfg.EpisodeDir(ep.ID)
	logger.Info("asset generation started",
		logging.String("title", ep.Title),
		logging.Bool("dry_run", opts.DryRun),
		logging.Bool("force", opts.Force),
		logging.Int("concurrency", opts.Concurrency),
	)
	for _, limiter := range []*ratelimit.Limiter{o.imageLimiter, o.narrationLimiter, o.photoLimiter} {
		logger.Debug("rate limiter configured",
			logging.String("endpoint", limiter.Name()),
			logging.Duration("min_interval", limiter.Interval()),
		)
	}

	stages := []struct {
		name string
		skip bool
		run  func(context.Context, *store.Episode, string, Options, *Manifest)
	}{
		{StageNarration, opts.SkipNarration, o.runNarration},
		{StageImages, opts.SkipImages, o.runImages},
		{StageThumbnail, opts.SkipThumbnail, o.runThumbnail},
		{StageArchival, opts.SkipArchival, o.runArchival},
	}
	for _, stage := range stages {
		if stage.skip {
			logger.Info("stage skipped", logging.String(logging.FieldStage, stage.name))
			continue
		}
		stageCtx := services.WithStage(ctx, stage.name)
		stage.run(stageCtx, ep, episodeDir, opts, manifest)
	}

	manifest.finalize()
	logger.Info("asset generation finished",
		logging.Int("assets", manifest.AssetCount()),
		logging.Int("cached_assets", manifest.CachedAssets),
		logging.Int("failed_assets", len(manifest.FailedAssets)),
		logging.Float64("total_cost", manifest.TotalCost),
		logging.Duration("elapsed", time.Since(started)),
	)
	return manifest, nil
}

func (o *Orchestrator) checkCredentials(opts Options) error {
	var missing []string
	if (!opts.SkipImages || !opts.SkipThumbnail) && strings.TrimSpace(o.cfg.Images.APIToken) == "" {
		missing = append(missing, "images.api_token (REPLICATE_API_TOKEN)")
	}
	if !opts.SkipNarration {
		if strings.TrimSpace(o.cfg.Narration.APIKey) == "" {
			missing = append(missing, "narration.api_key (ELEVENLABS_API_KEY)")
		}
		if strings.TrimSpace(o.cfg.Narration.VoiceID) == "" {
			missing = append(missing, "narration.voice_id (ELEVENLABS_VOICE_ID)")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}
