package assetgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"showreel/internal/assetcache"
	"showreel/internal/generation"
	"showreel/internal/imagegen"
	"showreel/internal/logging"
	"showreel/internal/narration"
	"showreel/internal/services"
	"showreel/internal/services/flickr"
	"showreel/internal/store"
)

const (
	narrationFile = "narration.mp3"
	thumbnailFile = "thumbnail.png"
	thumbnailKey  = "thumbnail"
	photoService  = "flickr"
	photoExt      = ".jpg"
)

func (o *Orchestrator) runNarration(ctx context.Context, ep *store.Episode, episodeDir string, opts Options, m *Manifest) {
	text := ep.Script.NarrationText()
	dest := filepath.Join(episodeDir, "narration", narrationFile)
	if text == "" {
		if opts.DryRun {
			logging.WarnWithContext(logging.WithContext(ctx, o.logger), "narration not planned", "narration_text_missing",
				logging.String(logging.FieldErrorHint, "add narration to the episode script segments"),
				logging.String(logging.FieldImpact, "run would report a narration failure"),
			)
			return
		}
		m.fail(errors.New("narration: script has no narration text"))
		return
	}
	if opts.DryRun {
		entry := AssetEntry{Key: StageNarration, Path: dest, Planned: true}
		if key, err := o.narration.CacheKey(text); err == nil {
			entry.Digest = key.Digest
		}
		m.Narrations = append(m.Narrations, entry)
		return
	}

	outcome := o.narration.Generate(ctx, narration.Request{Key: StageNarration, Text: text, Destination: dest}, opts.Force)
	m.tally(outcome)
	chars := utf8.RuneCountInString(text)
	if outcome.Err != nil {
		o.logSpend(ctx, m, outcome, &store.CostEntry{
			EpisodeID:   ep.ID,
			Service:     narration.CacheService,
			Operation:   "synthesize",
			InputTokens: chars,
		})
		return
	}
	m.Narrations = append(m.Narrations, entryFromOutcome(outcome, ""))

	record := &store.AssetRecord{
		EpisodeID:  ep.ID,
		Type:       store.AssetNarration,
		Service:    narration.CacheService,
		PromptHash: outcome.Digest,
		FilePath:   outcome.Destination,
		Cost:       outcome.Cost,
		Metadata: metadata(map[string]any{
			"cached":     outcome.Cached,
			"characters": chars,
			"voice_id":   o.cfg.Narration.VoiceID,
			"model":      o.cfg.Narration.Model,
		}),
	}
	var cost *store.CostEntry
	if !outcome.Cached {
		cost = &store.CostEntry{
			Service:     narration.CacheService,
			Operation:   "synthesize",
			InputTokens: chars,
			Cost:        outcome.Cost,
		}
	}
	o.persist(ctx, m, record, cost)
}

// planImages builds one batch item per planned visual. Visuals with an
// unknown tier are reported as failures and left out of the batch.
func planImages(ep *store.Episode, episodeDir string, m *Manifest) []imagegen.Item {
	var items []imagegen.Item
	for segIdx, seg := range ep.Script.Segments {
		for visIdx, visual := range seg.Visuals {
			key := generation.SegmentKey(segIdx+1, visIdx+1)
			tier, err := imagegen.ParseTier(visual.Tier)
			if err != nil {
				m.fail(fmt.Errorf("image %s: %w", key, err))
				continue
			}
			items = append(items, imagegen.Item{
				Request: generation.Request{
					Key:         key,
					Prompt:      visual.Prompt,
					Destination: filepath.Join(episodeDir, "images", key+".png"),
					Segment:     segIdx + 1,
					PromptIndex: visIdx + 1,
				},
				Tier: tier,
			})
		}
	}
	return items
}

func (o *Orchestrator) runImages(ctx context.Context, ep *store.Episode, episodeDir string, opts Options, m *Manifest) {
	items := planImages(ep, episodeDir, m)
	if len(items) == 0 {
		return
	}
	if opts.DryRun {
		for _, item := range items {
			entry := AssetEntry{Key: item.Key, Path: item.Destination, Tier: item.Tier.String(), Planned: true}
			if key, err := o.images.CacheKey(item.Prompt, item.Tier); err == nil {
				entry.Digest = key.Digest
			}
			m.Images = append(m.Images, entry)
		}
		return
	}

	outcomes := o.images.GenerateBatch(ctx, items, imagegen.BatchOptions{Concurrency: opts.Concurrency, Force: opts.Force})
	for i, outcome := range outcomes {
		item := items[i]
		m.tally(outcome)
		if outcome.Err != nil {
			o.logSpend(ctx, m, outcome, imageCostEntry(ep.ID, item))
			continue
		}
		m.Images = append(m.Images, entryFromOutcome(outcome, item.Tier.String()))
		o.persistImage(ctx, m, ep.ID, store.AssetImage, item, outcome)
	}
	logging.WithContext(ctx, o.logger).Info("image stage finished",
		logging.Int("planned", len(items)),
		logging.Int("produced", len(m.Images)),
	)
}

func (o *Orchestrator) runThumbnail(ctx context.Context, ep *store.Episode, episodeDir string, opts Options, m *Manifest) {
	item := imagegen.Item{
		Request: generation.Request{
			Key:         thumbnailKey,
			Prompt:      thumbnailPrompt(ep),
			Destination: filepath.Join(episodeDir, thumbnailFile),
		},
		Tier: imagegen.TierQuality,
	}
	if opts.DryRun {
		entry := AssetEntry{Key: thumbnailKey, Path: item.Destination, Tier: item.Tier.String(), Planned: true}
		if key, err := o.images.CacheKey(item.Prompt, item.Tier); err == nil {
			entry.Digest = key.Digest
		}
		m.Thumbnail = &entry
		return
	}

	outcome := o.images.GenerateBatch(ctx, []imagegen.Item{item}, imagegen.BatchOptions{Concurrency: 1, Force: opts.Force})[0]
	m.tally(outcome)
	if outcome.Err != nil {
		o.logSpend(ctx, m, outcome, imageCostEntry(ep.ID, item))
		return
	}
	entry := entryFromOutcome(outcome, item.Tier.String())
	m.Thumbnail = &entry
	o.persistImage(ctx, m, ep.ID, store.AssetThumbnail, item, outcome)
}

// thumbnailPrompt falls back to a prompt built from the episode header when
// the script has none.
func thumbnailPrompt(ep *store.Episode) string {
	if prompt := strings.TrimSpace(ep.Script.ThumbnailPrompt); prompt != "" {
		return prompt
	}
	caser := cases.Title(language.English)
	parts := []string{"Hero concert shot for \"" + caser.String(strings.ToLower(ep.Title)) + "\""}
	if ep.Venue != "" {
		parts = append(parts, "at "+caser.String(ep.Venue))
	}
	if year := ep.Year(); year > 0 {
		parts = append(parts, "in "+strconv.Itoa(year))
	}
	return strings.Join(parts, " ") + ", dramatic stage lighting, wide angle"
}

func (o *Orchestrator) runArchival(ctx context.Context, ep *store.Episode, episodeDir string, opts Options, m *Manifest) {
	logger := logging.WithContext(ctx, o.logger)
	archivalDir := filepath.Join(episodeDir, "archival")
	limit := o.cfg.Photos.MaxArchival
	if limit <= 0 {
		return
	}
	if o.photos == nil {
		logging.WarnWithContext(logger, "archival stage skipped", "archival_credential_missing",
			logging.String(logging.FieldErrorHint, "set photos.api_key or FLICKR_API_KEY"),
			logging.String(logging.FieldImpact, "episode has no archival photos"),
		)
		return
	}
	if opts.DryRun {
		for i := 1; i <= limit; i++ {
			m.Archival = append(m.Archival, ArchivalEntry{
				Key:     fmt.Sprintf("archival-%02d", i),
				Path:    archivalDir,
				Planned: true,
			})
		}
		return
	}

	maxResults := o.cfg.Photos.MaxResults
	if maxResults < limit {
		maxResults = limit
	}
	photos, err := o.photos.Search(ctx, flickr.SearchRequest{
		Artist:     ep.Artist,
		Venue:      ep.Venue,
		Year:       ep.Year(),
		MaxResults: maxResults,
	})
	if err != nil {
		m.fail(fmt.Errorf("archival search: %w", err))
		return
	}
	if len(photos) > limit {
		photos = photos[:limit]
	}

	for i, photo := range photos {
		key := fmt.Sprintf("archival-%02d", i+1)
		dest := filepath.Join(archivalDir, sanitizeID(photo.ID)+photoExt)
		outcome, ok := o.fetchPhoto(ctx, key, photo, dest, opts.Force)
		if !ok {
			logger.Debug("archival photo unavailable", logging.String("photo_id", photo.ID))
			continue
		}
		m.tally(outcome)
		if outcome.Err != nil {
			continue
		}
		m.Archival = append(m.Archival, ArchivalEntry{
			Key:       key,
			Path:      dest,
			PhotoID:   photo.ID,
			Title:     photo.Title,
			OwnerName: photo.OwnerName,
			License:   photo.License,
			SourceURL: photo.URL,
			Cached:    outcome.Cached,
		})
		o.persist(ctx, m, &store.AssetRecord{
			EpisodeID:  ep.ID,
			Type:       store.AssetArchival,
			Service:    photoService,
			PromptHash: outcome.Digest,
			FilePath:   dest,
			Metadata: metadata(map[string]any{
				"photo_id":   photo.ID,
				"title":      photo.Title,
				"owner_name": photo.OwnerName,
				"license":    photo.License,
				"source_url": photo.URL,
				"cached":     outcome.Cached,
			}),
		}, nil)
	}
}

// fetchPhoto materializes one photo, consulting the cache first. ok is false
// when the photo could not be downloaded.
func (o *Orchestrator) fetchPhoto(ctx context.Context, key string, photo flickr.Photo, dest string, force bool) (generation.Outcome, bool) {
	outcome := generation.Outcome{Key: key, Destination: dest}
	cacheKey, err := assetcache.NewKey(photoService, map[string]any{"photo_id": photo.ID, "url": photo.URL}, photoExt)
	if err != nil {
		outcome.Err = fmt.Errorf("archival %s: %w", key, err)
		return outcome, true
	}
	outcome.Digest = cacheKey.Digest
	if !force {
		if cached, hit := o.cache.Lookup(cacheKey); hit {
			if err := assetcache.Materialize(cached, dest); err != nil {
				outcome.Err = fmt.Errorf("archival %s: %w: %w", key, services.ErrCacheIO, err)
				return outcome, true
			}
			outcome.Cached = true
			return outcome, true
		}
	}
	data := o.photos.Download(ctx, photo.URL)
	if data == nil {
		return outcome, false
	}
	cached, err := o.cache.Store(cacheKey, data)
	if err == nil {
		err = assetcache.Materialize(cached, dest)
	}
	if err != nil {
		outcome.Err = fmt.Errorf("archival %s: %w: %w", key, services.ErrCacheIO, err)
	}
	return outcome, true
}

func (o *Orchestrator) persistImage(ctx context.Context, m *Manifest, episodeID string, assetType store.AssetType, item imagegen.Item, outcome generation.Outcome) {
	record := &store.AssetRecord{
		EpisodeID:  episodeID,
		Type:       assetType,
		Service:    imagegen.CacheService,
		PromptHash: outcome.Digest,
		FilePath:   outcome.Destination,
		Cost:       outcome.Cost,
		Metadata: metadata(map[string]any{
			"key":          item.Key,
			"prompt":       item.Prompt,
			"tier":         item.Tier.String(),
			"model":        item.Tier.Model(),
			"segment":      item.Segment,
			"prompt_index": item.PromptIndex,
			"width":        o.images.Dimensions().Width,
			"height":       o.images.Dimensions().Height,
			"cached":       outcome.Cached,
		}),
	}
	var cost *store.CostEntry
	if !outcome.Cached {
		cost = imageCostEntry(episodeID, item)
		cost.Cost = outcome.Cost
	}
	o.persist(ctx, m, record, cost)
}

func imageCostEntry(episodeID string, item imagegen.Item) *store.CostEntry {
	return &store.CostEntry{
		EpisodeID: episodeID,
		Service:   imagegen.CacheService,
		Operation: "generate_image_" + item.Tier.String(),
	}
}

// logSpend records the cost of a paid backend call whose asset was lost
// afterwards, so cost_log matches what the backend billed.
func (o *Orchestrator) logSpend(ctx context.Context, m *Manifest, outcome generation.Outcome, entry *store.CostEntry) {
	if outcome.Cost <= 0 {
		return
	}
	entry.Cost = outcome.Cost
	if err := o.store.LogCost(ctx, entry); err != nil {
		m.fail(fmt.Errorf("%s: log cost: %w", outcome.Key, err))
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "cost not recorded", "cost_log_failed",
			logging.String("key", outcome.Key),
			logging.Float64("cost", outcome.Cost),
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode cost summary under-reports spend"),
		)
	}
}

// persist records an asset. A store failure is reported in the manifest and
// does not stop the run.
func (o *Orchestrator) persist(ctx context.Context, m *Manifest, record *store.AssetRecord, cost *store.CostEntry) {
	if err := o.store.RecordAsset(ctx, record, cost); err != nil {
		stage, _ := services.StageFromContext(ctx)
		m.fail(fmt.Errorf("%s %s: persist record: %w", stage, filepath.Base(record.FilePath), err))
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "asset record not persisted", "asset_persist_failed",
			logging.String("file", record.FilePath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the database file permissions"),
			logging.String(logging.FieldImpact, "asset produced but missing from asset listings"),
		)
	}
}

func metadata(values map[string]any) json.RawMessage {
	data, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return data
}

func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}
