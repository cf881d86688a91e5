package assetgen

import (
	"math"

	"showreel/internal/generation"
)

// AssetEntry describes one produced or planned asset.
type AssetEntry struct {
	Key     string  `json:"key"`
	Path    string  `json:"path"`
	Tier    string  `json:"tier,omitempty"`
	Digest  string  `json:"digest,omitempty"`
	Cost    float64 `json:"cost"`
	Cached  bool    `json:"cached"`
	Planned bool    `json:"planned,omitempty"`
}

// ArchivalEntry describes one archival photo.
type ArchivalEntry struct {
	Key       string `json:"key"`
	Path      string `json:"path"`
	PhotoID   string `json:"photo_id,omitempty"`
	Title     string `json:"title,omitempty"`
	OwnerName string `json:"owner_name,omitempty"`
	License   string `json:"license,omitempty"`
	SourceURL string `json:"source_url,omitempty"`
	Cached    bool   `json:"cached"`
	Planned   bool   `json:"planned,omitempty"`
}

// Manifest is the result of one orchestration run.
type Manifest struct {
	EpisodeID    string          `json:"episode_id"`
	RunID        string          `json:"run_id"`
	DryRun       bool            `json:"dry_run"`
	Narrations   []AssetEntry    `json:"narrations"`
	Images       []AssetEntry    `json:"images"`
	Thumbnail    *AssetEntry     `json:"thumbnail,omitempty"`
	Archival     []ArchivalEntry `json:"archival"`
	CachedAssets int             `json:"cached_assets"`
	TotalCost    float64         `json:"total_cost"`
	FailedAssets []string        `json:"failed_assets"`
}

func newManifest(episodeID, runID string, dryRun bool) *Manifest {
	return &Manifest{
		EpisodeID:    episodeID,
		RunID:        runID,
		DryRun:       dryRun,
		Narrations:   []AssetEntry{},
		Images:       []AssetEntry{},
		Archival:     []ArchivalEntry{},
		FailedAssets: []string{},
	}
}

// tally folds an outcome's cost and cache status into the totals. A failed
// outcome still carries the cost of a backend call that succeeded before the
// failure.
func (m *Manifest) tally(outcome generation.Outcome) {
	if outcome.Err != nil {
		m.FailedAssets = append(m.FailedAssets, outcome.Err.Error())
		m.TotalCost += outcome.Cost
		return
	}
	if outcome.Cached {
		m.CachedAssets++
		return
	}
	m.TotalCost += outcome.Cost
}

func (m *Manifest) fail(err error) {
	if err != nil {
		m.FailedAssets = append(m.FailedAssets, err.Error())
	}
}

func (m *Manifest) finalize() {
	m.TotalCost = math.Round(m.TotalCost*1e6) / 1e6
}

// AssetCount returns the number of produced or planned assets.
func (m *Manifest) AssetCount() int {
	count := len(m.Narrations) + len(m.Images) + len(m.Archival)
	if m.Thumbnail != nil {
		count++
	}
	return count
}

func entryFromOutcome(outcome generation.Outcome, tier string) AssetEntry {
	return AssetEntry{
		Key:    outcome.Key,
		Path:   outcome.Destination,
		Tier:   tier,
		Digest: outcome.Digest,
		Cost:   outcome.Cost,
		Cached: outcome.Cached,
	}
}
