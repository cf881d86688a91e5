package store

import (
	"encoding/json"
	"strings"
	"time"
)

// AssetType classifies a produced asset.
type AssetType string

const (
	AssetNarration AssetType = "narration"
	AssetImage     AssetType = "image"
	AssetThumbnail AssetType = "thumbnail"
	AssetArchival  AssetType = "archival"
)

// Visual is one planned image for a segment.
type Visual struct {
	Prompt string `json:"prompt" yaml:"prompt"`
	Tier   string `json:"tier,omitempty" yaml:"tier,omitempty"`
}

// Segment is one narrated section of an episode with its planned visuals.
type Segment struct {
	Title     string   `json:"title,omitempty" yaml:"title,omitempty"`
	Narration string   `json:"narration" yaml:"narration"`
	Visuals   []Visual `json:"visuals,omitempty" yaml:"visuals,omitempty"`
}

// Script is the structured episode script.
type Script struct {
	Segments        []Segment `json:"segments" yaml:"segments"`
	ThumbnailPrompt string    `json:"thumbnail_prompt,omitempty" yaml:"thumbnail_prompt,omitempty"`
}

// NarrationText joins every segment's narration into the full read.
func (s Script) NarrationText() string {
	parts := make([]string, 0, len(s.Segments))
	for _, seg := range s.Segments {
		if text := strings.TrimSpace(seg.Narration); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// VisualCount returns the number of planned segment images.
func (s Script) VisualCount() int {
	total := 0
	for _, seg := range s.Segments {
		total += len(seg.Visuals)
	}
	return total
}

// Episode is one documentary episode and its script.
type Episode struct {
	ID        string
	Title     string
	Artist    string
	Venue     string
	ShowDate  string
	Script    Script
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Year returns the show year parsed from ShowDate, or 0 when unknown.
func (e Episode) Year() int {
	date := strings.TrimSpace(e.ShowDate)
	if len(date) < 4 {
		return 0
	}
	year := 0
	for _, r := range date[:4] {
		if r < '0' || r > '9' {
			return 0
		}
		year = year*10 + int(r-'0')
	}
	return year
}

// AssetRecord is one produced asset instance.
type AssetRecord struct {
	ID         string          `json:"id"`
	EpisodeID  string          `json:"episode_id"`
	Type       AssetType       `json:"type"`
	Service    string          `json:"service"`
	PromptHash string          `json:"prompt_hash,omitempty"`
	FilePath   string          `json:"file_path"`
	Cost       float64         `json:"cost"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// CostEntry is one paid external call.
type CostEntry struct {
	ID           string    `json:"id"`
	EpisodeID    string    `json:"episode_id"`
	Service      string    `json:"service"`
	Operation    string    `json:"operation"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	Cost         float64   `json:"cost"`
	CreatedAt    time.Time `json:"created_at"`
}

// CostLine aggregates cost_log rows for one service operation.
type CostLine struct {
	Service   string  `json:"service"`
	Operation string  `json:"operation"`
	Calls     int     `json:"calls"`
	Cost      float64 `json:"cost"`
}

// CostSummary totals an episode's spend.
type CostSummary struct {
	EpisodeID string     `json:"episode_id"`
	Lines     []CostLine `json:"lines"`
	Total     float64    `json:"total"`
}
