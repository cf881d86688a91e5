// Package episodes loads episode scripts from YAML files.
package episodes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"showreel/internal/imagegen"
	"showreel/internal/store"
)

type scriptFile struct {
	ID              string          `yaml:"id"`
	Title           string          `yaml:"title"`
	Artist          string          `yaml:"artist"`
	Venue           string          `yaml:"venue"`
	ShowDate        string          `yaml:"show_date"`
	ThumbnailPrompt string          `yaml:"thumbnail_prompt"`
	Segments        []store.Segment `yaml:"segments"`
}

// Parse decodes and validates an episode script document. Visual tiers are
// normalized to their canonical names.
func Parse(data []byte) (*store.Episode, error) {
	var doc scriptFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse episode script: %w", err)
	}

	ep := &store.Episode{
		ID:       strings.TrimSpace(doc.ID),
		Title:    strings.TrimSpace(doc.Title),
		Artist:   strings.TrimSpace(doc.Artist),
		Venue:    strings.TrimSpace(doc.Venue),
		ShowDate: strings.TrimSpace(doc.ShowDate),
		Script: store.Script{
			Segments:        doc.Segments,
			ThumbnailPrompt: strings.TrimSpace(doc.ThumbnailPrompt),
		},
	}
	if err := validate(ep); err != nil {
		return nil, err
	}
	return ep, nil
}

func validate(ep *store.Episode) error {
	var problems []string
	if ep.ID == "" {
		problems = append(problems, "id is required")
	}
	if ep.Title == "" {
		problems = append(problems, "title is required")
	}
	if len(ep.Script.Segments) == 0 {
		problems = append(problems, "at least one segment is required")
	}
	for i := range ep.Script.Segments {
		seg := &ep.Script.Segments[i]
		for j := range seg.Visuals {
			visual := &seg.Visuals[j]
			visual.Prompt = strings.TrimSpace(visual.Prompt)
			if visual.Prompt == "" {
				problems = append(problems, fmt.Sprintf("segment %d visual %d: prompt is required", i+1, j+1))
			}
			tier, err := imagegen.ParseTier(visual.Tier)
			if err != nil {
				problems = append(problems, fmt.Sprintf("segment %d visual %d: %v", i+1, j+1, err))
				continue
			}
			visual.Tier = tier.String()
		}
	}
	if len(ep.Script.Segments) > 0 && ep.Script.NarrationText() == "" {
		problems = append(problems, "script has no narration text")
	}
	if len(problems) > 0 {
		return errors.New("invalid episode script: " + strings.Join(problems, "; "))
	}
	return nil
}

// Load reads and parses an episode script file.
func Load(path string) (*store.Episode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read episode script: %w", err)
	}
	return Parse(data)
}

// Import loads the script at path and saves it to st.
func Import(ctx context.Context, st *store.Store, path string) (*store.Episode, error) {
	if st == nil {
		return nil, errors.New("store is nil")
	}
	ep, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := st.SaveEpisode(ctx, ep); err != nil {
		return nil, err
	}
	return ep, nil
}
