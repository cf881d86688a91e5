package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const episodeColumns = "id, title, artist, venue, show_date, script_json, created_at, updated_at"

// SaveEpisode inserts an episode or replaces the metadata and script of an
// existing one.
func (s *Store) SaveEpisode(ctx context.Context, ep *Episode) error {
	if ep == nil {
		return errors.New("episode is nil")
	}
	ep.ID = strings.TrimSpace(ep.ID)
	if ep.ID == "" {
		return errors.New("episode id is required")
	}
	if strings.TrimSpace(ep.Title) == "" {
		return errors.New("episode title is required")
	}
	scriptJSON, err := json.Marshal(ep.Script)
	if err != nil {
		return fmt.Errorf("marshal script: %w", err)
	}
	now := time.Now().UTC()
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = now
	}
	ep.UpdatedAt = now

	err = s.execWithoutResultRetry(ctx,
		`INSERT INTO episodes (`+episodeColumns+`)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title = excluded.title,
            artist = excluded.artist,
            venue = excluded.venue,
            show_date = excluded.show_date,
            script_json = excluded.script_json,
            updated_at = excluded.updated_at`,
		ep.ID,
		ep.Title,
		nullableString(ep.Artist),
		nullableString(ep.Venue),
		nullableString(ep.ShowDate),
		string(scriptJSON),
		formatTime(ep.CreatedAt),
		formatTime(ep.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save episode: %w", err)
	}
	return nil
}

// GetEpisode fetches an episode by id. It returns nil, nil when absent.
func (s *Store) GetEpisode(ctx context.Context, id string) (*Episode, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, strings.TrimSpace(id))
	ep, err := scanEpisode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get episode: %w", err)
	}
	return ep, nil
}

// ListEpisodes returns every episode ordered by id.
func (s *Store) ListEpisodes(ctx context.Context) ([]*Episode, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT `+episodeColumns+` FROM episodes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []*Episode
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		episodes = append(episodes, ep)
	}
	return episodes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (*Episode, error) {
	var (
		ep                      Episode
		artist, venue, showDate sql.NullString
		scriptJSON              string
		createdAt, updatedAt    string
	)
	if err := row.Scan(&ep.ID, &ep.Title, &artist, &venue, &showDate, &scriptJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ep.Artist = artist.String
	ep.Venue = venue.String
	ep.ShowDate = showDate.String
	if err := json.Unmarshal([]byte(scriptJSON), &ep.Script); err != nil {
		return nil, fmt.Errorf("decode script for %s: %w", ep.ID, err)
	}
	ep.CreatedAt = parseTime(createdAt)
	ep.UpdatedAt = parseTime(updatedAt)
	return &ep, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
