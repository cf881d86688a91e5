package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const assetColumns = "id, episode_id, type, service, prompt_hash, file_path, cost, metadata, created_at"

// RecordAsset persists one asset instance and, when cost is non-nil, its cost
// log entry in a single transaction. Missing ids and timestamps are assigned.
func (s *Store) RecordAsset(ctx context.Context, asset *AssetRecord, cost *CostEntry) error {
	ctx = ensureContext(ctx)
	if asset == nil {
		return errors.New("asset is nil")
	}
	if strings.TrimSpace(asset.EpisodeID) == "" || strings.TrimSpace(asset.FilePath) == "" {
		return errors.New("asset episode id and file path are required")
	}
	now := time.Now().UTC()
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	if cost != nil {
		if cost.ID == "" {
			cost.ID = uuid.NewString()
		}
		if cost.EpisodeID == "" {
			cost.EpisodeID = asset.EpisodeID
		}
		if cost.CreatedAt.IsZero() {
			cost.CreatedAt = now
		}
	}

	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin asset tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assets (`+assetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			asset.ID,
			asset.EpisodeID,
			string(asset.Type),
			asset.Service,
			nullableString(asset.PromptHash),
			asset.FilePath,
			asset.Cost,
			nullableJSON(asset.Metadata),
			formatTime(asset.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert asset: %w", err)
		}
		if cost != nil {
			if err := insertCost(ctx, tx, cost); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// LogCost appends one cost_log entry.
func (s *Store) LogCost(ctx context.Context, entry *CostEntry) error {
	ctx = ensureContext(ctx)
	if entry == nil {
		return errors.New("cost entry is nil")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin cost tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if err := insertCost(ctx, tx, entry); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func insertCost(ctx context.Context, tx *sql.Tx, entry *CostEntry) error {
	if strings.TrimSpace(entry.EpisodeID) == "" || strings.TrimSpace(entry.Service) == "" {
		return errors.New("cost entry episode id and service are required")
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cost_log (id, episode_id, service, operation, input_tokens, output_tokens, cost, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.EpisodeID,
		entry.Service,
		entry.Operation,
		entry.InputTokens,
		entry.OutputTokens,
		entry.Cost,
		formatTime(entry.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert cost entry: %w", err)
	}
	return nil
}

// ListAssets returns an episode's asset records in creation order. An empty
// assetType returns every type.
func (s *Store) ListAssets(ctx context.Context, episodeID string, assetType AssetType) ([]AssetRecord, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE episode_id = ?`
	args := []any{episodeID}
	if assetType != "" {
		query += ` AND type = ?`
		args = append(args, string(assetType))
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []AssetRecord
	for rows.Next() {
		var (
			rec        AssetRecord
			typ        string
			promptHash sql.NullString
			metadata   sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&rec.ID, &rec.EpisodeID, &typ, &rec.Service, &promptHash,
			&rec.FilePath, &rec.Cost, &metadata, &createdAt); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		rec.Type = AssetType(typ)
		rec.PromptHash = promptHash.String
		if metadata.Valid && metadata.String != "" {
			rec.Metadata = json.RawMessage(metadata.String)
		}
		rec.CreatedAt = parseTime(createdAt)
		assets = append(assets, rec)
	}
	return assets, rows.Err()
}

// CostSummary totals an episode's cost log per service operation.
func (s *Store) CostSummary(ctx context.Context, episodeID string) (CostSummary, error) {
	summary := CostSummary{EpisodeID: episodeID}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT service, operation, COUNT(1), COALESCE(SUM(cost), 0)
        FROM cost_log WHERE episode_id = ?
        GROUP BY service, operation
        ORDER BY service, operation`,
		episodeID,
	)
	if err != nil {
		return summary, fmt.Errorf("cost summary: %w", err)
	}
	defer rows.Close()

	total := 0.0
	for rows.Next() {
		var line CostLine
		if err := rows.Scan(&line.Service, &line.Operation, &line.Calls, &line.Cost); err != nil {
			return summary, fmt.Errorf("scan cost line: %w", err)
		}
		line.Cost = roundCost(line.Cost)
		total += line.Cost
		summary.Lines = append(summary.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}
	summary.Total = roundCost(total)
	return summary, nil
}

func roundCost(value float64) float64 {
	return math.Round(value*1e6) / 1e6
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
