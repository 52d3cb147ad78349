package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bookvoice/internal/models"
)

type ResultRepo struct {
	db *DB
}

func NewResultRepo(db *DB) *ResultRepo {
	return &ResultRepo{db: db}
}

func (r *ResultRepo) SaveResult(ctx context.Context, res *models.AnalysisResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO analysis_results (chapter_id, payload, degraded, completed_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (chapter_id)
DO UPDATE SET
  payload = EXCLUDED.payload,
  degraded = EXCLUDED.degraded,
  completed_at = EXCLUDED.completed_at`,
		res.ChapterID, raw, res.Degraded, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}

func (r *ResultRepo) GetResult(ctx context.Context, chapterID string) (*models.AnalysisResult, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT payload FROM analysis_results WHERE chapter_id=$1`, chapterID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	var res models.AnalysisResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}
