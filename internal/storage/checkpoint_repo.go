package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bookvoice/internal/models"
)

// CheckpointRepo persists resumable analysis state as one JSONB row per
// chapter. Load reports (nil, nil) when no checkpoint exists; an unmarshal
// failure is returned as an error so the caller can discard it as corrupt.
type CheckpointRepo struct {
	db *DB
}

func NewCheckpointRepo(db *DB) *CheckpointRepo {
	return &CheckpointRepo{db: db}
}

func (r *CheckpointRepo) Load(ctx context.Context, chapterID string) (*models.Checkpoint, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT payload FROM analysis_checkpoints WHERE chapter_id=$1`, chapterID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	var cp models.Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *CheckpointRepo) Save(ctx context.Context, chapterID string, cp *models.Checkpoint) error {
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
INSERT INTO analysis_checkpoints (chapter_id, content_hash, payload, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (chapter_id)
DO UPDATE SET
  content_hash = EXCLUDED.content_hash,
  payload = EXCLUDED.payload,
  updated_at = NOW()`,
		chapterID, cp.ContentHash, raw,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (r *CheckpointRepo) Delete(ctx context.Context, chapterID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM analysis_checkpoints WHERE chapter_id=$1`, chapterID)
	if err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}
