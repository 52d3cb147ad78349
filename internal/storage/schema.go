package storage

import (
	"context"
	"fmt"
	"sync"
)

var (
	schemaMu       sync.Mutex
	schemaPrepared bool
)

// EnsureSchema creates the tables on first use. Kept resilient even if the
// operator forgot to run migrations.
func EnsureSchema(ctx context.Context, db *DB) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if schemaPrepared {
		return nil
	}

	ddl := `
CREATE TABLE IF NOT EXISTS chapters (
  chapter_id UUID PRIMARY KEY,
  book_id TEXT,
  title TEXT NOT NULL DEFAULT '',
  text TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS analysis_checkpoints (
  chapter_id UUID PRIMARY KEY REFERENCES chapters(chapter_id) ON DELETE CASCADE,
  content_hash BIGINT NOT NULL,
  payload JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS analysis_results (
  chapter_id UUID PRIMARY KEY REFERENCES chapters(chapter_id) ON DELETE CASCADE,
  payload JSONB NOT NULL,
  degraded BOOLEAN NOT NULL DEFAULT FALSE,
  completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chapters_book ON chapters(book_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_chapters_status ON chapters(status);
`
	if _, err := db.Pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	schemaPrepared = true
	return nil
}
