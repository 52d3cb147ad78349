package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"bookvoice/internal/models"
)

type ChapterRepo struct {
	db *DB
}

func NewChapterRepo(db *DB) *ChapterRepo {
	return &ChapterRepo{db: db}
}

func (r *ChapterRepo) UpsertChapter(ctx context.Context, c models.Chapter) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO chapters (chapter_id, book_id, title, text, status)
VALUES ($1, NULLIF($2,''), $3, $4, $5)
ON CONFLICT (chapter_id)
DO UPDATE SET
  book_id = EXCLUDED.book_id,
  title = EXCLUDED.title,
  text = EXCLUDED.text,
  status = EXCLUDED.status,
  updated_at = NOW()`,
		c.ChapterID, c.BookID, c.Title, c.Text, c.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert chapter: %w", err)
	}
	return nil
}

func (r *ChapterRepo) GetChapter(ctx context.Context, chapterID string) (*models.Chapter, error) {
	var c models.Chapter
	err := r.db.Pool.QueryRow(ctx, `
SELECT chapter_id::text, COALESCE(book_id,''), title, text, status, created_at, updated_at
FROM chapters
WHERE chapter_id=$1`, chapterID).
		Scan(&c.ChapterID, &c.BookID, &c.Title, &c.Text, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return &c, nil
}

func (r *ChapterRepo) UpdateChapterStatus(ctx context.Context, chapterID, status string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE chapters SET status=$2, updated_at=NOW() WHERE chapter_id=$1`, chapterID, status)
	if err != nil {
		return fmt.Errorf("update chapter status: %w", err)
	}
	return nil
}

func (r *ChapterRepo) ListChapters(ctx context.Context, bookID string) ([]models.Chapter, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT chapter_id::text, COALESCE(book_id,''), title, status, created_at, updated_at
FROM chapters
WHERE ($1 = '' OR book_id = $1)
ORDER BY created_at ASC`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	out := make([]models.Chapter, 0)
	for rows.Next() {
		var c models.Chapter
		if err := rows.Scan(&c.ChapterID, &c.BookID, &c.Title, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chapters: %w", err)
	}
	return out, nil
}
