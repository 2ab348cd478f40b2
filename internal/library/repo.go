// Package library tracks per-user reading progress through the series, by
// FB2 section rather than by page, plus an append-only history of section
// changes.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Upsert inserts or updates a user's progress on one book.
func (r *Repo) Upsert(ctx context.Context, item models.LibraryItem) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_progress (user_id, book_id, current_section, status, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id, book_id) DO UPDATE SET
			current_section = excluded.current_section,
			status = excluded.status,
			updated_at = CURRENT_TIMESTAMP
	`, item.UserID, item.BookID, item.CurrentSection, item.Status)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, userID string, bookID int64) (*models.LibraryItem, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT user_id, book_id, current_section, status, updated_at
		FROM user_progress
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID)

	var it models.LibraryItem
	if err := row.Scan(&it.UserID, &it.BookID, &it.CurrentSection, &it.Status, &it.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	return &it, nil
}

func (r *Repo) List(ctx context.Context, userID, status string, limit, offset int) ([]models.LibraryItem, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := "user_id = ?"
	args := []any{userID}
	if status != "" {
		where += " AND status = ?"
		args = append(args, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_progress WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, book_id, current_section, status, updated_at
		FROM user_progress
		WHERE `+where+`
		ORDER BY updated_at DESC
		LIMIT ? OFFSET ?
	`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	out := make([]models.LibraryItem, 0, limit)
	for rows.Next() {
		var it models.LibraryItem
		if err := rows.Scan(&it.UserID, &it.BookID, &it.CurrentSection, &it.Status, &it.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan progress row: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows err: %w", err)
	}
	return out, total, nil
}

func (r *Repo) Delete(ctx context.Context, userID string, bookID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_progress
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID)
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AddHistory appends one section-change entry. History is never updated or
// deleted through the API.
func (r *Repo) AddHistory(ctx context.Context, entry models.ProgressHistory) error {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_progress_history (user_id, book_id, section, at)
		VALUES (?, ?, ?, ?)
	`, entry.UserID, entry.BookID, entry.Section, entry.At)
	if err != nil {
		return fmt.Errorf("insert progress history: %w", err)
	}
	return nil
}

func (r *Repo) ListHistory(ctx context.Context, userID string, bookID int64, limit, offset int) ([]models.ProgressHistory, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM user_progress_history
		WHERE user_id = ? AND book_id = ?
	`, userID, bookID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count progress history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT user_id, book_id, section, at
		FROM user_progress_history
		WHERE user_id = ? AND book_id = ?
		ORDER BY at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, bookID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list progress history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ProgressHistory, 0, limit)
	for rows.Next() {
		var entry models.ProgressHistory
		if err := rows.Scan(&entry.UserID, &entry.BookID, &entry.Section, &entry.At); err != nil {
			return nil, 0, fmt.Errorf("scan progress history: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows progress history: %w", err)
	}
	return out, total, nil
}
