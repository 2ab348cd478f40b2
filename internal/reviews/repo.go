package reviews

import (
	"context"
	"database/sql"
	"fmt"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// UpsertResult reports what reconciliation did with one extracted record.
type UpsertResult struct {
	Inserted bool
	Updated  bool
}

// Upsert reconciles one extracted comment with storage using the
// (external_id, platform) natural key: one lookup, then either an insert or
// an update of the mutable fields. Running the same sync twice leaves exactly
// one row per comment. Immutable identity fields (external_id, platform,
// book_id) are never rewritten on update; text, author, date, rating and
// likes follow the platform. Only the parsed date is stored; the raw platform
// date string on the record is dropped deliberately.
func (r *Repo) Upsert(ctx context.Context, bookID int64, platform string, rec models.CommentRecord) (UpsertResult, error) {
	kind := rec.Kind
	if kind == "" {
		kind = models.KindComment
	}

	row := r.DB.QueryRowContext(ctx, `
		SELECT id FROM reviews WHERE external_id = ? AND platform = ?
	`, rec.ExternalID, platform)

	var existingID int64
	err := row.Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		_, err := r.DB.ExecContext(ctx, `
			INSERT INTO reviews (book_id, external_id, platform, kind, author_name, text, date, rating, likes_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, bookID, rec.ExternalID, platform, kind, rec.AuthorName, rec.Text, rec.Date, rec.Rating, rec.LikesCount)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("insert review: %w", err)
		}
		return UpsertResult{Inserted: true}, nil
	case err != nil:
		return UpsertResult{}, fmt.Errorf("lookup review: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		UPDATE reviews
		SET kind = ?, author_name = ?, text = ?, date = ?, rating = ?, likes_count = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, kind, rec.AuthorName, rec.Text, rec.Date, rec.Rating, rec.LikesCount, existingID)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("update review: %w", err)
	}
	return UpsertResult{Updated: true}, nil
}

func (r *Repo) ListByBook(ctx context.Context, bookID int64, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, book_id, external_id, platform, kind, author_name, text, date, rating, likes_count,
			created_at, updated_at
		FROM reviews
		WHERE book_id = ?
		ORDER BY date DESC, id DESC
		LIMIT ? OFFSET ?
	`, bookID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		out = append(out, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) CountByBook(ctx context.Context, bookID int64) (int, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM reviews WHERE book_id = ?`, bookID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return n, nil
}

// BookAverageRating averages the rated reviews of one book. Zero-rating rows
// are unrated, not rated zero, and are excluded.
func (r *Repo) BookAverageRating(ctx context.Context, bookID int64) (float64, int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE book_id = ? AND rating > 0
	`, bookID)
	var avg float64
	var n int
	if err := row.Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("book average: %w", err)
	}
	return avg, n, nil
}

// SeriesAverageRating averages rated reviews across all books.
func (r *Repo) SeriesAverageRating(ctx context.Context) (float64, int, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE rating > 0
	`)
	var avg float64
	var n int
	if err := row.Scan(&avg, &n); err != nil {
		return 0, 0, fmt.Errorf("series average: %w", err)
	}
	return avg, n, nil
}

func scanReview(rows *sql.Rows) (*models.Review, error) {
	var (
		rv     models.Review
		author sql.NullString
		date   sql.NullTime
	)
	if err := rows.Scan(
		&rv.ID, &rv.BookID, &rv.ExternalID, &rv.Platform, &rv.Kind, &author, &rv.Text,
		&date, &rv.Rating, &rv.LikesCount, &rv.CreatedAt, &rv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rv.AuthorName = author.String
	if date.Valid {
		rv.Date = &date.Time
	}
	return &rv, nil
}
