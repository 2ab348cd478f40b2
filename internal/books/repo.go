package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const bookColumns = `
	id, title, author, description, annotation, series_order, fb2_file_path,
	fantlab_work_id, fantlab_series_id, authortoday_work_id,
	rating, voters_count, reviews_count, created_at, updated_at
`

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var (
		b           models.Book
		author      sql.NullString
		description sql.NullString
		annotation  sql.NullString
		seriesOrder sql.NullInt64
		fb2Path     sql.NullString
		flWork      sql.NullInt64
		flSeries    sql.NullInt64
		atWork      sql.NullInt64
	)
	if err := row.Scan(
		&b.ID, &b.Title, &author, &description, &annotation, &seriesOrder, &fb2Path,
		&flWork, &flSeries, &atWork,
		&b.Rating, &b.VotersCount, &b.ReviewsCount, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Author = author.String
	b.Description = description.String
	b.Annotation = annotation.String
	b.SeriesOrder = int(seriesOrder.Int64)
	b.FB2FilePath = fb2Path.String
	b.FantlabWorkID = flWork.Int64
	b.FantlabSeriesID = flSeries.Int64
	b.AuthorTodayWorkID = atWork.Int64
	return &b, nil
}

func (r *Repo) Create(ctx context.Context, b *models.Book) error {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO books (title, author, description, annotation, series_order, fb2_file_path,
			fantlab_work_id, fantlab_series_id, authortoday_work_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.Title, b.Author, b.Description, b.Annotation, b.SeriesOrder, b.FB2FilePath,
		nullID(b.FantlabWorkID), nullID(b.FantlabSeriesID), nullID(b.AuthorTodayWorkID))
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("book id: %w", err)
	}
	b.ID = id
	return nil
}

// List returns the whole series in reading order. series_order, not title,
// drives ordering; sync runs walk books in this same order.
func (r *Repo) List(ctx context.Context) ([]models.Book, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		ORDER BY series_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var out []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE id = ?
	`, id)

	b, err := scanBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return b, nil
}

func (r *Repo) GetByTitle(ctx context.Context, title string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE LOWER(title) = LOWER(?)
	`, strings.TrimSpace(title))

	b, err := scanBook(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByTitle: %w", err)
	}
	return b, nil
}

// Search does keyword matching over title, author and description.
func (r *Repo) Search(ctx context.Context, q string) ([]models.Book, error) {
	kw := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+bookColumns+`
		FROM books
		WHERE LOWER(title) LIKE ? OR LOWER(author) LIKE ? OR LOWER(description) LIKE ?
		ORDER BY series_order ASC, id ASC
	`, kw, kw, kw)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var out []models.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("search scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ApplyWorkMetrics projects a freshly fetched work summary onto the book row.
// Last write wins; the previous snapshot is not kept. Zero-value fields in
// the summary still overwrite (a platform dropping its rating is information
// too), except the annotation, which is only replaced when non-empty.
func (r *Repo) ApplyWorkMetrics(ctx context.Context, bookID int64, w models.WorkSummary) error {
	query := `
		UPDATE books
		SET rating = ?, voters_count = ?, reviews_count = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`
	args := []any{w.Rating, w.VotersCount, w.ReviewsCount, bookID}
	if w.Annotation != "" {
		query = `
			UPDATE books
			SET rating = ?, voters_count = ?, reviews_count = ?, annotation = ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`
		args = []any{w.Rating, w.VotersCount, w.ReviewsCount, w.Annotation, bookID}
	}

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("apply metrics: %w", err)
	}
	return nil
}

// SetExternalIDs records the per-platform work identifiers. A zero id leaves
// the stored value untouched so partial mappings can be seeded.
func (r *Repo) SetExternalIDs(ctx context.Context, bookID, fantlabWork, fantlabSeries, authorTodayWork int64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE books
		SET fantlab_work_id = COALESCE(?, fantlab_work_id),
			fantlab_series_id = COALESCE(?, fantlab_series_id),
			authortoday_work_id = COALESCE(?, authortoday_work_id),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, nullID(fantlabWork), nullID(fantlabSeries), nullID(authorTodayWork), bookID)
	if err != nil {
		return fmt.Errorf("set external ids: %w", err)
	}
	return nil
}

func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
