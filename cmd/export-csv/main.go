package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookhub/pkg/database"
)

func main() {
	var (
		booksOut   = flag.String("books", "data/books.csv", "output CSV path for books")
		reviewsOut = flag.String("reviews", "data/reviews.csv", "output CSV path for reviews")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportBooks(ctx, db, *booksOut); err != nil {
		log.Fatalf("export books failed: %v", err)
	}
	if err := exportReviews(ctx, db, *reviewsOut); err != nil {
		log.Fatalf("export reviews failed: %v", err)
	}

	log.Printf("✅ exported books to %s and reviews to %s", *booksOut, *reviewsOut)
}

func exportBooks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "title", "author", "series_order",
		"fantlab_work_id", "fantlab_series_id", "authortoday_work_id",
		"rating", "voters_count", "reviews_count",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, title, author, series_order,
               fantlab_work_id, fantlab_series_id, authortoday_work_id,
               rating, voters_count, reviews_count
        FROM books
        ORDER BY series_order, id
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id           int64
			title        string
			author       sql.NullString
			seriesOrder  sql.NullInt64
			flWork       sql.NullInt64
			flSeries     sql.NullInt64
			atWork       sql.NullInt64
			rating       float64
			votersCount  int64
			reviewsCount int64
		)

		if err := rows.Scan(&id, &title, &author, &seriesOrder,
			&flWork, &flSeries, &atWork,
			&rating, &votersCount, &reviewsCount); err != nil {
			return err
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			title,
			author.String,
			itoaOrEmpty(seriesOrder),
			itoaOrEmpty(flWork),
			itoaOrEmpty(flSeries),
			itoaOrEmpty(atWork),
			strconv.FormatFloat(rating, 'f', 2, 64),
			strconv.FormatInt(votersCount, 10),
			strconv.FormatInt(reviewsCount, 10),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportReviews(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "book_id", "external_id", "platform", "kind",
		"author_name", "text", "date", "rating", "likes_count",
	}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, book_id, external_id, platform, kind,
               author_name, text, date, rating, likes_count
        FROM reviews
        ORDER BY book_id, date DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id         int64
			bookID     int64
			externalID string
			platform   string
			kind       string
			authorName string
			text       string
			date       sql.NullTime
			rating     float64
			likesCount int64
		)

		if err := rows.Scan(&id, &bookID, &externalID, &platform, &kind,
			&authorName, &text, &date, &rating, &likesCount); err != nil {
			return err
		}

		d := ""
		if date.Valid {
			d = date.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			strconv.FormatInt(id, 10),
			strconv.FormatInt(bookID, 10),
			externalID,
			platform,
			kind,
			authorName,
			text,
			d,
			strconv.FormatFloat(rating, 'f', 2, 64),
			strconv.FormatInt(likesCount, 10),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func itoaOrEmpty(n sql.NullInt64) string {
	if !n.Valid || n.Int64 <= 0 {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}
