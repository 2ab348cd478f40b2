package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"bookhub/pkg/database"
)

// mirrorWork mimics the FantLab work payload closely enough that the
// sync pipeline pointed at a mirror server cannot tell the difference.
type mirrorWork struct {
	ID           int64        `json:"id"`
	WorkName     string       `json:"work_name"`
	AuthorName   string       `json:"author"`
	Annotation   string       `json:"annotation"`
	Rating       mirrorRating `json:"rating"`
	ReviewsCount int64        `json:"reviews_count"`
}

type mirrorRating struct {
	Rating string `json:"rating"`
	Voters string `json:"voters"`
}

type mirrorResponse struct {
	ID     int64   `json:"id"`
	Author string  `json:"user_name"`
	Text   string  `json:"text"`
	Date   string  `json:"date"`
	Mark   float64 `json:"mark"`
	Likes  int64   `json:"likes"`
}

func main() {
	outDir := flag.String("out", "data/mirror", "output directory for mirror fixtures")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, author, annotation, fantlab_work_id, rating, voters_count, reviews_count
		FROM books
		WHERE fantlab_work_id IS NOT NULL
		ORDER BY series_order, id
	`)
	if err != nil {
		log.Fatalf("query books failed: %v", err)
	}
	defer rows.Close()

	works := 0
	for rows.Next() {
		var (
			bookID       int64
			title        string
			author       sql.NullString
			annotation   sql.NullString
			workID       int64
			rating       float64
			votersCount  int64
			reviewsCount int64
		)
		if err := rows.Scan(&bookID, &title, &author, &annotation, &workID,
			&rating, &votersCount, &reviewsCount); err != nil {
			log.Fatalf("scan book failed: %v", err)
		}

		work := mirrorWork{
			ID:         workID,
			WorkName:   title,
			AuthorName: author.String,
			Annotation: annotation.String,
			// string-typed numerics on purpose, the live API sends them
			// this way and the coercion layer must keep handling it
			Rating: mirrorRating{
				Rating: fmt.Sprintf("%.2f", rating),
				Voters: fmt.Sprintf("%d", votersCount),
			},
			ReviewsCount: reviewsCount,
		}
		if err := writeFixture(filepath.Join(*outDir, fmt.Sprintf("work_%d.json", workID)), work); err != nil {
			log.Fatalf("write work fixture: %v", err)
		}

		responses, err := exportResponses(ctx, db, bookID)
		if err != nil {
			log.Fatalf("export responses for book %d: %v", bookID, err)
		}
		path := filepath.Join(*outDir, fmt.Sprintf("responses_%d.json", workID))
		if err := writeFixture(path, map[string]any{"items": responses}); err != nil {
			log.Fatalf("write responses fixture: %v", err)
		}
		works++
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("rows error: %v", err)
	}

	log.Printf("✅ exported %d mirror fixtures to %s", works, *outDir)
}

func exportResponses(ctx context.Context, db *sql.DB, bookID int64) ([]mirrorResponse, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, author_name, text, date, rating, likes_count
		FROM reviews
		WHERE book_id = ? AND platform = 'fantlab'
		ORDER BY date DESC, id DESC
	`, bookID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []mirrorResponse{}
	for rows.Next() {
		var (
			id         int64
			authorName string
			text       string
			date       sql.NullTime
			rating     float64
			likes      int64
		)
		if err := rows.Scan(&id, &authorName, &text, &date, &rating, &likes); err != nil {
			return nil, err
		}

		d := ""
		if date.Valid {
			d = date.Time.Format("2006-01-02 15:04:05")
		}
		out = append(out, mirrorResponse{
			ID:     id,
			Author: authorName,
			Text:   text,
			Date:   d,
			Mark:   rating,
			Likes:  likes,
		})
	}
	return out, rows.Err()
}

func writeFixture(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
