package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"bookhub/internal/books"
	"bookhub/pkg/database"
)

// mapping ties a local book title to its identifiers on the external
// platforms. Zero values leave the stored id untouched.
type mapping struct {
	Title             string `json:"title"`
	FantlabWorkID     int64  `json:"fantlab_work_id"`
	FantlabSeriesID   int64  `json:"fantlab_series_id"`
	AuthorTodayWorkID int64  `json:"authortoday_work_id"`
}

func main() {
	in := flag.String("in", "data/external_ids.json", "JSON file with title to platform id mappings")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	var mappings []mapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		log.Fatalf("parse %s: %v", *in, err)
	}

	repo := books.NewRepo(db)
	applied, missing := 0, 0
	for _, m := range mappings {
		if m.Title == "" {
			continue
		}

		b, err := repo.GetByTitle(ctx, m.Title)
		if err != nil {
			log.Fatalf("lookup %q: %v", m.Title, err)
		}
		if b == nil {
			log.Printf("no local book titled %q, skipping", m.Title)
			missing++
			continue
		}

		if err := repo.SetExternalIDs(ctx, b.ID, m.FantlabWorkID, m.FantlabSeriesID, m.AuthorTodayWorkID); err != nil {
			log.Fatalf("set ids for %q: %v", m.Title, err)
		}
		applied++
	}

	log.Printf("✅ applied %d mappings from %s (%d titles not found)", applied, *in, missing)
}
