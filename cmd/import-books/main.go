package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"bookhub/internal/books"
	"bookhub/internal/fb2"
	"bookhub/pkg/database"
	"bookhub/pkg/models"
	"bookhub/pkg/utils"
)

// Leading digits in a file name fix the book's place in the series,
// e.g. "03_doroga_domoj.fb2" becomes series_order 3.
var orderPrefixRe = regexp.MustCompile(`^(\d+)[_\-. ]`)

func main() {
	dir := flag.String("dir", utils.BooksDir(), "directory with FB2 files")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	repo := books.NewRepo(db)

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("read dir %s: %v", *dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".fb2") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	imported, skipped := 0, 0
	for i, name := range names {
		path := filepath.Join(*dir, name)

		parsed, err := fb2.ParseFile(path)
		if err != nil {
			log.Printf("skipping %s: %v", name, err)
			continue
		}

		existing, err := repo.GetByTitle(ctx, parsed.Title)
		if err != nil {
			log.Fatalf("lookup %q: %v", parsed.Title, err)
		}
		if existing != nil {
			skipped++
			continue
		}

		order := i + 1
		if m := orderPrefixRe.FindStringSubmatch(name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				order = n
			}
		}

		b := models.Book{
			Title:       parsed.Title,
			Author:      parsed.Author,
			Annotation:  parsed.Annotation,
			SeriesOrder: order,
			FB2FilePath: path,
		}
		if err := repo.Create(ctx, &b); err != nil {
			log.Fatalf("create %q: %v", parsed.Title, err)
		}
		log.Printf("imported %q (order %d, %d sections)", b.Title, order, len(parsed.Sections))
		imported++
	}

	log.Printf("✅ imported %d books from %s (%d already present)", imported, *dir, skipped)
}
