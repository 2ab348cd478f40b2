package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"bookhub/internal/books"
	"bookhub/internal/fetch"
	"bookhub/internal/reviews"
	"bookhub/internal/sync"
	"bookhub/pkg/database"
	"bookhub/pkg/utils"
)

// Standalone sync runner: refreshes metrics and reviews for the whole series
// from one or both platforms, then exits. Suitable for cron.
func main() {
	platform := flag.String("platform", "all", "fantlab, authortoday or all")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run deadline")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	bookRepo := books.NewRepo(db)
	reviewRepo := reviews.NewRepo(db)
	syncCfg := utils.LoadSyncConfig()

	var summaries []sync.RunSummary
	failed := false

	if *platform == "fantlab" || *platform == "all" {
		flCfg := utils.LoadFantLabConfig()
		api := fetch.NewClient("fantlab", flCfg.APIURL, 15*time.Second)
		if flCfg.APIKey != "" {
			api.SetBearerToken(flCfg.APIKey)
		}
		web := fetch.NewClient("fantlab-web", flCfg.WebURL, 15*time.Second)

		fl := sync.NewFantLab(bookRepo, reviewRepo, api, web, syncCfg.BookDelay)
		summary := fl.Run(ctx)
		summaries = append(summaries, summary)
		failed = failed || !summary.Success
	}

	if *platform == "authortoday" || *platform == "all" {
		atCfg := utils.LoadAuthorTodayConfig()
		api := fetch.NewClient("authortoday", atCfg.APIURL, 15*time.Second)
		web := fetch.NewClient("authortoday-web", atCfg.WebURL, 15*time.Second)

		at := sync.NewAuthorToday(bookRepo, reviewRepo, api, web, atCfg.Login, atCfg.Password, syncCfg.BookDelay)
		at.Token = atCfg.Token
		summary := at.Run(ctx)
		summaries = append(summaries, summary)
		failed = failed || !summary.Success
	}

	if len(summaries) == 0 {
		log.Fatalf("unknown platform %q", *platform)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summaries); err != nil {
		log.Fatalf("encode summaries: %v", err)
	}
	if failed {
		os.Exit(1)
	}
}
