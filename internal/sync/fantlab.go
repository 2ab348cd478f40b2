package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookhub/internal/books"
	"bookhub/internal/extract"
	"bookhub/internal/fetch"
	"bookhub/internal/htmlscrape"
	"bookhub/internal/reviews"
	"bookhub/pkg/models"
)

// FantLab syncs work metrics and reader responses from the FantLab platform.
// The API needs no authentication, so nothing can abort a run: every failure
// is per-book and the run carries on to the next one.
type FantLab struct {
	Books   *books.Repo
	Reviews *reviews.Repo

	// API talks to api.fantlab.ru, Web fetches the public site pages for the
	// HTML fallback.
	API *fetch.Client
	Web *fetch.Client

	HTML   *htmlscrape.Extractor
	Hub    *Hub
	Notify Notifier

	// BookDelay paces consecutive book iterations.
	BookDelay time.Duration

	// OnlyBookID restricts the run to a single book when non-zero. Series
	// responses are skipped in that mode.
	OnlyBookID int64
}

func NewFantLab(bookRepo *books.Repo, reviewRepo *reviews.Repo, api, web *fetch.Client, delay time.Duration) *FantLab {
	return &FantLab{
		Books:     bookRepo,
		Reviews:   reviewRepo,
		API:       api,
		Web:       web,
		HTML:      htmlscrape.New("/user"),
		BookDelay: delay,
	}
}

func (f *FantLab) Run(ctx context.Context) RunSummary {
	summary := RunSummary{
		Platform:  models.PlatformFantLab,
		Success:   true,
		StartedAt: time.Now().UTC(),
	}

	all, err := f.Books.List(ctx)
	if err != nil {
		summary.Success = false
		summary.Error = fmt.Sprintf("list books: %v", err)
		summary.FinishedAt = time.Now().UTC()
		return summary
	}

	var linked []models.Book
	for _, b := range all {
		if b.FantlabWorkID == 0 {
			continue
		}
		if f.OnlyBookID != 0 && b.ID != f.OnlyBookID {
			continue
		}
		linked = append(linked, b)
	}
	summary.TotalBooks = len(linked)

	broadcast(f.Hub, RunStartedEvent{
		Type:     "sync.started",
		Platform: models.PlatformFantLab,
		Books:    len(linked),
		At:       time.Now().UTC(),
	})
	log.Printf("[fantlab] sync started: %d linked books", len(linked))

	for i, b := range linked {
		if i > 0 {
			pause(ctx, f.BookDelay)
		}
		if ctx.Err() != nil {
			summary.Success = false
			summary.Error = "cancelled"
			break
		}

		result := f.syncBook(ctx, b)
		summary.add(result)
		notifyNew(f.Notify, result)

		broadcast(f.Hub, BookSyncedEvent{
			Type:     "sync.book",
			Platform: models.PlatformFantLab,
			BookID:   result.BookID,
			Comments: result.Comments,
			Reviews:  result.Reviews,
			Rating:   result.Rating,
			Success:  result.Success,
			Error:    result.Error,
			At:       time.Now().UTC(),
		})
	}

	// responses left on the series page rather than a single book are
	// attached to the first book of the series
	if f.OnlyBookID == 0 && len(linked) > 0 && linked[0].FantlabSeriesID != 0 {
		f.syncSeriesResponses(ctx, linked[0], &summary)
	}

	summary.finish()
	broadcast(f.Hub, RunFinishedEvent{Type: "sync.finished", Summary: summary, At: summary.FinishedAt})
	log.Printf("[fantlab] sync finished: %d/%d books, %d comments, %d reviews",
		summary.UpdatedBooks, summary.TotalBooks, summary.Comments, summary.Reviews)
	return summary
}

func (f *FantLab) syncBook(ctx context.Context, b models.Book) BookResult {
	workRef := fmt.Sprintf("fl_%d", b.FantlabWorkID)

	var rating float64
	var metricsApplied bool
	if payload, ok := f.API.JSON(ctx, fmt.Sprintf("/work/%d", b.FantlabWorkID), nil); ok {
		w := extract.Work(payload)
		rating = w.Rating
		if err := f.Books.ApplyWorkMetrics(ctx, b.ID, w); err != nil {
			log.Printf("[fantlab] apply metrics for book %d: %v", b.ID, err)
		} else {
			metricsApplied = true
		}
	}

	recs := f.fetchResponses(ctx, b, workRef)

	result := persistRecords(ctx, f.Reviews, b.ID, models.PlatformFantLab, recs)
	result.Rating = rating
	result.Updated = result.Updated || metricsApplied
	return result
}

// fetchResponses tries the JSON endpoint first, then falls back to scraping
// the public work page when JSON yields nothing.
func (f *FantLab) fetchResponses(ctx context.Context, b models.Book, workRef string) []models.CommentRecord {
	var recs []models.CommentRecord
	if payload, ok := f.API.JSON(ctx, fmt.Sprintf("/work/%d/responses", b.FantlabWorkID), nil); ok {
		recs = extract.Comments(payload, workRef)
	}
	if len(recs) == 0 && f.Web != nil {
		if page, ok := f.Web.HTML(ctx, fmt.Sprintf("/work%d", b.FantlabWorkID)); ok {
			recs = f.HTML.Comments(page, workRef)
			if len(recs) > 0 {
				log.Printf("[fantlab] html fallback recovered %d responses for book %d", len(recs), b.ID)
			}
		}
	}

	// FantLab responses are long-form reviews; the html extractor classifies
	// on its own
	for i := range recs {
		if recs[i].Kind == "" {
			recs[i].Kind = models.KindReview
		}
	}
	return recs
}

func (f *FantLab) syncSeriesResponses(ctx context.Context, first models.Book, summary *RunSummary) {
	workRef := fmt.Sprintf("fl_series_%d", first.FantlabSeriesID)

	payload, ok := f.API.JSON(ctx, fmt.Sprintf("/work/%d/responses", first.FantlabSeriesID), nil)
	if !ok {
		return
	}
	recs := extract.Comments(payload, workRef)
	for i := range recs {
		// keep series-level responses distinguishable from the book's own
		recs[i].ExternalID = "series_" + recs[i].ExternalID
		if recs[i].Kind == "" {
			recs[i].Kind = models.KindReview
		}
	}

	result := persistRecords(ctx, f.Reviews, first.ID, models.PlatformFantLab, recs)
	summary.Comments += result.Comments
	summary.Reviews += result.Reviews
	notifyNew(f.Notify, result)
	log.Printf("[fantlab] series responses: %d attached to book %d", result.Comments+result.Reviews, first.ID)
}
