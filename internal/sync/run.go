// Package sync holds the event hub and the per-platform sync orchestrators.
//
// A run walks the series in reading order, one book at a time, refreshing the
// cached work metrics and reconciling scraped comments into storage. Runs are
// deliberately sequential and paced: the external platforms are someone
// else's servers. A broken book never stops the run; only a failed
// authentication does, because every following request would fail the same
// way.
package sync

import (
	"context"
	"log"
	"time"

	"bookhub/internal/reviews"
	"bookhub/pkg/models"
)

// Notifier pushes "new reviews" notifications to registered readers. Nil
// disables the push.
type Notifier interface {
	NotifyNewReviews(bookID int64, count int)
}

// BookResult is the per-book outcome of a run. Updated means at least one
// write landed for the book: a persisted record or applied work metrics.
// A book can succeed without updating anything when the platform had nothing
// for it.
type BookResult struct {
	BookID   int64   `json:"book_id"`
	Comments int     `json:"comments"`
	Reviews  int     `json:"reviews"`
	New      int     `json:"new"`
	Rating   float64 `json:"rating"`
	Updated  bool    `json:"updated"`
	Success  bool    `json:"success"`
	Error    string  `json:"error,omitempty"`
}

// RunSummary is the overall outcome of one sync run.
type RunSummary struct {
	Platform     string       `json:"platform"`
	Success      bool         `json:"success"`
	Error        string       `json:"error,omitempty"`
	TotalBooks   int          `json:"total_books"`
	UpdatedBooks int          `json:"updated_books"`
	Comments     int          `json:"comments"`
	Reviews      int          `json:"reviews"`
	Rating       float64      `json:"rating,omitempty"`
	Books        []BookResult `json:"books,omitempty"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
}

func (s *RunSummary) add(r BookResult) {
	s.Books = append(s.Books, r)
	if r.Updated {
		s.UpdatedBooks++
	}
	s.Comments += r.Comments
	s.Reviews += r.Reviews
}

// finish stamps the end time and the aggregate rating: the average over books
// that reported one, so a single-book run carries that book's rating as is.
func (s *RunSummary) finish() {
	var sum float64
	var n int
	for _, r := range s.Books {
		if r.Rating > 0 {
			sum += r.Rating
			n++
		}
	}
	if n > 0 {
		s.Rating = sum / float64(n)
	}
	s.FinishedAt = time.Now().UTC()
}

// persistRecords reconciles extracted records for one book. Records with
// empty text are skipped outright; the extractors should have dropped them
// already, storage never sees one either way.
func persistRecords(ctx context.Context, repo *reviews.Repo, bookID int64, platform string, recs []models.CommentRecord) (result BookResult) {
	result.BookID = bookID
	result.Success = true

	for _, rec := range recs {
		if rec.Text == "" {
			continue
		}
		res, err := repo.Upsert(ctx, bookID, platform, rec)
		if err != nil {
			log.Printf("[sync] upsert failed for book %d (%s %s): %v", bookID, platform, rec.ExternalID, err)
			result.Success = false
			result.Error = "partial: some records failed to persist"
			continue
		}
		result.Updated = true
		if res.Inserted {
			result.New++
		}
		if rec.Kind == models.KindReview {
			result.Reviews++
		} else {
			result.Comments++
		}
	}
	return result
}

// pause waits out the between-book delay, returning early on cancellation.
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func broadcast(hub *Hub, v any) {
	if hub != nil {
		hub.BroadcastJSON(v)
	}
}

func notifyNew(n Notifier, r BookResult) {
	if n != nil && r.New > 0 {
		n.NotifyNewReviews(r.BookID, r.New)
	}
}
