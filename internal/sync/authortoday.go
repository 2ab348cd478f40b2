package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"bookhub/internal/books"
	"bookhub/internal/coerce"
	"bookhub/internal/extract"
	"bookhub/internal/fetch"
	"bookhub/internal/htmlscrape"
	"bookhub/internal/reviews"
	"bookhub/pkg/models"
)

// reviewLenThreshold separates Author.Today short comments from long-form
// reviews when only the comments feed is available.
const reviewLenThreshold = 100

// AuthorToday syncs work metrics, comments and reviews from Author.Today.
// The API requires a bearer token, obtained by password login when not
// configured directly. A failed login aborts the whole run; it is the only
// error that does.
type AuthorToday struct {
	Books   *books.Repo
	Reviews *reviews.Repo

	API *fetch.Client
	Web *fetch.Client

	HTML   *htmlscrape.Extractor
	Hub    *Hub
	Notify Notifier

	Login    string
	Password string
	// Token short-circuits the password login when already known.
	Token string

	BookDelay time.Duration

	// OnlyBookID restricts the run to a single book when non-zero.
	OnlyBookID int64
}

func NewAuthorToday(bookRepo *books.Repo, reviewRepo *reviews.Repo, api, web *fetch.Client, login, password string, delay time.Duration) *AuthorToday {
	return &AuthorToday{
		Books:     bookRepo,
		Reviews:   reviewRepo,
		API:       api,
		Web:       web,
		HTML:      htmlscrape.New("/u/"),
		Login:     login,
		Password:  password,
		BookDelay: delay,
	}
}

func (a *AuthorToday) Run(ctx context.Context) RunSummary {
	summary := RunSummary{
		Platform:  models.PlatformAuthorToday,
		StartedAt: time.Now().UTC(),
	}

	token, ok := a.authenticate(ctx)
	if !ok {
		summary.Error = "authentication failed"
		summary.FinishedAt = time.Now().UTC()
		log.Printf("[authortoday] sync aborted: authentication failed")
		return summary
	}
	a.API.SetBearerToken(token)
	summary.Success = true

	all, err := a.Books.List(ctx)
	if err != nil {
		summary.Success = false
		summary.Error = fmt.Sprintf("list books: %v", err)
		summary.FinishedAt = time.Now().UTC()
		return summary
	}

	var linked []models.Book
	for _, b := range all {
		if b.AuthorTodayWorkID == 0 {
			continue
		}
		if a.OnlyBookID != 0 && b.ID != a.OnlyBookID {
			continue
		}
		linked = append(linked, b)
	}
	summary.TotalBooks = len(linked)

	broadcast(a.Hub, RunStartedEvent{
		Type:     "sync.started",
		Platform: models.PlatformAuthorToday,
		Books:    len(linked),
		At:       time.Now().UTC(),
	})
	log.Printf("[authortoday] sync started: %d linked books", len(linked))

	for i, b := range linked {
		if i > 0 {
			pause(ctx, a.BookDelay)
		}
		if ctx.Err() != nil {
			summary.Success = false
			summary.Error = "cancelled"
			break
		}

		result := a.syncBook(ctx, b)
		summary.add(result)
		notifyNew(a.Notify, result)

		broadcast(a.Hub, BookSyncedEvent{
			Type:     "sync.book",
			Platform: models.PlatformAuthorToday,
			BookID:   result.BookID,
			Comments: result.Comments,
			Reviews:  result.Reviews,
			Rating:   result.Rating,
			Success:  result.Success,
			Error:    result.Error,
			At:       time.Now().UTC(),
		})
	}

	summary.finish()
	broadcast(a.Hub, RunFinishedEvent{Type: "sync.finished", Summary: summary, At: summary.FinishedAt})
	log.Printf("[authortoday] sync finished: %d/%d books, %d comments, %d reviews",
		summary.UpdatedBooks, summary.TotalBooks, summary.Comments, summary.Reviews)
	return summary
}

// authenticate returns a bearer token, preferring the configured one. The
// login endpoint is the one place where a fetch failure is fatal to the run.
func (a *AuthorToday) authenticate(ctx context.Context) (string, bool) {
	if a.Token != "" {
		return a.Token, true
	}
	if a.Login == "" || a.Password == "" {
		return "", false
	}

	payload, ok := a.API.PostJSON(ctx, "/v1/account/login-by-password", map[string]string{
		"login":    a.Login,
		"password": a.Password,
	})
	if !ok {
		return "", false
	}

	obj, isMap := payload.(map[string]any)
	if !isMap {
		return "", false
	}
	token := coerce.Str(obj["token"], "")
	if token == "" {
		token = coerce.Str(obj["accessToken"], "")
	}
	return token, token != ""
}

func (a *AuthorToday) syncBook(ctx context.Context, b models.Book) BookResult {
	workRef := fmt.Sprintf("at_%d", b.AuthorTodayWorkID)

	var rating float64
	var metricsApplied bool
	if payload, ok := a.API.JSON(ctx, fmt.Sprintf("/v1/work/%d/details", b.AuthorTodayWorkID), nil); ok {
		w := extract.Work(payload)
		rating = w.Rating
		if err := a.Books.ApplyWorkMetrics(ctx, b.ID, w); err != nil {
			log.Printf("[authortoday] apply metrics for book %d: %v", b.ID, err)
		} else {
			metricsApplied = true
		}
	}

	var recs []models.CommentRecord

	if payload, ok := a.API.JSON(ctx, fmt.Sprintf("/v1/work/%d/comments", b.AuthorTodayWorkID), nil); ok {
		comments := extract.Comments(payload, workRef)
		for i := range comments {
			comments[i].Kind = classifyByLength(comments[i].Text)
		}
		recs = append(recs, comments...)
	}

	if payload, ok := a.API.JSON(ctx, fmt.Sprintf("/v1/work/%d/reviews", b.AuthorTodayWorkID), nil); ok {
		full := extract.Comments(payload, workRef+"_rev")
		for i := range full {
			full[i].Kind = models.KindReview
		}
		recs = append(recs, full...)
	}

	// both feeds empty: scrape the public work page
	if len(recs) == 0 && a.Web != nil {
		if page, ok := a.Web.HTML(ctx, fmt.Sprintf("/work/%d", b.AuthorTodayWorkID)); ok {
			recs = a.HTML.Comments(page, workRef)
			if len(recs) > 0 {
				log.Printf("[authortoday] html fallback recovered %d comments for book %d", len(recs), b.ID)
			}
		}
	}

	result := persistRecords(ctx, a.Reviews, b.ID, models.PlatformAuthorToday, recs)
	result.Rating = rating
	result.Updated = result.Updated || metricsApplied
	return result
}

func classifyByLength(text string) string {
	if len([]rune(text)) >= reviewLenThreshold {
		return models.KindReview
	}
	return models.KindComment
}
