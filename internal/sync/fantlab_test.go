package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/books"
	"bookhub/internal/fetch"
	"bookhub/internal/reviews"
	"bookhub/pkg/database"
	"bookhub/pkg/models"
)

const longResponse = "An elaborate response that easily clears the minimum length threshold for keeping."

func newRepos(t *testing.T) (*books.Repo, *reviews.Repo) {
	t.Helper()
	db := database.OpenTest(t)
	return books.NewRepo(db), reviews.NewRepo(db)
}

func seedLinkedBooks(t *testing.T, repo *books.Repo) (int64, int64) {
	t.Helper()
	ctx := context.Background()
	b1 := models.Book{Title: "Volume One", SeriesOrder: 1, FantlabWorkID: 101, FantlabSeriesID: 999}
	b2 := models.Book{Title: "Volume Two", SeriesOrder: 2, FantlabWorkID: 102}
	require.NoError(t, repo.Create(ctx, &b1))
	require.NoError(t, repo.Create(ctx, &b2))
	return b1.ID, b2.ID
}

func fantlabFixture() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/work/101":
			w.Write([]byte(`{"work_name":"Volume One","rating":{"rating":"8.91","voters":"120"}}`))
		case "/work/101/responses":
			w.Write([]byte(`[
				{"id": 11, "user_name": "reader1", "text": "` + longResponse + `", "mark": 9, "likes": 5},
				{"id": 12, "user_name": "reader2", "text": "+1"}
			]`))
		case "/work/999/responses":
			w.Write([]byte(`[{"id": 90, "user_name": "serieswatcher", "text": "` + longResponse + `"}]`))
		case "/work102":
			// html fallback page for the second book
			w.Write([]byte(`<html><body>
				<div class="response"><a href="/user7">bob</a> ` + longResponse + `</div>
			</body></html>`))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestFantLabRun(t *testing.T) {
	srv := httptest.NewServer(fantlabFixture())
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	b1, b2 := seedLinkedBooks(t, bookRepo)

	api := fetch.NewClient("fantlab", srv.URL, time.Second)
	web := fetch.NewClient("fantlab-web", srv.URL, time.Second)
	fl := NewFantLab(bookRepo, reviewRepo, api, web, 0)

	summary := fl.Run(context.Background())
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.TotalBooks)
	assert.Equal(t, 2, summary.UpdatedBooks)

	// metrics landed on the first book
	ctx := context.Background()
	book, err := bookRepo.GetByID(ctx, b1)
	require.NoError(t, err)
	assert.InDelta(t, 8.91, book.Rating, 1e-9)
	assert.Equal(t, 120, book.VotersCount)

	// the short "+1" response was dropped, the series response was attached
	// to the first book with a distinguishing id
	items, err := reviewRepo.ListByBook(ctx, b1, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	ids := []string{items[0].ExternalID, items[1].ExternalID}
	assert.Contains(t, ids, "11")
	assert.Contains(t, ids, "series_90")

	// second book had no JSON responses; the html fallback recovered one
	items, err = reviewRepo.ListByBook(ctx, b2, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "bob", items[0].AuthorName)
	assert.True(t, strings.HasPrefix(items[0].ExternalID, "synth_"))
}

func TestFantLabRunIsIdempotent(t *testing.T) {
	srv := httptest.NewServer(fantlabFixture())
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	b1, b2 := seedLinkedBooks(t, bookRepo)

	api := fetch.NewClient("fantlab", srv.URL, time.Second)
	web := fetch.NewClient("fantlab-web", srv.URL, time.Second)
	fl := NewFantLab(bookRepo, reviewRepo, api, web, 0)

	fl.Run(context.Background())
	fl.Run(context.Background())

	ctx := context.Background()
	items, err := reviewRepo.ListByBook(ctx, b1, 50, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	items, err = reviewRepo.ListByBook(ctx, b2, 50, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFantLabBrokenPlatformStillSucceedsPerBook(t *testing.T) {
	// everything 500s; the run completes with zero updates rather than
	// failing
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	b1, _ := seedLinkedBooks(t, bookRepo)

	api := fetch.NewClient("fantlab", srv.URL, time.Second)
	fl := NewFantLab(bookRepo, reviewRepo, api, nil, 0)

	summary := fl.Run(context.Background())
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.TotalBooks)
	// nothing was written, so nothing counts as updated
	assert.Zero(t, summary.UpdatedBooks)
	assert.Zero(t, summary.Comments)
	assert.Zero(t, summary.Reviews)

	items, err := reviewRepo.ListByBook(context.Background(), b1, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFantLabSingleBookRun(t *testing.T) {
	srv := httptest.NewServer(fantlabFixture())
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	b1, b2 := seedLinkedBooks(t, bookRepo)

	api := fetch.NewClient("fantlab", srv.URL, time.Second)
	web := fetch.NewClient("fantlab-web", srv.URL, time.Second)
	fl := NewFantLab(bookRepo, reviewRepo, api, web, 0)
	fl.OnlyBookID = b2

	summary := fl.Run(context.Background())
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.TotalBooks)

	// the first book was not touched: no responses, no series attachment
	ctx := context.Background()
	items, err := reviewRepo.ListByBook(ctx, b1, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = reviewRepo.ListByBook(ctx, b2, 50, 0)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFantLabSkipsUnlinkedBooks(t *testing.T) {
	srv := httptest.NewServer(fantlabFixture())
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	unlinked := models.Book{Title: "Side Story"}
	require.NoError(t, bookRepo.Create(context.Background(), &unlinked))

	api := fetch.NewClient("fantlab", srv.URL, time.Second)
	fl := NewFantLab(bookRepo, reviewRepo, api, nil, 0)

	summary := fl.Run(context.Background())
	assert.True(t, summary.Success)
	assert.Zero(t, summary.TotalBooks)
}
