package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/internal/fetch"
	"bookhub/pkg/models"
)

const reviewChunk = "This review keeps going for quite a while to cross the cutoff. "

// comfortably past the review threshold
const longReview = reviewChunk + reviewChunk

func authorTodayFixture(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/account/login-by-password" {
			assert.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"token":"at-token"}`))
			return
		}

		// everything past login requires the bearer token
		if r.Header.Get("Authorization") != "Bearer at-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		switch r.URL.Path {
		case "/v1/work/201/details":
			w.Write([]byte(`{"title":"Volume One","rating":"4,5","votes":77,"annotation":"<p>The annotation.</p>"}`))
		case "/v1/work/201/comments":
			w.Write([]byte(`{"items":[
				{"id": 1, "author": {"name": "reader1"}, "text": "Short but valid comment here."},
				{"id": 2, "author": {"name": "reader2"}, "text": "` + longReview + `"}
			]}`))
		case "/v1/work/201/reviews":
			w.Write([]byte(`[{"id": 3, "author": "critic", "text": "A proper review, long enough to keep around."}]`))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestAuthorTodayRun(t *testing.T) {
	srv := httptest.NewServer(authorTodayFixture(t))
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	ctx := context.Background()
	b := models.Book{Title: "Volume One", SeriesOrder: 1, AuthorTodayWorkID: 201}
	require.NoError(t, bookRepo.Create(ctx, &b))

	api := fetch.NewClient("authortoday", srv.URL, time.Second)
	at := NewAuthorToday(bookRepo, reviewRepo, api, nil, "user", "pass", 0)

	summary := at.Run(ctx)
	require.True(t, summary.Success)
	assert.Equal(t, 1, summary.TotalBooks)
	assert.Equal(t, 1, summary.UpdatedBooks)
	// short comment stays a comment, the long one and the reviews-feed one
	// are reviews
	assert.Equal(t, 1, summary.Comments)
	assert.Equal(t, 2, summary.Reviews)

	book, err := bookRepo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, book.Rating, 1e-9)
	assert.Equal(t, 77, book.VotersCount)
	assert.Equal(t, "The annotation.", book.Annotation)

	items, err := reviewRepo.ListByBook(ctx, b.ID, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)
	kinds := map[string]int{}
	for _, it := range items {
		kinds[it.Kind]++
		assert.Equal(t, models.PlatformAuthorToday, it.Platform)
	}
	assert.Equal(t, 1, kinds[models.KindComment])
	assert.Equal(t, 2, kinds[models.KindReview])
}

func TestAuthorTodayAuthFailureAbortsRun(t *testing.T) {
	var workCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/account/login-by-password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		workCalls++
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	ctx := context.Background()
	b := models.Book{Title: "Volume One", AuthorTodayWorkID: 201}
	require.NoError(t, bookRepo.Create(ctx, &b))

	api := fetch.NewClient("authortoday", srv.URL, time.Second)
	at := NewAuthorToday(bookRepo, reviewRepo, api, nil, "user", "wrong", 0)

	summary := at.Run(ctx)
	assert.False(t, summary.Success)
	assert.Equal(t, "authentication failed", summary.Error)
	assert.Zero(t, summary.TotalBooks)
	assert.Zero(t, workCalls, "no per-book request may happen after a failed login")

	items, err := reviewRepo.ListByBook(ctx, b.ID, 50, 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestAuthorTodayConfiguredTokenSkipsLogin(t *testing.T) {
	var loginCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/account/login-by-password" {
			loginCalls++
			w.Write([]byte(`{"token":"at-token"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer preset" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	bookRepo, reviewRepo := newRepos(t)
	ctx := context.Background()
	b := models.Book{Title: "Volume One", AuthorTodayWorkID: 201}
	require.NoError(t, bookRepo.Create(ctx, &b))

	api := fetch.NewClient("authortoday", srv.URL, time.Second)
	at := NewAuthorToday(bookRepo, reviewRepo, api, nil, "", "", 0)
	at.Token = "preset"

	summary := at.Run(ctx)
	assert.True(t, summary.Success)
	assert.Zero(t, loginCalls)
}

func TestAuthorTodayMissingCredentials(t *testing.T) {
	bookRepo, reviewRepo := newRepos(t)

	api := fetch.NewClient("authortoday", "http://127.0.0.1:0", time.Second)
	at := NewAuthorToday(bookRepo, reviewRepo, api, nil, "", "", 0)

	summary := at.Run(context.Background())
	assert.False(t, summary.Success)
	assert.Equal(t, "authentication failed", summary.Error)
}
