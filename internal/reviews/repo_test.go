package reviews

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/database"
	"bookhub/pkg/models"
)

func newBook(t *testing.T, repo *Repo, title string) int64 {
	t.Helper()
	res, err := repo.DB.Exec(`INSERT INTO books (title) VALUES (?)`, title)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

func TestUpsertInsertThenUpdate(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	bookID := newBook(t, repo, "Volume One")

	date := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := models.CommentRecord{
		ExternalID: "17",
		AuthorName: "reader1",
		Text:       "A thoughtful comment about the book, long enough.",
		Date:       &date,
		Rating:     9,
		LikesCount: 5,
	}

	res, err := repo.Upsert(ctx, bookID, models.PlatformFantLab, rec)
	require.NoError(t, err)
	assert.True(t, res.Inserted)

	// same comment again, likes moved 5 -> 9
	rec.LikesCount = 9
	res, err = repo.Upsert(ctx, bookID, models.PlatformFantLab, rec)
	require.NoError(t, err)
	assert.True(t, res.Updated)

	items, err := repo.ListByBook(ctx, bookID, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 9, items[0].LikesCount)
	assert.Equal(t, "reader1", items[0].AuthorName)
}

func TestUpsertSameIDDifferentPlatforms(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	bookID := newBook(t, repo, "Volume One")

	rec := models.CommentRecord{
		ExternalID: "42",
		AuthorName: "reader1",
		Text:       "The same numeric id can exist on both platforms.",
	}

	_, err := repo.Upsert(ctx, bookID, models.PlatformFantLab, rec)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, bookID, models.PlatformAuthorToday, rec)
	require.NoError(t, err)

	items, err := repo.ListByBook(ctx, bookID, 50, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestUpsertDefaultsKind(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	bookID := newBook(t, repo, "Volume One")

	_, err := repo.Upsert(ctx, bookID, models.PlatformFantLab, models.CommentRecord{
		ExternalID: "1",
		Text:       "No kind set on this record, storage defaults it.",
	})
	require.NoError(t, err)

	items, err := repo.ListByBook(ctx, bookID, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.KindComment, items[0].Kind)
}

func TestListByBookRecentFirst(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	bookID := newBook(t, repo, "Volume One")

	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, rec := range []models.CommentRecord{
		{ExternalID: "a", Text: "the older comment, still long enough to keep", Date: &old},
		{ExternalID: "b", Text: "the newer comment, still long enough to keep", Date: &recent},
	} {
		_, err := repo.Upsert(ctx, bookID, models.PlatformFantLab, rec)
		require.NoError(t, err)
	}

	items, err := repo.ListByBook(ctx, bookID, 50, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ExternalID)
	assert.Equal(t, "a", items[1].ExternalID)
}

func TestAverages(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	b1 := newBook(t, repo, "Volume One")
	b2 := newBook(t, repo, "Volume Two")

	recs := []struct {
		book   int64
		id     string
		rating float64
	}{
		{b1, "1", 8},
		{b1, "2", 10},
		{b1, "3", 0}, // unrated, excluded
		{b2, "4", 6},
	}
	for _, rec := range recs {
		_, err := repo.Upsert(ctx, rec.book, models.PlatformFantLab, models.CommentRecord{
			ExternalID: rec.id,
			Text:       "a comment body that is long enough to be kept",
			Rating:     rec.rating,
		})
		require.NoError(t, err)
	}

	avg, n, err := repo.BookAverageRating(ctx, b1)
	require.NoError(t, err)
	assert.InDelta(t, 9, avg, 1e-9)
	assert.Equal(t, 2, n)

	avg, n, err = repo.SeriesAverageRating(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8, avg, 1e-9)
	assert.Equal(t, 3, n)
}
