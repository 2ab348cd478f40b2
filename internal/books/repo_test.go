package books

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/database"
	"bookhub/pkg/models"
)

func seed(t *testing.T, repo *Repo) []models.Book {
	t.Helper()
	ctx := context.Background()
	in := []models.Book{
		{Title: "Volume Two", Author: "V. Zykov", SeriesOrder: 2},
		{Title: "Volume One", Author: "V. Zykov", SeriesOrder: 1, Description: "the beginning of the road"},
		{Title: "Volume Three", Author: "V. Zykov", SeriesOrder: 3},
	}
	for i := range in {
		require.NoError(t, repo.Create(ctx, &in[i]))
		require.NotZero(t, in[i].ID)
	}
	return in
}

func TestListOrderedBySeriesOrder(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	seed(t, repo)

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Volume One", got[0].Title)
	assert.Equal(t, "Volume Two", got[1].Title)
	assert.Equal(t, "Volume Three", got[2].Title)
}

func TestGetByIDMissingReturnsNil(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))

	b, err := repo.GetByID(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestSearchOverTitleAuthorDescription(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	seed(t, repo)
	ctx := context.Background()

	byTitle, err := repo.Search(ctx, "volume two")
	require.NoError(t, err)
	require.Len(t, byTitle, 1)
	assert.Equal(t, "Volume Two", byTitle[0].Title)

	byAuthor, err := repo.Search(ctx, "zykov")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 3)

	byDescription, err := repo.Search(ctx, "beginning of the road")
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "Volume One", byDescription[0].Title)
}

func TestApplyWorkMetricsLastWriteWins(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	in := seed(t, repo)
	ctx := context.Background()
	id := in[0].ID

	require.NoError(t, repo.ApplyWorkMetrics(ctx, id, models.WorkSummary{
		Rating: 8.91, VotersCount: 120, ReviewsCount: 14, Annotation: "first snapshot",
	}))
	require.NoError(t, repo.ApplyWorkMetrics(ctx, id, models.WorkSummary{
		Rating: 7.5, VotersCount: 130, ReviewsCount: 15,
	}))

	b, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.InDelta(t, 7.5, b.Rating, 1e-9)
	assert.Equal(t, 130, b.VotersCount)
	assert.Equal(t, 15, b.ReviewsCount)
	// empty annotation in the second snapshot does not erase the stored one
	assert.Equal(t, "first snapshot", b.Annotation)
}

func TestSetExternalIDsPartial(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	in := seed(t, repo)
	ctx := context.Background()
	id := in[0].ID

	require.NoError(t, repo.SetExternalIDs(ctx, id, 1487580, 0, 0))
	require.NoError(t, repo.SetExternalIDs(ctx, id, 0, 55327, 92210))

	b, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, int64(1487580), b.FantlabWorkID)
	assert.Equal(t, int64(55327), b.FantlabSeriesID)
	assert.Equal(t, int64(92210), b.AuthorTodayWorkID)
}
