package library

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/database"
	"bookhub/pkg/models"
)

func fixtures(t *testing.T, repo *Repo) (userID string, bookID int64) {
	t.Helper()
	_, err := repo.DB.Exec(`INSERT INTO users (id, username, email, password_hash) VALUES ('u1', 'reader', 'r@example.org', 'x')`)
	require.NoError(t, err)
	res, err := repo.DB.Exec(`INSERT INTO books (title) VALUES ('Volume One')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return "u1", id
}

func TestUpsertThenGet(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	userID, bookID := fixtures(t, repo)

	require.NoError(t, repo.Upsert(ctx, models.LibraryItem{
		UserID: userID, BookID: bookID, CurrentSection: 3, Status: "reading",
	}))
	require.NoError(t, repo.Upsert(ctx, models.LibraryItem{
		UserID: userID, BookID: bookID, CurrentSection: 7, Status: "reading",
	}))

	it, err := repo.Get(ctx, userID, bookID)
	require.NoError(t, err)
	require.NotNil(t, it)
	assert.Equal(t, 7, it.CurrentSection)

	// the upsert keeps a single row per (user, book)
	items, total, err := repo.List(ctx, userID, "", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, items, 1)
}

func TestListFilterByStatus(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	userID, bookID := fixtures(t, repo)
	res, err := repo.DB.Exec(`INSERT INTO books (title) VALUES ('Volume Two')`)
	require.NoError(t, err)
	book2, _ := res.LastInsertId()

	require.NoError(t, repo.Upsert(ctx, models.LibraryItem{UserID: userID, BookID: bookID, Status: "completed"}))
	require.NoError(t, repo.Upsert(ctx, models.LibraryItem{UserID: userID, BookID: book2, Status: "reading"}))

	items, total, err := repo.List(ctx, userID, "completed", 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, bookID, items[0].BookID)
}

func TestHistoryAppendOnly(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	userID, bookID := fixtures(t, repo)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, section := range []int{1, 2, 5} {
		require.NoError(t, repo.AddHistory(ctx, models.ProgressHistory{
			UserID: userID, BookID: bookID, Section: section,
			At: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, total, err := repo.ListHistory(ctx, userID, bookID, 50, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	// newest first
	assert.Equal(t, 5, items[0].Section)
	assert.Equal(t, 1, items[2].Section)
}

func TestDeleteMissingReturnsFalse(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	userID, bookID := fixtures(t, repo)

	ok, err := repo.Delete(context.Background(), userID, bookID)
	require.NoError(t, err)
	assert.False(t, ok)
}
