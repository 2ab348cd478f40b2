package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/models"
)

func decode(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestWorkNestedRatingShape(t *testing.T) {
	payload := decode(t, `{
		"work_name": "Дорога домой",
		"rating": {"rating": "8.91", "voters": "120"}
	}`)

	w := Work(payload)
	assert.Equal(t, "Дорога домой", w.Title)
	assert.InDelta(t, 8.91, w.Rating, 1e-9)
	assert.Equal(t, 120, w.VotersCount)
}

func TestWorkFlatLegacyShape(t *testing.T) {
	payload := decode(t, `{
		"title": "Home Road",
		"author": [{"name": "V. Zykov"}],
		"average_rating": 7.2,
		"voters_count": 55,
		"responses_count": 14,
		"description": "<p>An <b>epic</b> tale.</p>"
	}`)

	w := Work(payload)
	assert.Equal(t, "Home Road", w.Title)
	assert.Equal(t, "V. Zykov", w.Author)
	assert.InDelta(t, 7.2, w.Rating, 1e-9)
	assert.Equal(t, 55, w.VotersCount)
	assert.Equal(t, 14, w.ReviewsCount)
	assert.Equal(t, "An epic tale.", w.Annotation)
}

func TestWorkUnrecognizedPayload(t *testing.T) {
	assert.Equal(t, models.WorkSummary{}, Work(nil))
	assert.Equal(t, models.WorkSummary{}, Work(decode(t, `[1,2,3]`)))
	assert.Equal(t, models.WorkSummary{}, Work(decode(t, `{"unrelated": true}`)))
}

func TestWorkNestedOneLevel(t *testing.T) {
	payload := decode(t, `{"work": {"title": "Inner", "rating": 6.5}}`)
	w := Work(payload)
	assert.Equal(t, "Inner", w.Title)
	assert.InDelta(t, 6.5, w.Rating, 1e-9)
}

const longText = "This comment is easily long enough to keep around."

func TestCommentsBareListAndContainers(t *testing.T) {
	item := `{"id": 17, "user_name": "reader1", "text": "` + longText + `", "date": "2024-03-01T10:00:00", "mark": "9", "likes": {"count": 3}}`

	shapes := []string{
		`[` + item + `]`,
		`{"reviews": [` + item + `]}`,
		`{"items": [` + item + `]}`,
		`{"work": {"comments": [` + item + `]}}`,
	}
	for _, raw := range shapes {
		recs := Comments(decode(t, raw), "w1")
		require.Len(t, recs, 1, raw)
		rec := recs[0]
		assert.Equal(t, "17", rec.ExternalID)
		assert.Equal(t, "reader1", rec.AuthorName)
		assert.Equal(t, longText, rec.Text)
		require.NotNil(t, rec.Date)
		assert.Equal(t, 2024, rec.Date.Year())
		assert.InDelta(t, 9, rec.Rating, 1e-9)
		assert.Equal(t, 3, rec.LikesCount)
	}
}

func TestCommentsDropShortAndEmptyText(t *testing.T) {
	payload := decode(t, `[
		{"id": 1, "text": "+1"},
		{"id": 2, "text": "<b></b>"},
		{"id": 3, "text": "<p>`+longText+`</p>"},
		{"id": 4}
	]`)

	recs := Comments(payload, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "3", recs[0].ExternalID)
	assert.Equal(t, longText, recs[0].Text)
}

func TestCommentsSynthesizedIDIsStable(t *testing.T) {
	raw := `[{"author": "reader2", "text": "` + longText + `", "date": "01.03.2024"}]`

	first := Comments(decode(t, raw), "w1")
	second := Comments(decode(t, raw), "w1")
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, strings.HasPrefix(first[0].ExternalID, "synth_"))
	assert.Equal(t, first[0].ExternalID, second[0].ExternalID)

	// same comment under a different work must not collide
	other := Comments(decode(t, raw), "w2")
	require.Len(t, other, 1)
	assert.NotEqual(t, first[0].ExternalID, other[0].ExternalID)
}

func TestCommentsUnparseableDateKeepsRaw(t *testing.T) {
	payload := decode(t, `[{"id": 5, "text": "`+longText+`", "created_at": "вчера вечером"}]`)
	recs := Comments(payload, "w1")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Date)
	assert.Equal(t, "вчера вечером", recs[0].DateRaw)
}

func TestCommentsMissingAuthorDefaults(t *testing.T) {
	payload := decode(t, `[{"id": 6, "text": "`+longText+`"}]`)
	recs := Comments(payload, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "Anonymous", recs[0].AuthorName)
}

func TestCommentsNeverFails(t *testing.T) {
	assert.Empty(t, Comments(nil, "w1"))
	assert.Empty(t, Comments(decode(t, `"just a string"`), "w1"))
	assert.Empty(t, Comments(decode(t, `{"total": 10}`), "w1"))
	assert.Empty(t, Comments(decode(t, `[null, 42, "str"]`), "w1"))
}
