package htmlscrape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookhub/pkg/models"
)

const commentBody = "A long and thoughtful take on the book that is clearly worth keeping."

func TestProfileLinkComment(t *testing.T) {
	page := `<html><body>
		<div class="comment-item">
			<a href="/user12345">reader_one</a> wrote: ` + commentBody + `
			<span>2024-03-01 10:15</span>
			<span>Rating: 9</span>
			<span>[+7]</span>
		</div>
	</body></html>`

	e := New("/user")
	recs := e.Comments(page, "w1")
	require.Len(t, recs, 1)

	rec := recs[0]
	assert.Equal(t, "reader_one", rec.AuthorName)
	assert.Equal(t, commentBody, rec.Text)
	assert.Equal(t, "2024-03-01 10:15", rec.DateRaw)
	require.NotNil(t, rec.Date)
	assert.InDelta(t, 9, rec.Rating, 1e-9)
	assert.Equal(t, 7, rec.LikesCount)
	assert.Equal(t, models.KindComment, rec.Kind)
	assert.True(t, strings.HasPrefix(rec.ExternalID, "synth_"))
}

func TestNearestContainerWinsOverPageSection(t *testing.T) {
	// the comment div sits inside a much larger section; the extractor must
	// pick the small enclosing div, not the whole section text
	filler := strings.Repeat("unrelated page text ", 150)
	page := `<html><body><div class="page-section">` + filler + `
		<div class="response">
			<a href="/user1">alice</a> ` + commentBody + `
		</div>
	</div></body></html>`

	recs := New("/user").Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, commentBody, recs[0].Text)
	assert.NotContains(t, recs[0].Text, "unrelated page text")
}

func TestChromeLinksIgnored(t *testing.T) {
	page := `<html><body>
		<nav><a href="/user99">my profile</a> some navigation text long enough here</nav>
		<div class="site-header"><a href="/user99">my profile</a> header garnish text long enough</div>
		<div class="sidebar-widget"><a href="/user7">top reviewer</a> sidebar widget text long enough</div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	assert.Empty(t, recs)
}

func TestChromeStyledWrapperInsideComment(t *testing.T) {
	// the profile link sits in a menu-styled badge within a real comment
	// block; the badge is skipped on the way up, not treated as page chrome
	page := `<html><body>
		<div class="response">
			<span class="menu-item"><a href="/user1">alice</a></span> ` + commentBody + `
		</div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0].AuthorName)
	assert.Equal(t, commentBody, recs[0].Text)
}

func TestDedupeOneContainerTwoLinks(t *testing.T) {
	// reply widgets repeat the profile link inside the same comment block
	page := `<html><body>
		<div class="response">
			<a href="/user1">alice</a> ` + commentBody + `
			<a href="/user1" title="alice">reply</a>
		</div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	assert.Len(t, recs, 1)
}

func TestShortAndPlaceholderDropped(t *testing.T) {
	page := `<html><body>
		<div class="response"><a href="/user1">alice</a> nice one, this container is long enough to qualify but the comment is fine actually</div>
		<div class="response"><a href="/user2">bob</a> ok!</div>
		<div class="response"><a href="/user3">eve</a> читать полностью</div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0].AuthorName)
}

func TestReviewKindByLength(t *testing.T) {
	long := strings.Repeat("A sentence that pads the review out. ", 5)
	page := `<html><body>
		<div class="response"><a href="/user1">alice</a> ` + long + `</div>
	</body></html>`

	e := New("/user")
	recs := e.Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, models.KindReview, recs[0].Kind)

	// a higher threshold flips the same text back to a comment
	e.ReviewMinChars = 1000
	recs = e.Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, models.KindComment, recs[0].Kind)
}

func TestHeadingFallback(t *testing.T) {
	page := `<html><body>
		<h2>Отзывы читателей</h2>
		<div>
			<p>` + commentBody + `</p>
			<p>too short</p>
		</div>
		<h2>Похожие книги</h2>
		<div><p>this block comes after another heading and must be ignored entirely</p></div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "Anonymous", recs[0].AuthorName)
	assert.Equal(t, commentBody, recs[0].Text)
}

func TestBrokenMarkupNeverPanics(t *testing.T) {
	pages := []string{
		"",
		"<div><a href='/user1'>x",
		"<<<>>>",
		strings.Repeat("<div>", 50),
	}
	for _, page := range pages {
		assert.NotPanics(t, func() { New("/user").Comments(page, "w1") })
	}
}

func TestAbsoluteProfileLinks(t *testing.T) {
	page := `<html><body>
		<div class="response"><a href="https://example.org/user1">alice</a> ` + commentBody + `</div>
	</body></html>`

	recs := New("/user").Comments(page, "w1")
	require.Len(t, recs, 1)
	assert.Equal(t, "alice", recs[0].AuthorName)
}
