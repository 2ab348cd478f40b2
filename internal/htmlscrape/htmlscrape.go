// Package htmlscrape recovers reader comments from platform HTML pages when
// the JSON endpoints come back empty or broken. It is heuristic by nature:
// candidates are located around user-profile links, scored by their enclosing
// container, and cleaned up field by field. A candidate that fails any check
// is dropped on its own; the extractor itself never fails and at worst
// returns an empty slice.
package htmlscrape

import (
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"bookhub/internal/coerce"
	"bookhub/internal/extract"
	"bookhub/pkg/models"
)

const (
	// minTextLen matches the JSON extractor threshold.
	minTextLen = 20
	// minContainerLen filters out bare profile links with no comment around
	// them (vote widgets, follower lists).
	minContainerLen = 30
	// maxAncestorHops bounds the upward walk from a profile link to its
	// comment container.
	maxAncestorHops = 5

	defaultReviewMinChars = 100
)

// class/id tokens that mark page chrome rather than content.
var chromeTokens = []string{"nav", "menu", "header", "footer", "sidebar"}

// Extractor pulls comment records out of a rendered platform page.
type Extractor struct {
	// ProfilePathPrefixes are href prefixes that identify a link to a user
	// profile, e.g. "/user" on FantLab or "/u/" on Author.Today.
	ProfilePathPrefixes []string
	// ReviewMinChars separates long-form reviews from short comments.
	ReviewMinChars int
}

// New builds an extractor for the given profile link prefixes.
func New(profilePrefixes ...string) *Extractor {
	return &Extractor{
		ProfilePathPrefixes: profilePrefixes,
		ReviewMinChars:      defaultReviewMinChars,
	}
}

// Comments extracts comment records from page. workRef participates in the
// synthesized IDs so the same comment text under different works never
// collides.
func (e *Extractor) Comments(page, workRef string) []models.CommentRecord {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		log.Printf("[htmlscrape] parse failed: %v", err)
		return nil
	}

	recs := e.fromProfileLinks(doc, workRef)
	if len(recs) == 0 {
		recs = e.fromHeadings(doc, workRef)
	}
	return recs
}

// fromProfileLinks is the primary strategy: every anchor pointing at a user
// profile is assumed to sit inside that user's comment. The enclosing
// container is found by walking up a bounded number of ancestors; the nearest
// ancestor with enough text wins, so a short comment block inside a huge page
// section is preferred over the section itself.
func (e *Extractor) fromProfileLinks(doc *goquery.Document, workRef string) []models.CommentRecord {
	var out []models.CommentRecord
	seen := make(map[*html.Node]bool)

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !e.isProfileLink(href) {
			return
		}

		author := coerce.CollapseWhitespace(a.Text())
		if author == "" {
			author, _ = a.Attr("title")
			author = coerce.CollapseWhitespace(author)
		}
		if author == "" {
			return
		}

		container := findContainer(a)
		if container == nil {
			return
		}
		node := container.Get(0)
		if seen[node] {
			return
		}
		seen[node] = true

		if rec, ok := e.buildRecord(author, container.Text(), workRef); ok {
			out = append(out, rec)
		}
	})
	return out
}

// fromHeadings is the fallback strategy for pages without profile links:
// blocks following a reviews/comments heading are treated as anonymous
// comment candidates.
func (e *Extractor) fromHeadings(doc *goquery.Document, workRef string) []models.CommentRecord {
	var out []models.CommentRecord

	doc.Find("h1, h2, h3, h4").Each(func(_ int, h *goquery.Selection) {
		title := strings.ToLower(h.Text())
		if !strings.Contains(title, "отзыв") && !strings.Contains(title, "коммент") &&
			!strings.Contains(title, "review") && !strings.Contains(title, "comment") {
			return
		}
		h.NextUntil("h1, h2, h3, h4").Each(func(_ int, block *goquery.Selection) {
			candidates := block.Find("div, p, li")
			if candidates.Length() == 0 {
				candidates = block
			}
			candidates.Each(func(_ int, c *goquery.Selection) {
				// leaf blocks only, nested containers are visited on their own
				if c.Find("div, p, li").Length() > 0 {
					return
				}
				author := "Anonymous"
				if link := c.Find("a").First(); link.Length() > 0 {
					if s := coerce.CollapseWhitespace(link.Text()); s != "" {
						author = s
					}
				}
				if rec, ok := e.buildRecord(author, c.Text(), workRef); ok {
					out = append(out, rec)
				}
			})
		})
	})
	return out
}

func (e *Extractor) isProfileLink(href string) bool {
	href = strings.TrimSpace(href)
	// tolerate absolute links to the same paths
	if i := strings.Index(href, "://"); i >= 0 {
		if j := strings.Index(href[i+3:], "/"); j >= 0 {
			href = href[i+3+j:]
		} else {
			return false
		}
	}
	for _, prefix := range e.ProfilePathPrefixes {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

// findContainer walks up from a profile link looking for the comment block it
// belongs to. A chrome element (nav, header, footer, aside) disqualifies the
// candidate outright: a profile link in the page header is not a comment.
// An ancestor that merely carries chrome-styled class/id tokens is skipped
// instead, so a link wrapped in a "menu-item" badge inside a genuine comment
// still resolves to the comment block around it.
func findContainer(a *goquery.Selection) *goquery.Selection {
	cur := a
	for i := 0; i < maxAncestorHops; i++ {
		cur = cur.Parent()
		if cur.Length() == 0 {
			return nil
		}
		name := goquery.NodeName(cur)
		if name == "nav" || name == "header" || name == "footer" || name == "aside" {
			return nil
		}
		if name == "body" || name == "html" {
			return nil
		}
		if hasChromeToken(cur) {
			continue
		}
		text := coerce.CollapseWhitespace(cur.Text())
		if len([]rune(text)) >= minContainerLen {
			return cur
		}
	}
	return nil
}

func hasChromeToken(s *goquery.Selection) bool {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	attrs := strings.ToLower(class + " " + id)
	for _, token := range chromeTokens {
		if strings.Contains(attrs, token) {
			return true
		}
	}
	return false
}

var (
	isoDateRe    = regexp.MustCompile(`\d{4}-\d{2}-\d{2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?`)
	dottedDateRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}(?: \d{2}:\d{2})?`)
	ratingRe     = regexp.MustCompile(`(?i)(?:rating|оценка)[:\s]+(\d{1,2})`)
	likesRe      = regexp.MustCompile(`\[([+-]\d+)\]|(\d+)\s+likes`)
	wroteRe      = regexp.MustCompile(`^(?:wrote|said|noted|написал(?:а)?|пишет)[:,]?\s+`)

	readMorePlaceholders = []string{"read more", "читать дальше", "читать полностью", "показать полностью"}
)

// buildRecord cleans one candidate's text down to the comment body, pulling
// out date, rating and likes along the way. Returns false when what remains
// is too short to be a real comment.
func (e *Extractor) buildRecord(author, rawText, workRef string) (models.CommentRecord, bool) {
	text := coerce.CollapseWhitespace(rawText)

	// the container usually echoes the author name before the body
	if strings.HasPrefix(text, author) {
		text = strings.TrimSpace(text[len(author):])
	}
	text = wroteRe.ReplaceAllString(text, "")

	var rec models.CommentRecord
	rec.AuthorName = author

	if m := isoDateRe.FindString(text); m != "" {
		rec.DateRaw = m
		text = strings.Replace(text, m, " ", 1)
	} else if m := dottedDateRe.FindString(text); m != "" {
		rec.DateRaw = m
		text = strings.Replace(text, m, " ", 1)
	}
	rec.Date = extract.ParseDate(rec.DateRaw)

	if m := ratingRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= 10 {
			rec.Rating = float64(n)
			text = strings.Replace(text, m[0], " ", 1)
		}
	}

	if m := likesRe.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(raw, "+")); err == nil {
			rec.LikesCount = n
			text = strings.Replace(text, m[0], " ", 1)
		}
	}

	text = coerce.CollapseWhitespace(text)
	if len([]rune(text)) < minTextLen {
		return models.CommentRecord{}, false
	}
	lower := strings.ToLower(text)
	for _, placeholder := range readMorePlaceholders {
		if lower == placeholder {
			return models.CommentRecord{}, false
		}
	}

	rec.Text = text
	minChars := e.ReviewMinChars
	if minChars <= 0 {
		minChars = defaultReviewMinChars
	}
	if len([]rune(text)) >= minChars {
		rec.Kind = models.KindReview
	} else {
		rec.Kind = models.KindComment
	}
	rec.ExternalID = models.SynthReviewID(author, workRef+"|"+rec.DateRaw, rec.Text)
	return rec, true
}
