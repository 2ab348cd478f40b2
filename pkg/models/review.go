package models

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Review kinds. FantLab only publishes full reviews; on Author.Today the
// split between short comments and long-form reviews is partly heuristic.
const (
	KindComment = "comment"
	KindReview  = "review"
)

// Platform identifiers used in the reviews natural key.
const (
	PlatformFantLab     = "fantlab"
	PlatformAuthorToday = "authortoday"
)

// Review is a stored reader comment or review scraped from an external
// platform. (ExternalID, Platform) is the natural key used for idempotent
// upserts across repeated sync runs.
type Review struct {
	ID         int64      `json:"id"`
	BookID     int64      `json:"book_id"`
	ExternalID string     `json:"external_id"`
	Platform   string     `json:"platform"`
	Kind       string     `json:"kind"`
	AuthorName string     `json:"author_name"`
	Text       string     `json:"text"`
	Date       *time.Time `json:"date,omitempty"`
	Rating     float64    `json:"rating"`
	LikesCount int        `json:"likes_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SynthReviewID derives a stable external id for comments the platform gives
// no identifier for. Author, date and a text prefix are enough to keep
// repeated scrapes of the same comment on one row while staying insensitive
// to edits further down the text.
func SynthReviewID(author, date, text string) string {
	if len(text) > 50 {
		text = text[:50]
	}
	sum := sha1.Sum([]byte(author + "|" + date + "|" + text))
	return "synth_" + hex.EncodeToString(sum[:])
}
