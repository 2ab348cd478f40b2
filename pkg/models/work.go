package models

import "time"

// WorkSummary is a snapshot of a work's metadata as an external platform
// currently reports it. It is rebuilt from scratch on every fetch and
// projected onto the matching Book row; it is never stored on its own.
//
// Numeric fields are always coerced to typed zero values, never left as
// the wire representation (the platforms emit the same field as a number
// in one endpoint and a string in another).
type WorkSummary struct {
	Title        string  `json:"title"`
	Author       string  `json:"author,omitempty"`
	Annotation   string  `json:"annotation,omitempty"`
	Rating       float64 `json:"rating"`
	VotersCount  int     `json:"voters_count"`
	ReviewsCount int     `json:"reviews_count"`
}

// CommentRecord is a normalized reader comment or review extracted from an
// external platform, before reconciliation with stored rows.
//
// ExternalID is the platform-native identifier when one exists; otherwise it
// is synthesized deterministically from author+date+text prefix so repeated
// scrapes of an unchanged comment collapse to the same identifier.
// Text is always non-empty after markup stripping; records that end up empty
// or too short are dropped by the extractors and never reach storage.
type CommentRecord struct {
	ExternalID string
	AuthorName string
	Text       string
	Date       *time.Time
	// DateRaw keeps the platform's original date string when it could not
	// be parsed, so nothing is silently lost.
	DateRaw    string
	Rating     float64
	LikesCount int
	Kind       string
}
