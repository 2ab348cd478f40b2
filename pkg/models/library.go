package models

import "time"

// LibraryItem tracks a user's reading position inside one book of the series.
type LibraryItem struct {
	UserID         string    `json:"user_id"`
	BookID         int64     `json:"book_id"`
	CurrentSection int       `json:"current_section"`
	Status         string    `json:"status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProgressHistory is an append-only trail of reading positions.
type ProgressHistory struct {
	UserID  string    `json:"user_id"`
	BookID  int64     `json:"book_id"`
	Section int       `json:"section"`
	At      time.Time `json:"at"`
}
