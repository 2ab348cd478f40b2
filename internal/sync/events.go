package sync

import "time"

// Events fanned out to TCP and WebSocket subscribers while a sync run is in
// flight or a user updates their reading position.

type RunStartedEvent struct {
	Type     string    `json:"type"` // "sync.started"
	Platform string    `json:"platform"`
	Books    int       `json:"books"`
	At       time.Time `json:"at"`
}

type BookSyncedEvent struct {
	Type     string    `json:"type"` // "sync.book"
	Platform string    `json:"platform"`
	BookID   int64     `json:"book_id"`
	Comments int       `json:"comments"`
	Reviews  int       `json:"reviews"`
	Rating   float64   `json:"rating"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

type RunFinishedEvent struct {
	Type    string     `json:"type"` // "sync.finished"
	Summary RunSummary `json:"summary"`
	At      time.Time  `json:"at"`
}

type ProgressEvent struct {
	Type           string    `json:"type"` // "progress.update"
	UserID         string    `json:"user_id"`
	BookID         int64     `json:"book_id"`
	CurrentSection int       `json:"current_section,omitempty"`
	Status         string    `json:"status,omitempty"`
	At             time.Time `json:"at"`
}
