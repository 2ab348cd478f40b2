package models

import "time"

// Book is a single title of the tracked series as stored locally.
//
// The scrapers never create or delete Book rows; they only read the
// per-platform work IDs and write back the cached external metrics
// (rating, voters_count, reviews_count, annotation).
type Book struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Author            string    `json:"author,omitempty"`
	Description       string    `json:"description,omitempty"`
	Annotation        string    `json:"annotation,omitempty"`
	SeriesOrder       int       `json:"series_order,omitempty"`
	FB2FilePath       string    `json:"fb2_file_path,omitempty"`
	FantlabWorkID     int64     `json:"fantlab_work_id,omitempty"`
	FantlabSeriesID   int64     `json:"fantlab_series_id,omitempty"`
	AuthorTodayWorkID int64     `json:"authortoday_work_id,omitempty"`
	Rating            float64   `json:"rating"`
	VotersCount       int       `json:"voters_count"`
	ReviewsCount      int       `json:"reviews_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
