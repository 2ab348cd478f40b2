// Package extract turns decoded platform JSON into normalized models. The
// functions here are pure: they take whatever json.Unmarshal produced (maps,
// lists, scalars, nil) and always return a usable value, because the external
// APIs rename and reshape fields between endpoints and versions. A field that
// cannot be found under any known key degrades to its zero value instead of
// failing the whole payload.
package extract

import (
	"time"

	"bookhub/internal/coerce"
	"bookhub/pkg/models"
)

// candidate keys tried in order; first present key wins, even if its value
// then coerces to the default.
var (
	titleKeys      = []string{"title", "work_name", "name"}
	authorKeys     = []string{"author", "authors", "author_name"}
	annotationKeys = []string{"annotation", "description", "summary"}
	ratingKeys     = []string{"rating", "average_rating", "score"}
	votersKeys     = []string{"voters", "voters_count", "votes"}
	revCountKeys   = []string{"reviews_count", "responses_count", "comments_count"}

	commentContainerKeys = []string{"reviews", "comments", "items", "data", "responses"}
	commentNestingKeys   = []string{"work", "data"}

	idKeys      = []string{"id", "review_id", "comment_id"}
	nameKeys    = []string{"user_name", "author", "user", "name", "login"}
	textKeys    = []string{"text", "content", "review_text", "comment", "message", "body"}
	dateKeys    = []string{"date", "created_at", "created", "createdAt", "dateCreated"}
	likesKeys   = []string{"likes", "likes_count", "like_count", "votes", "mark_count"}
	cRatingKeys = []string{"rating", "mark", "score"}
)

// Work extracts a work summary from a platform payload. Handles both the
// nested rating shape {"rating":{"rating":N,"voters":M}} and the flat legacy
// shape where rating and voters sit at the top level.
func Work(payload any) models.WorkSummary {
	var out models.WorkSummary

	obj, ok := payload.(map[string]any)
	if !ok {
		return out
	}
	// some endpoints wrap the work one level down
	for _, k := range commentNestingKeys {
		if inner, isMap := obj[k].(map[string]any); isMap {
			if _, hasTitle := firstPresent(inner, titleKeys); hasTitle {
				obj = inner
				break
			}
		}
	}

	if v, ok := firstPresent(obj, titleKeys); ok {
		out.Title = coerce.Str(v, "")
	}
	if v, ok := firstPresent(obj, authorKeys); ok {
		out.Author = authorName(v)
	}
	if v, ok := firstPresent(obj, annotationKeys); ok {
		out.Annotation = coerce.StripMarkup(coerce.Str(v, ""))
	}

	if nested, isMap := obj["rating"].(map[string]any); isMap {
		out.Rating = coerce.Float(nested["rating"], 0)
		if v, ok := firstPresent(nested, votersKeys); ok {
			out.VotersCount = coerce.Int(v, 0)
		}
	} else {
		if v, ok := firstPresent(obj, ratingKeys); ok {
			out.Rating = coerce.Float(v, 0)
		}
		if v, ok := firstPresent(obj, votersKeys); ok {
			out.VotersCount = coerce.Int(v, 0)
		}
	}
	if v, ok := firstPresent(obj, revCountKeys); ok {
		out.ReviewsCount = coerce.Int(v, 0)
	}
	return out
}

// MinTextLen is the shortest comment text kept after markup stripping.
// Anything shorter is platform noise (emoji-only replies, "+1", stubs).
const MinTextLen = 20

// Comments extracts comment records from a platform payload. The payload may
// be a bare list, an object holding the list under a known container key, or
// an object nesting the container one level down. workRef participates in
// synthesized IDs so records from different works never collide.
//
// Records with no text, or whose text shrinks below MinTextLen after markup
// stripping, are dropped. Comments never fails: an unrecognized shape yields
// an empty slice.
func Comments(payload any, workRef string) []models.CommentRecord {
	items := commentList(payload)
	out := make([]models.CommentRecord, 0, len(items))
	for _, raw := range items {
		if rec, ok := comment(raw, workRef); ok {
			out = append(out, rec)
		}
	}
	return out
}

func commentList(payload any) []any {
	switch t := payload.(type) {
	case []any:
		return t
	case map[string]any:
		for _, k := range commentContainerKeys {
			if list, ok := t[k].([]any); ok {
				return list
			}
		}
		// one level of nesting is tolerated
		for _, k := range commentNestingKeys {
			if inner, ok := t[k].(map[string]any); ok {
				for _, ck := range commentContainerKeys {
					if list, ok := inner[ck].([]any); ok {
						return list
					}
				}
			}
		}
	}
	return nil
}

func comment(raw any, workRef string) (models.CommentRecord, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return models.CommentRecord{}, false
	}

	var rec models.CommentRecord

	if v, ok := firstPresent(obj, textKeys); ok {
		rec.Text = coerce.StripMarkup(coerce.Str(v, ""))
	}
	if len([]rune(rec.Text)) < MinTextLen {
		return models.CommentRecord{}, false
	}

	if v, ok := firstPresent(obj, nameKeys); ok {
		rec.AuthorName = authorName(v)
	}
	if rec.AuthorName == "" {
		rec.AuthorName = "Anonymous"
	}

	if v, ok := firstPresent(obj, dateKeys); ok {
		rec.DateRaw = coerce.Str(v, "")
		rec.Date = ParseDate(rec.DateRaw)
	}

	if v, ok := firstPresent(obj, cRatingKeys); ok {
		rec.Rating = coerce.Float(v, 0)
	}
	if v, ok := firstPresent(obj, likesKeys); ok {
		rec.LikesCount = coerce.Int(v, 0)
	}

	if v, ok := firstPresent(obj, idKeys); ok {
		rec.ExternalID = coerce.Str(v, "")
	}
	if rec.ExternalID == "" {
		rec.ExternalID = models.SynthReviewID(rec.AuthorName, workRef+"|"+rec.DateRaw, rec.Text)
	}
	return rec, true
}

// authorName flattens the author shapes seen in the wild: a plain string, an
// object with a name-ish field, or a list of either (first entry wins).
func authorName(v any) string {
	switch t := v.(type) {
	case string:
		return coerce.Str(t, "")
	case map[string]any:
		for _, k := range []string{"name", "user_name", "fio", "login", "nickname"} {
			if s := coerce.Str(t[k], ""); s != "" {
				return s
			}
		}
		return ""
	case []any:
		if len(t) > 0 {
			return authorName(t[0])
		}
		return ""
	default:
		return coerce.Str(v, "")
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
}

// ParseDate is best effort: an unparseable date yields nil, the caller keeps
// the raw string.
func ParseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func firstPresent(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
