package domain

import (
	"strconv"
	"strings"
)

type FeedbackType string

const (
	FeedbackInaccuracy  FeedbackType = "inaccuracy"
	FeedbackImprovement FeedbackType = "improvement"
	FeedbackOther       FeedbackType = "other"
)

const FeedbackStatusNew = "new"

// FeedbackItem is the canonical feedback record attached to a procedure.
type FeedbackItem struct {
	ID            string       `json:"id"`
	Content       string       `json:"content"`
	Type          FeedbackType `json:"type"`
	Status        string       `json:"status"`
	LikeCount     int          `json:"likeCount"`
	DislikeCount  int          `json:"dislikeCount"`
	ProcedureID   string       `json:"procedureID"`
	CreatedAt     string       `json:"createdAT,omitempty"`
	UpdatedAt     string       `json:"updatedAT,omitempty"`
	UserID        string       `json:"userID,omitempty"`
	Tags          []string     `json:"tags,omitempty"`
	AdminResponse string       `json:"adminResponse,omitempty"`
	ViewCount     *int         `json:"viewCount,omitempty"`
}

// FeedbackPage is the canonical list response for a procedure's feedback.
type FeedbackPage struct {
	Feedbacks []FeedbackItem `json:"feedbacks"`
	Page      int            `json:"page"`
	Limit     int            `json:"limit"`
	Total     int            `json:"total"`
}

// SubmitFeedbackParams is the write-side input. The upstream wire contract
// for writes uses capitalized keys; the upstream client owns that mapping.
type SubmitFeedbackParams struct {
	ProcedureID string
	Content     string
	Type        FeedbackType
	Tags        []string
	AuthToken   string
}

// RespondFeedbackParams is the admin review update for one feedback item.
// ProcedureID is optional; when present the owning procedure's cached
// feedback pages are invalidated immediately instead of aging out.
type RespondFeedbackParams struct {
	FeedbackID    string
	ProcedureID   string
	AdminResponse string
	Status        string
	AuthToken     string
}

// NormalizeFeedbackType folds free-form and historically misspelled type
// values onto the enum. Anything unrecognized becomes "other".
func NormalizeFeedbackType(raw string) FeedbackType {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(v, "inac"):
		return FeedbackInaccuracy
	case strings.HasPrefix(v, "improv"):
		return FeedbackImprovement
	default:
		return FeedbackOther
	}
}

// FeedbackCacheKey is the cache key for one feedback list page.
func FeedbackCacheKey(procedureID string, page, limit int, status string) string {
	return strings.Join([]string{
		"feedback",
		procedureID,
		strconv.Itoa(page),
		strconv.Itoa(limit),
		status,
	}, ":")
}
