package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// UntitledProcedure is the display placeholder used when no title field can
// be resolved from an upstream payload.
const UntitledProcedure = "Untitled Procedure"

// Procedure is the canonical record the gateway serves regardless of which
// envelope or field spelling the upstream backend used. Fields that were
// absent in the source payload stay absent (nil slices, nil pointers, empty
// strings with omitempty) instead of being defaulted to empty containers.
type Procedure struct {
	ID                string                `json:"id"`
	Title             string                `json:"title"`
	Name              string                `json:"name,omitempty"`
	Summary           string                `json:"summary,omitempty"`
	Steps             []Step                `json:"steps,omitempty"`
	DocumentsRequired []DocumentRequirement `json:"documentsRequired,omitempty"`
	Fees              []Fee                 `json:"fees,omitempty"`
	ProcessingTime    *ProcessingTime       `json:"processingTime,omitempty"`
	Tags              []string              `json:"tags,omitempty"`
	Verified          *bool                 `json:"verified,omitempty"`
	UpdatedAt         string                `json:"updatedAt,omitempty"`
	Views             *int                  `json:"views,omitempty"`
	Likes             *int                  `json:"likes,omitempty"`
}

type Step struct {
	Order         int    `json:"order"`
	Text          string `json:"text"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
	Time          string `json:"time,omitempty"`
}

// DocumentRequirement describes one document the applicant must bring.
// TemplateURL is null (not empty string) when the backend supplied none.
type DocumentRequirement struct {
	Name        string  `json:"name"`
	TemplateURL *string `json:"templateUrl"`
}

type Fee struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Label    string  `json:"label,omitempty"`
}

type ProcessingTime struct {
	MinDays *int `json:"minDays,omitempty"`
	MaxDays *int `json:"maxDays,omitempty"`
}

// ProcedureList is a normalized list response with reconciled pagination.
type ProcedureList struct {
	Procedures []Procedure `json:"procedures"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is the reconciled paging envelope. TotalPages is always >= 1.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// ProcedureListQuery carries the list filters passed through to the upstream.
type ProcedureListQuery struct {
	Page              int
	Limit             int
	Name              string
	OrganizationID    string
	GroupID           string
	MinProcessingDays int
	MaxProcessingDays int
	SortBy            string
	SortOrder         string
}

// FeeTotal renders the display total for a fee list: "Free" when there is
// nothing to pay, otherwise "<amount> <currency>" of the summed amounts.
func FeeTotal(fees []Fee) string {
	var total float64
	currency := ""
	for _, fee := range fees {
		total += fee.Amount
		if currency == "" && fee.Currency != "" {
			currency = fee.Currency
		}
	}
	if total == 0 {
		return "Free"
	}
	amount := strconv.FormatFloat(total, 'f', -1, 64)
	if currency == "" {
		return amount
	}
	return fmt.Sprintf("%s %s", amount, currency)
}

// CacheKey derives the cache key for a list query. Keys are stable for equal
// arguments so that concurrent identical requests collapse onto one fetch.
func (q ProcedureListQuery) CacheKey() string {
	parts := []string{
		"procedures",
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Limit),
		q.Name,
		q.OrganizationID,
		q.GroupID,
		strconv.Itoa(q.MinProcessingDays),
		strconv.Itoa(q.MaxProcessingDays),
		q.SortBy,
		q.SortOrder,
	}
	return strings.Join(parts, ":")
}

// ProcedureCacheKey is the detail cache key for one procedure.
func ProcedureCacheKey(id string) string {
	return "procedure:" + id
}
