package models

import (
	"fmt"
	"strings"
)

// FilterState is the user-controlled set of constraints applied to a record
// slice. Zero values mean "no constraint".
type FilterState struct {
	SearchTerm string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	Surah      int    `json:"surah,omitempty"`
	Place      string `json:"place,omitempty"`
	SortBy     string `json:"sort,omitempty"`
}

// Page is one page of a filtered and sorted record slice.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// SearchQuery represents a unified search request.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Fuzzy routes the query to the typo-tolerant keyword index.
	Fuzzy bool `json:"fuzzy,omitempty"`
	// Kinds restricts results to the given record kinds; empty means all.
	Kinds []RecordKind `json:"kinds,omitempty"`
}

// Validate ensures the search query has valid fields and sets defaults.
// maxLimit caps Limit and is used when Limit is unset.
func (q *SearchQuery) Validate(maxLimit int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if maxLimit <= 0 {
		maxLimit = 50
	}
	if q.Limit <= 0 || q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}

