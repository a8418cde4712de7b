package search

import (
	"slices"

	"github.com/hyperjump/miftah/internal/models"
)

// ProcessQuery validates the query, applies the result cap, and drops
// duplicate kind restrictions.
func ProcessQuery(query *models.SearchQuery, maxResults int) error {
	if err := query.Validate(maxResults); err != nil {
		return err
	}
	if len(query.Kinds) > 1 {
		slices.Sort(query.Kinds)
		query.Kinds = slices.Compact(query.Kinds)
	}
	return nil
}
