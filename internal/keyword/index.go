// Package keyword provides the typo-tolerant keyword index and spelling suggestions.
package keyword

import (
	"context"

	"github.com/hyperjump/miftah/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from title matches. Use 1.0 for no boost.
	TitleBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2). Default 2.
	Fuzziness int
	// Kinds restricts hits to the given record kinds; empty means all.
	Kinds []models.RecordKind
}

// KeywordIndex defines keyword search operations over records.
type KeywordIndex interface {
	IndexRecords(ctx context.Context, records []models.Record) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// Reset drops every document.
	Reset(ctx context.Context) error
	Close() error
	DocCount() (uint64, error)
}

// KeywordResult is a single keyword search hit.
type KeywordResult struct {
	Kind  models.RecordKind
	ID    string
	Score float64
}

// TermDictionary provides access to an index vocabulary for spell checking.
type TermDictionary interface {
	// GetAllTerms returns all unique terms in the index.
	GetAllTerms() ([]string, error)
	// GetTermFrequency returns the number of postings for a term.
	GetTermFrequency(term string) (int, error)
	// ContainsTerm checks if a term exists in the index.
	ContainsTerm(term string) (bool, error)
}
