// Package pipeline filters, sorts, and paginates in-memory record slices.
// Every operation is a pure function of its inputs; record slices are never
// mutated.
package pipeline

import (
	"slices"

	"github.com/hyperjump/miftah/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sorter orders two records. col compares display strings the way a reader
// expects (case-insensitive, locale-aware).
type Sorter[T any] func(a, b T, col *collate.Collator) int

// Pipeline is the filter, sort, paginate chain for one record type.
type Pipeline[T any] struct {
	PageSize    int
	Match       func(T, models.FilterState) bool
	Sorters     map[string]Sorter[T]
	DefaultSort string
}

// Filter returns the records passing every active constraint of state.
func (p *Pipeline[T]) Filter(records []T, state models.FilterState) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if p.Match == nil || p.Match(r, state) {
			out = append(out, r)
		}
	}
	return out
}

// Sort returns a sorted copy of records. Unknown keys use DefaultSort.
// Ties keep their input order.
func (p *Pipeline[T]) Sort(records []T, sortBy string) []T {
	out := slices.Clone(records)
	less, ok := p.Sorters[sortBy]
	if !ok {
		less, ok = p.Sorters[p.DefaultSort]
	}
	if !ok {
		return out
	}
	col := collate.New(language.English, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b T) int { return less(a, b, col) })
	return out
}

// Paginate returns page of records. Pages outside [1, TotalPages] yield page 1.
func (p *Pipeline[T]) Paginate(records []T, page int) models.Page[T] {
	size := p.pageSize()
	total := TotalPages(len(records), size)
	if page < 1 || page > total {
		page = 1
	}
	start := min((page-1)*size, len(records))
	end := min(start+size, len(records))
	items := make([]T, end-start)
	copy(items, records[start:end])
	return models.Page[T]{
		Items:      items,
		Page:       page,
		PageSize:   size,
		TotalPages: total,
		Total:      len(records),
	}
}

// Apply runs Filter, Sort, and Paginate.
func (p *Pipeline[T]) Apply(records []T, state models.FilterState, page int) models.Page[T] {
	return p.Paginate(p.Sort(p.Filter(records, state), state.SortBy), page)
}

// All runs Filter and Sort without paginating.
func (p *Pipeline[T]) All(records []T, state models.FilterState) []T {
	return p.Sort(p.Filter(records, state), state.SortBy)
}

// SortKeys returns the supported sort keys, default first.
func (p *Pipeline[T]) SortKeys() []string {
	keys := make([]string, 0, len(p.Sorters))
	keys = append(keys, p.DefaultSort)
	for k := range p.Sorters {
		if k != p.DefaultSort {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[1:])
	return keys
}

func (p *Pipeline[T]) pageSize() int {
	if p.PageSize < 1 {
		return 1
	}
	return p.PageSize
}

// TotalPages returns ceil(n/size), at least 1.
func TotalPages(n, size int) int {
	if size < 1 {
		size = 1
	}
	if n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// JumpToPage accepts requested iff it lies in [1, totalPages].
func JumpToPage(requested, totalPages int) (int, bool) {
	if requested < 1 || requested > totalPages {
		return 0, false
	}
	return requested, true
}
