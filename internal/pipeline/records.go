package pipeline

import (
	"cmp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/miftah/internal/models"
	"golang.org/x/text/collate"
)

// Sort keys.
const (
	SortTitle  = "title"
	SortType   = "type"
	SortLength = "length"
	SortSurah  = "surah"
	SortName   = "name"
	SortPlace  = "place"
	SortNumber = "number"
)

// Facts returns the fact pipeline. Free text matches title and notes;
// Category constrains Type.
func Facts(pageSize int) *Pipeline[models.Fact] {
	return &Pipeline[models.Fact]{
		PageSize:    pageSize,
		DefaultSort: SortTitle,
		Match: func(f models.Fact, s models.FilterState) bool {
			return matchCategory(f.Type, s.Category) && containsAny(s.SearchTerm, f.Title, f.Notes)
		},
		Sorters: map[string]Sorter[models.Fact]{
			SortTitle: func(a, b models.Fact, col *collate.Collator) int {
				return col.CompareString(a.Title, b.Title)
			},
			SortType: func(a, b models.Fact, col *collate.Collator) int {
				return col.CompareString(a.Type, b.Type)
			},
			SortLength: func(a, b models.Fact, _ *collate.Collator) int {
				return cmp.Compare(utf8.RuneCountInString(b.Notes), utf8.RuneCountInString(a.Notes))
			},
		},
	}
}

// Verses returns the verse pipeline. Free text matches the surah names and
// both texts; Surah and Place are exact constraints.
func Verses(pageSize int) *Pipeline[models.Verse] {
	return &Pipeline[models.Verse]{
		PageSize:    pageSize,
		DefaultSort: SortSurah,
		Match: func(v models.Verse, s models.FilterState) bool {
			if s.Surah > 0 && v.SurahNo != s.Surah {
				return false
			}
			return matchCategory(v.PlaceOfRevelation, s.Place) &&
				containsAny(s.SearchTerm, v.SurahNameEn, v.SurahNameAr, v.SurahNameRoman, v.AyahAr, v.AyahEn)
		},
		Sorters: map[string]Sorter[models.Verse]{
			SortSurah: func(a, b models.Verse, _ *collate.Collator) int {
				return cmp.Or(cmp.Compare(a.SurahNo, b.SurahNo), cmp.Compare(a.AyahNoSurah, b.AyahNoSurah))
			},
			SortName: func(a, b models.Verse, col *collate.Collator) int {
				return col.CompareString(a.SurahNameEn, b.SurahNameEn)
			},
			SortPlace: func(a, b models.Verse, col *collate.Collator) int {
				return col.CompareString(a.PlaceOfRevelation, b.PlaceOfRevelation)
			},
			SortLength: func(a, b models.Verse, _ *collate.Collator) int {
				return cmp.Compare(utf8.RuneCountInString(b.AyahAr), utf8.RuneCountInString(a.AyahAr))
			},
		},
	}
}

// Narrations returns the narration pipeline. Free text matches every field;
// Category constrains Collection.
func Narrations(pageSize int) *Pipeline[models.Narration] {
	return &Pipeline[models.Narration]{
		PageSize:    pageSize,
		DefaultSort: SortNumber,
		Match: func(n models.Narration, s models.FilterState) bool {
			return matchCategory(n.Collection, s.Category) &&
				containsAny(s.SearchTerm, n.ID, strconv.Itoa(n.Number), n.Text, n.Collection)
		},
		Sorters: map[string]Sorter[models.Narration]{
			SortNumber: func(a, b models.Narration, _ *collate.Collator) int {
				return cmp.Compare(a.Number, b.Number)
			},
			SortLength: func(a, b models.Narration, _ *collate.Collator) int {
				return cmp.Compare(utf8.RuneCountInString(b.Text), utf8.RuneCountInString(a.Text))
			},
		},
	}
}

// containsAny reports whether term is a case-insensitive substring of any
// field. An empty term matches everything.
func containsAny(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// matchCategory compares case-insensitively; "" and "all" mean no constraint.
func matchCategory(value, want string) bool {
	if want == "" || strings.EqualFold(want, "all") {
		return true
	}
	return strings.EqualFold(value, want)
}
