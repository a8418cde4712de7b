package keyword

import (
	"cmp"
	"slices"
	"strings"
	"sync"
)

// Suggestion represents a spelling suggestion with its score.
type Suggestion struct {
	Term      string  // The suggested term
	Distance  int     // Edit distance from the original term
	Frequency int     // Postings count (popularity)
	Score     float64 // Combined score for ranking
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// SpellChecker suggests vocabulary terms close to unknown query terms.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int

	mu         sync.RWMutex
	terms      []string
	termSet    map[string]struct{}
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores vocabulary terms seen fewer than f times.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a SpellChecker over dict.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Invalidate forces the vocabulary to be reloaded on next use.
func (s *SpellChecker) Invalidate() {
	s.mu.Lock()
	s.cacheValid = false
	s.mu.Unlock()
}

// RefreshCache reloads the vocabulary from the dictionary.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[strings.ToLower(t)] = struct{}{}
	}
	s.mu.Lock()
	s.terms = terms
	s.termSet = set
	s.cacheValid = true
	s.mu.Unlock()
	return nil
}

func (s *SpellChecker) ensureCache() error {
	s.mu.RLock()
	valid := s.cacheValid
	s.mu.RUnlock()
	if valid {
		return nil
	}
	return s.RefreshCache()
}

// Check replaces every unknown query term by its best suggestion, if any.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	if err := s.ensureCache(); err != nil {
		return nil, err
	}
	result := &SpellCheckResult{OriginalQuery: query}
	terms := tokenizeQuery(query)
	corrected := make([]string, 0, len(terms))
	for _, term := range terms {
		if !s.IsMisspelled(term) {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns vocabulary terms within the edit distance of term, best
// first: closer terms win, then more frequent ones, then alphabetical order.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if err := s.ensureCache(); err != nil {
		return nil
	}
	term = strings.ToLower(term)
	s.mu.RLock()
	terms := s.terms
	s.mu.RUnlock()

	var suggestions []Suggestion
	for _, candidate := range terms {
		lower := strings.ToLower(candidate)
		if lower == term {
			continue
		}
		dist, ok := WithinDistance(term, lower, s.maxDistance)
		if !ok {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(candidate)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      candidate,
			Distance:  dist,
			Frequency: freq,
			Score:     float64(freq) / float64(dist+1),
		})
	}
	slices.SortFunc(suggestions, func(a, b Suggestion) int {
		return cmp.Or(
			cmp.Compare(a.Distance, b.Distance),
			cmp.Compare(b.Frequency, a.Frequency),
			strings.Compare(a.Term, b.Term),
		)
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether term is absent from the vocabulary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if err := s.ensureCache(); err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.termSet[strings.ToLower(term)]
	return !ok
}

// SuggestedTerms returns up to n distinct suggested terms for the query's
// misspelled terms, best first.
func (s *SpellChecker) SuggestedTerms(query string, n int) []string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return nil
	}
	out := make([]string, 0, n)
	seen := make(map[string]struct{})
	for _, sg := range result.Suggestions {
		if len(out) == n {
			break
		}
		if _, dup := seen[sg.Term]; dup {
			continue
		}
		seen[sg.Term] = struct{}{}
		out = append(out, sg.Term)
	}
	return out
}
