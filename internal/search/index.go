package search

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
)

// Corpus provides the records the index is built from. Generation changes
// whenever previously returned records may be stale.
type Corpus interface {
	Facts(ctx context.Context) ([]models.Fact, error)
	Verses(ctx context.Context) ([]models.Verse, error)
	Narrations(ctx context.Context) ([]models.Narration, error)
	Generation() uint64
}

// IndexStats describes the current state of an Index.
type IndexStats struct {
	Built      bool      `json:"built"`
	Records    int       `json:"records"`
	Terms      int       `json:"terms"`
	Postings   int       `json:"postings"`
	Version    uint64    `json:"version"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at,omitempty"`
}

// Index is a token to postings inverted index over facts, verses, and
// narrations. It is built on the first query and rebuilt after Invalidate or
// when the corpus generation moves.
type Index struct {
	corpus        Corpus
	maxResults    int
	window        int
	maxHighlights int
	logger        *zap.Logger

	mu         sync.RWMutex
	built      bool
	postings   map[string][]models.Posting
	records    []models.Record
	byKey      map[string]models.Record
	generation uint64 // corpus generation the index was built from
	version    uint64 // number of builds
	builtAt    time.Time
}

// IndexOption configures an Index.
type IndexOption func(*Index)

// WithMaxResults caps the number of results per query.
func WithMaxResults(n int) IndexOption {
	return func(ix *Index) {
		if n > 0 {
			ix.maxResults = n
		}
	}
}

// WithHighlightWindow sets the number of runes kept on each side of a match.
func WithHighlightWindow(n int) IndexOption {
	return func(ix *Index) {
		if n >= 0 {
			ix.window = n
		}
	}
}

// WithMaxHighlights caps the number of highlights per result.
func WithMaxHighlights(n int) IndexOption {
	return func(ix *Index) {
		if n >= 0 {
			ix.maxHighlights = n
		}
	}
}

// WithIndexLogger sets the logger for build events.
func WithIndexLogger(l *zap.Logger) IndexOption {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

// NewIndex creates an unbuilt index over corpus.
func NewIndex(corpus Corpus, opts ...IndexOption) *Index {
	ix := &Index{
		corpus:        corpus,
		maxResults:    50,
		window:        20,
		maxHighlights: 3,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func recordKey(kind models.RecordKind, id string) string {
	return string(kind) + "/" + id
}

// Invalidate discards the index; the next query rebuilds it.
func (ix *Index) Invalidate() {
	ix.mu.Lock()
	ix.built = false
	ix.postings = nil
	ix.records = nil
	ix.byKey = nil
	ix.mu.Unlock()
}

// ensureBuilt builds the index unless it is current for the corpus generation.
func (ix *Index) ensureBuilt(ctx context.Context) error {
	gen := ix.corpus.Generation()
	ix.mu.RLock()
	current := ix.built && ix.generation == gen
	ix.mu.RUnlock()
	if current {
		return nil
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.built && ix.generation == gen {
		return nil
	}
	start := time.Now()
	records, err := collect(ctx, ix.corpus)
	if err != nil {
		return err
	}
	postings := make(map[string][]models.Posting)
	byKey := make(map[string]models.Record, len(records))
	total := 0
	for _, r := range records {
		byKey[recordKey(r.Kind, r.ID())] = r
		p := models.Posting{Kind: r.Kind, ID: r.ID(), Title: r.Title(), Content: r.Content(), Score: 1}
		for _, field := range r.SearchFields() {
			for _, tok := range Tokenize(field) {
				postings[tok] = append(postings[tok], p)
				total++
			}
		}
	}
	ix.postings = postings
	ix.records = records
	ix.byKey = byKey
	ix.generation = gen
	ix.version++
	ix.built = true
	ix.builtAt = time.Now()
	ix.logger.Info("search index built",
		zap.Int("records", len(records)),
		zap.Int("terms", len(postings)),
		zap.Int("postings", total),
		zap.Uint64("generation", gen),
		zap.Duration("took", time.Since(start)))
	return nil
}

func collect(ctx context.Context, c Corpus) ([]models.Record, error) {
	facts, err := c.Facts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load facts: %w", err)
	}
	verses, err := c.Verses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load verses: %w", err)
	}
	narrations, err := c.Narrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("load narrations: %w", err)
	}
	records := make([]models.Record, 0, len(facts)+len(verses)+len(narrations))
	for i := range facts {
		records = append(records, models.FactRecord(&facts[i]))
	}
	for i := range verses {
		records = append(records, models.VerseRecord(&verses[i]))
	}
	for i := range narrations {
		records = append(records, models.NarrationRecord(&narrations[i]))
	}
	return records, nil
}

// Search scores every record by the number of (query token, posting)
// matches. Results are ordered by score, ties in first-match order, and
// capped at limit (or the index maximum when limit <= 0).
func (ix *Index) Search(ctx context.Context, query string, limit int, kinds ...models.RecordKind) ([]*models.SearchResult, error) {
	if err := ix.ensureBuilt(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > ix.maxResults {
		limit = ix.maxResults
	}
	tokens := Tokenize(query)

	ix.mu.RLock()
	var (
		results []*models.SearchResult
		seen    = make(map[string]*models.SearchResult)
	)
	for _, tok := range tokens {
		for _, p := range ix.postings[tok] {
			if len(kinds) > 0 && !slices.Contains(kinds, p.Kind) {
				continue
			}
			key := recordKey(p.Kind, p.ID)
			if r, ok := seen[key]; ok {
				r.Score += float64(p.Score)
				continue
			}
			r := &models.SearchResult{Kind: p.Kind, ID: p.ID, Title: p.Title, Content: p.Content, Score: float64(p.Score)}
			seen[key] = r
			results = append(results, r)
		}
	}
	ix.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b *models.SearchResult) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	if len(results) > limit {
		results = results[:limit]
	}
	for i, r := range results {
		r.Rank = i + 1
		r.Highlights = Highlights(r.Content, tokens, ix.window, ix.maxHighlights)
	}
	return results, nil
}

// Record returns the indexed record with the given kind and id.
func (ix *Index) Record(kind models.RecordKind, id string) (models.Record, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	r, ok := ix.byKey[recordKey(kind, id)]
	return r, ok
}

// Records builds the index if needed and returns every indexed record with
// the build version they belong to.
func (ix *Index) Records(ctx context.Context) ([]models.Record, uint64, error) {
	if err := ix.ensureBuilt(ctx); err != nil {
		return nil, 0, err
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.records, ix.version, nil
}

// Version returns the number of builds so far.
func (ix *Index) Version() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// Stats returns the index state without building it.
func (ix *Index) Stats() IndexStats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := IndexStats{Built: ix.built, Version: ix.version, Generation: ix.generation}
	if !ix.built {
		return s
	}
	s.Records = len(ix.records)
	s.Terms = len(ix.postings)
	for _, ps := range ix.postings {
		s.Postings += len(ps)
	}
	s.BuiltAt = ix.builtAt
	return s
}

// GetAllTerms returns the vocabulary of the built index, sorted.
func (ix *Index) GetAllTerms() ([]string, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	terms := make([]string, 0, len(ix.postings))
	for t := range ix.postings {
		terms = append(terms, t)
	}
	slices.Sort(terms)
	return terms, nil
}

// GetTermFrequency returns the number of postings under term.
func (ix *Index) GetTermFrequency(term string) (int, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings[strings.ToLower(term)]), nil
}

// ContainsTerm reports whether term has postings.
func (ix *Index) ContainsTerm(term string) (bool, error) {
	n, err := ix.GetTermFrequency(term)
	return n > 0, err
}
