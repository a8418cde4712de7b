// Package search provides the unified search over facts, verses, and
// narrations: an inverted index with additive scoring, spelling suggestions,
// and a typo-tolerant fallback through the keyword index.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/miftah/internal/config"
	"github.com/hyperjump/miftah/internal/keyword"
	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
)

const (
	maxSuggestions  = 5
	fuzzyTitleBoost = 2.0
)

// Engine answers unified search queries.
type Engine struct {
	index  *Index
	fuzzy  keyword.KeywordIndex // optional
	spell  *keyword.SpellChecker
	config *config.SearchConfig
	logger *zap.Logger

	mu           sync.Mutex
	fuzzyVersion uint64 // index version last fed to the fuzzy index
	spellVersion uint64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for fallbacks and fuzzy index rebuilds.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a search engine over index. fuzzy may be nil, which
// disables fuzzy queries and the zero-result fallback.
func NewEngine(index *Index, fuzzy keyword.KeywordIndex, cfg *config.SearchConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		index:  index,
		fuzzy:  fuzzy,
		spell:  keyword.NewSpellChecker(index, keyword.WithMaxDistance(2)),
		config: cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Index returns the inverted index.
func (e *Engine) Index() *Index { return e.index }

// Invalidate discards the inverted index and marks the fuzzy index and
// vocabulary stale; everything is rebuilt on the next query.
func (e *Engine) Invalidate() {
	e.index.Invalidate()
	e.spell.Invalidate()
}

// Search runs query against the inverted index. Zero-result queries get
// spelling suggestions and, when enabled, are retried against the fuzzy index.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := ProcessQuery(query, e.config.MaxResults); err != nil {
		return nil, err
	}

	resp := &models.SearchResponse{Query: query.Query}
	if query.Fuzzy && e.fuzzy != nil {
		results, err := e.fuzzySearch(ctx, query)
		if err != nil {
			return nil, err
		}
		resp.Results, resp.Fuzzy = results, true
	} else {
		results, err := e.index.Search(ctx, query.Query, query.Limit, query.Kinds...)
		if err != nil {
			return nil, err
		}
		resp.Results = results
		if len(results) == 0 {
			resp.Suggestions = e.suggest(query.Query)
			if e.fuzzy != nil && e.config.FuzzyFallbackOrDefault() {
				fuzzyResults, err := e.fuzzySearch(ctx, query)
				if err != nil {
					e.logger.Warn("fuzzy fallback failed", zap.String("query", query.Query), zap.Error(err))
				} else if len(fuzzyResults) > 0 {
					e.logger.Debug("fuzzy fallback matched", zap.String("query", query.Query), zap.Int("results", len(fuzzyResults)))
					resp.Results, resp.Fuzzy = fuzzyResults, true
				}
			}
		}
	}
	if resp.Results == nil {
		resp.Results = []*models.SearchResult{}
	}
	resp.Total = len(resp.Results)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

func (e *Engine) suggest(query string) []string {
	version := e.index.Version()
	e.mu.Lock()
	if e.spellVersion != version {
		e.spell.Invalidate()
		e.spellVersion = version
	}
	e.mu.Unlock()
	return e.spell.SuggestedTerms(query, maxSuggestions)
}

func (e *Engine) fuzzySearch(ctx context.Context, query *models.SearchQuery) ([]*models.SearchResult, error) {
	if err := e.syncFuzzy(ctx); err != nil {
		return nil, err
	}
	hits, err := e.fuzzy.Search(ctx, query.Query, query.Limit, &keyword.SearchOptions{
		TitleBoost:   fuzzyTitleBoost,
		FuzzyEnabled: true,
		Fuzziness:    e.config.Fuzziness,
		Kinds:        query.Kinds,
	})
	if err != nil {
		return nil, fmt.Errorf("fuzzy search failed: %w", err)
	}
	scores := NormalizeKeywordScores(hits)
	tokens := Tokenize(query.Query)
	results := make([]*models.SearchResult, 0, len(hits))
	for _, h := range hits {
		rec, ok := e.index.Record(h.Kind, h.ID)
		if !ok {
			continue
		}
		results = append(results, &models.SearchResult{
			Kind:       rec.Kind,
			ID:         rec.ID(),
			Title:      rec.Title(),
			Content:    rec.Content(),
			Score:      scores[recordKey(h.Kind, h.ID)],
			Highlights: Highlights(rec.Content(), tokens, e.config.HighlightWindow, e.config.MaxHighlights),
			Rank:       len(results) + 1,
		})
	}
	return results, nil
}

// syncFuzzy reloads the fuzzy index when the inverted index was rebuilt
// since it was last fed.
func (e *Engine) syncFuzzy(ctx context.Context) error {
	records, version, err := e.index.Records(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fuzzyVersion == version {
		return nil
	}
	start := time.Now()
	if err := e.fuzzy.Reset(ctx); err != nil {
		return fmt.Errorf("reset fuzzy index: %w", err)
	}
	if err := e.fuzzy.IndexRecords(ctx, records); err != nil {
		return fmt.Errorf("fill fuzzy index: %w", err)
	}
	e.fuzzyVersion = version
	e.logger.Info("fuzzy index rebuilt", zap.Int("records", len(records)), zap.Duration("took", time.Since(start)))
	return nil
}
