package keyword

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/miftah/internal/models"
)

const docIDSep = "/"

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	path  string
	mu    sync.RWMutex
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path keeps
// the index in memory.
func NewBleveIndex(path string) (*BleveIndex, error) {
	index, err := openIndex(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{path: path, index: index}, nil
}

func buildMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so Arabic and
	// transliterated names survive intact.
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("kind", bleve.NewKeywordFieldMapping())
	im.AddDocumentMapping("record", docMapping)
	im.DefaultType = "record"
	im.DefaultMapping = docMapping
	return im
}

func openIndex(path string) (bleve.Index, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(buildMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return index, nil
	}
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return index, nil
	}
	index, err := bleve.New(path, buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return index, nil
}

func docID(kind models.RecordKind, id string) string {
	return string(kind) + docIDSep + id
}

func splitDocID(s string) (models.RecordKind, string) {
	kind, id, _ := strings.Cut(s, docIDSep)
	return models.RecordKind(kind), id
}

// IndexRecords indexes records in one batch.
func (b *BleveIndex) IndexRecords(ctx context.Context, records []models.Record) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	batch := b.index.NewBatch()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		doc := map[string]interface{}{
			"kind":    string(r.Kind),
			"title":   r.Title(),
			"content": strings.Join(r.SearchFields(), " "),
		}
		if err := batch.Index(docID(r.Kind, r.ID()), doc); err != nil {
			return fmt.Errorf("failed to batch %s %s: %w", r.Kind, r.ID(), err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to index batch: %w", err)
	}
	return nil
}

// Reset drops every document. On-disk indices are deleted and recreated.
func (b *BleveIndex) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("failed to close Bleve index: %w", err)
	}
	if b.path != "" {
		if err := os.RemoveAll(b.path); err != nil {
			return fmt.Errorf("failed to remove Bleve index: %w", err)
		}
	}
	index, err := openIndex(b.path)
	if err != nil {
		return err
	}
	b.index = index
	return nil
}

// Search runs a match (or fuzzy) query and returns up to limit results.
// When opts.TitleBoost > 1, title and content are queried separately and
// merged additively, with documents matching fewer query terms penalized.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if opts == nil {
		opts = &SearchOptions{}
	}
	fuzziness := opts.Fuzziness
	if fuzziness <= 0 {
		fuzziness = 2
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if opts.TitleBoost <= 1.0 {
		return b.searchSingle(query, limit, opts, fuzziness)
	}
	return b.searchWithBoost(query, limit, opts, fuzziness)
}

func (b *BleveIndex) searchSingle(query string, limit int, opts *SearchOptions, fuzziness int) ([]*KeywordResult, error) {
	req := bleve.NewSearchRequest(b.restrictKinds(b.buildQuery(query, "", opts.FuzzyEnabled, fuzziness), opts.Kinds))
	req.Size = limit
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		kind, id := splitDocID(hit.ID)
		out[i] = &KeywordResult{Kind: kind, ID: id, Score: hit.Score}
	}
	return out, nil
}

func (b *BleveIndex) searchWithBoost(query string, limit int, opts *SearchOptions, fuzziness int) ([]*KeywordResult, error) {
	reqSize := max(limit*2, 50)
	scores := make(map[string]float64)
	for _, f := range []struct {
		field string
		boost float64
	}{{"title", opts.TitleBoost}, {"content", 1.0}} {
		req := bleve.NewSearchRequest(b.restrictKinds(b.buildQuery(query, f.field, opts.FuzzyEnabled, fuzziness), opts.Kinds))
		req.Size = reqSize
		results, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("Bleve %s search failed: %w", f.field, err)
		}
		for _, hit := range results.Hits {
			scores[hit.ID] += hit.Score * f.boost
		}
	}

	// (matched/total)^2 so documents matching every term rank first.
	terms := tokenizeQuery(query)
	if len(terms) > 1 {
		coverage := make(map[string]int)
		for _, term := range terms {
			req := bleve.NewSearchRequest(b.restrictKinds(b.buildQuery(term, "", opts.FuzzyEnabled, fuzziness), opts.Kinds))
			req.Size = reqSize
			results, err := b.index.Search(req)
			if err != nil {
				continue
			}
			for _, hit := range results.Hits {
				coverage[hit.ID]++
			}
		}
		for id := range scores {
			c := float64(max(coverage[id], 1)) / float64(len(terms))
			scores[id] *= c * c
		}
	}

	out := make([]*KeywordResult, 0, len(scores))
	for id, score := range scores {
		kind, rid := splitDocID(id)
		out = append(out, &KeywordResult{Kind: kind, ID: rid, Score: score})
	}
	slices.SortFunc(out, func(a, c *KeywordResult) int {
		switch {
		case a.Score > c.Score:
			return -1
		case a.Score < c.Score:
			return 1
		}
		return strings.Compare(docID(a.Kind, a.ID), docID(c.Kind, c.ID))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// tokenizeQuery splits query into lowercase terms.
func tokenizeQuery(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// buildQuery returns a match query, or a disjunction of fuzzy term queries
// when fuzzy is set. An empty field searches all fields.
func (b *BleveIndex) buildQuery(queryStr, field string, fuzzy bool, fuzziness int) blevequery.Query {
	terms := tokenizeQuery(queryStr)
	if !fuzzy || len(terms) == 0 {
		mq := bleve.NewMatchQuery(queryStr)
		if field != "" {
			mq.SetField(field)
		}
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		if field != "" {
			fq.SetField(field)
		}
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// restrictKinds wraps q so only documents of the given kinds match.
func (b *BleveIndex) restrictKinds(q blevequery.Query, kinds []models.RecordKind) blevequery.Query {
	if len(kinds) == 0 {
		return q
	}
	kindQueries := make([]blevequery.Query, len(kinds))
	for i, k := range kinds {
		tq := bleve.NewTermQuery(string(k))
		tq.SetField("kind")
		kindQueries[i] = tq
	}
	return bleve.NewConjunctionQuery(q, bleve.NewDisjunctionQuery(kindQueries...))
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.index.DocCount()
}
