package models

// Posting maps one token occurrence to the record it came from.
type Posting struct {
	Kind    RecordKind `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Score   int        `json:"score"`
}

// SearchResult represents a single unified search hit.
type SearchResult struct {
	Kind       RecordKind `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Score      float64    `json:"score"`
	Highlights []string   `json:"highlights,omitempty"`
	Rank       int        `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// Suggestions contains "Did you mean?" terms when the query matched nothing.
	Suggestions []string `json:"suggestions,omitempty"`
	// Fuzzy is set when results came from the typo-tolerant index.
	Fuzzy bool `json:"fuzzy,omitempty"`
}
