// Package cli formats search results, dataset pages, and status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/hyperjump/miftah/internal/app"
	"github.com/hyperjump/miftah/internal/models"
	"github.com/hyperjump/miftah/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact prints one line per item.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the named format; "" means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "":
		return OutputText, nil
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (use text, compact, or json)", s)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, r := range response.Results {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\n", r.Kind, r.ID, r.Score, r.Title)
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	mode := ""
	if response.Fuzzy {
		mode = " (fuzzy)"
	}
	fmt.Fprintf(w, "\nFound %d results for %q in %dms%s\n\n", response.Total, response.Query, response.QueryTime, mode)
	if response.Total == 0 && len(response.Suggestions) > 0 {
		fmt.Fprintf(w, "Did you mean: %s?\n\n", strings.Join(response.Suggestions, ", "))
	}
	for _, r := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "#%d [%s] %s | Score: %.2f\n", r.Rank, r.Kind, r.Title, r.Score)
		fmt.Fprintf(w, "ID: %s\n", r.ID)
		if len(r.Highlights) > 0 {
			for _, h := range r.Highlights {
				fmt.Fprintf(w, "  …%s…\n", h)
			}
		} else {
			fmt.Fprintf(w, "\n%s\n", utils.Truncate(r.Content, 200))
		}
		fmt.Fprintln(w)
	}
}

// Describer renders one dataset item as a title line and a body.
type Describer[T any] func(item T) (title, body string)

// WritePage writes one dataset page in the given format.
func WritePage[T any](w io.Writer, page models.Page[T], format OutputFormat, describe Describer[T]) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, page)
	case OutputCompact:
		for _, item := range page.Items {
			title, _ := describe(item)
			fmt.Fprintln(w, title)
		}
		return nil
	}
	fmt.Fprintf(w, "\nPage %d of %d (%d total)\n\n", page.Page, page.TotalPages, page.Total)
	for i, item := range page.Items {
		title, body := describe(item)
		fmt.Fprintf(w, "%d. %s\n", (page.Page-1)*page.PageSize+i+1, title)
		if body != "" {
			fmt.Fprintf(w, "   %s\n", utils.Truncate(body, 200))
		}
	}
	return nil
}

// DescribeVerse renders a verse as "Name surah:ayah" and its translation,
// falling back to the Arabic text.
func DescribeVerse(v models.Verse) (string, string) {
	r := models.VerseRecord(&v)
	return r.Title(), r.Content()
}

// DescribeNarration renders a narration as "Collection #number" and its text.
func DescribeNarration(n models.Narration) (string, string) {
	r := models.NarrationRecord(&n)
	return r.Title(), r.Content()
}

// DescribeFact renders a fact as "Title [type]" and its notes.
func DescribeFact(f models.Fact) (string, string) {
	title := f.Title
	if f.Type != "" {
		title += " [" + f.Type + "]"
	}
	return title, f.Notes
}

// WriteStatus writes the service status in the given format.
func WriteStatus(w io.Writer, st *app.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Data source:      %s\n", st.DataSource)
	fmt.Fprintf(w, "Verses:           %d\n", st.Verses)
	fmt.Fprintf(w, "Narrations:       %d\n", st.Narrations)
	fmt.Fprintf(w, "Facts:            %d\n", st.Facts)
	fmt.Fprintf(w, "Categories:       %s\n", strings.Join(st.Categories, ", "))
	for _, place := range slices.Sorted(maps.Keys(st.VersesByPlace)) {
		fmt.Fprintf(w, "  %-16s%d verses\n", place+":", st.VersesByPlace[place])
	}
	fmt.Fprintf(w, "Cache generation: %d\n", st.CacheGeneration)
	fmt.Fprintf(w, "Search index:     built=%t records=%d terms=%d\n", st.Index.Built, st.Index.Records, st.Index.Terms)
	fmt.Fprintf(w, "Fuzzy index:      %d documents\n", st.FuzzyDocuments)
	fmt.Fprintf(w, "Users:            %d (%d favorites)\n", st.Users, st.Favorites)
	fmt.Fprintf(w, "Disk usage:       %d bytes\n", st.DiskUsageBytes)
	return nil
}
