package export

import (
	"fmt"
	"strings"

	"github.com/hyperjump/miftah/internal/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// ParseFormat returns the format named by s; "" means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// MIMEType returns the content type of f.
func (f Format) MIMEType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv;charset=utf-8"
}

// Filename returns base with the format's extension.
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Encode renders rows in format f. sheet names the XLSX sheet.
func Encode(f Format, rows []Row, sheet string) ([]byte, error) {
	switch f {
	case FormatJSON:
		if rows == nil {
			rows = []Row{}
		}
		s, err := ToJSON(rows)
		return []byte(s), err
	case FormatXLSX:
		return ToXLSX(rows, sheet)
	}
	return []byte(ToCSV(rows)), nil
}

// VerseRow flattens a verse using its JSON field names.
func VerseRow(v models.Verse) Row {
	return Row{
		{"surah_no", v.SurahNo},
		{"surah_name_en", v.SurahNameEn},
		{"surah_name_ar", v.SurahNameAr},
		{"surah_name_roman", v.SurahNameRoman},
		{"ayah_no_surah", v.AyahNoSurah},
		{"ayah_no_quran", v.AyahNoQuran},
		{"ayah_ar", v.AyahAr},
		{"ayah_en", v.AyahEn},
		{"juz_no", v.JuzNo},
		{"total_ayah_surah", v.TotalAyahSurah},
		{"place_of_revelation", v.PlaceOfRevelation},
		{"sajah_ayah", v.SajdahAyah},
		{"sajdah_no", v.SajdahNo},
		{"no_of_word_ayah", v.WordCount},
	}
}

// NarrationRow flattens a narration.
func NarrationRow(n models.Narration) Row {
	return Row{
		{"id", n.ID},
		{"number", n.Number},
		{"text", n.Text},
		{"collection", n.Collection},
	}
}

// FactRow flattens a fact; metadata and counters become columns, empty when absent.
func FactRow(f models.Fact) Row {
	row := Row{
		{"id", f.ID},
		{"title", f.Title},
		{"type", f.Type},
		{"notes", f.Notes},
		{"status", ""},
		{"category", ""},
		{"sources", ""},
		{"views", 0},
		{"favorites", 0},
		{"shares", 0},
	}
	if m := f.Metadata; m != nil {
		row[4].Value = m.Status
		row[5].Value = m.Category
		row[6].Value = strings.Join(m.Sources, "; ")
	}
	if c := f.Counters; c != nil {
		row[7].Value = c.Views
		row[8].Value = c.Favorites
		row[9].Value = c.Shares
	}
	return row
}
