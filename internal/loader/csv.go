package loader

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
)

// Headers every verse CSV must carry.
var requiredVerseHeaders = []string{"surah_no", "surah_name_en", "ayah_ar"}

// SplitCSVLine splits one CSV line on commas that are outside double quotes.
// A quote toggles the literal state; a doubled quote inside a quoted field
// yields a single quote. Quotes are not part of the returned fields.
func SplitCSVLine(line string) []string {
	var (
		fields  []string
		cur     strings.Builder
		inQuote bool
	)
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"' && inQuote && i+1 < len(runes) && runes[i+1] == '"':
			cur.WriteRune('"')
			i++
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}

// ParseVersesCSV parses a verse CSV blob. The first line holds the headers.
// A missing required header or a blob with fewer than two lines fails the whole
// file with a PARSE_ERROR; malformed data lines are dropped.
func ParseVersesCSV(text string) ([]models.Verse, error) {
	return parseVersesCSV(text, zap.NewNop())
}

func parseVersesCSV(text string, logger *zap.Logger) ([]models.Verse, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(strings.TrimRight(text, "\r\n"), "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, models.NewLoadError(models.CodeParse, false, nil, "verse csv has %d line(s), need headers and data", len(lines))
	}

	headers := SplitCSVLine(lines[0])
	col := make(map[string]int, len(headers))
	for i, h := range headers {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, h := range requiredVerseHeaders {
		if _, ok := col[h]; !ok {
			return nil, models.NewLoadError(models.CodeParse, false, nil, "verse csv missing required header %q", h)
		}
	}

	verses := make([]models.Verse, 0, len(lines)-1)
	for n, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		v, err := parseVerseLine(SplitCSVLine(line), len(headers), col)
		if err != nil {
			logger.Warn("dropping verse csv line", zap.Int("line", n+2), zap.Error(err))
			continue
		}
		if v.SurahNo <= 0 {
			logger.Warn("dropping verse csv line", zap.Int("line", n+2), zap.String("reason", "surah_no not positive"))
			continue
		}
		verses = append(verses, v)
	}
	return verses, nil
}

func parseVerseLine(fields []string, width int, col map[string]int) (models.Verse, error) {
	var v models.Verse
	if len(fields) > width {
		return v, fmt.Errorf("got %d fields, headers declare %d", len(fields), width)
	}
	str := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	var firstErr error
	num := func(name string) int {
		s := str(name)
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("column %s: %w", name, err)
		}
		return n
	}

	v.SurahNo = num("surah_no")
	v.SurahNameEn = str("surah_name_en")
	v.SurahNameAr = str("surah_name_ar")
	v.SurahNameRoman = str("surah_name_roman")
	v.AyahNoSurah = num("ayah_no_surah")
	v.AyahNoQuran = num("ayah_no_quran")
	v.AyahAr = str("ayah_ar")
	v.AyahEn = str("ayah_en")
	v.JuzNo = num("juz_no")
	v.TotalAyahSurah = num("total_ayah_surah")
	v.PlaceOfRevelation = str("place_of_revelation")
	v.SajdahAyah, _ = strconv.ParseBool(str("sajah_ayah"))
	v.SajdahNo = num("sajdah_no")
	v.WordCount = num("no_of_word_ayah")
	return v, firstErr
}

// ParseVersesJSON decodes the JSON verse array. Records without a positive
// surah number are dropped; a missing translation stays empty.
func ParseVersesJSON(data []byte) ([]models.Verse, error) {
	var raw []models.Verse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, models.NewLoadError(models.CodeParse, false, err, "decode verse json")
	}
	verses := raw[:0]
	for _, v := range raw {
		if v.SurahNo > 0 {
			verses = append(verses, v)
		}
	}
	return verses, nil
}

// ParseNarrationsJSON decodes the narration array. Entries without an id are
// keyed by their number.
func ParseNarrationsJSON(data []byte) ([]models.Narration, error) {
	var narrations []models.Narration
	if err := json.Unmarshal(data, &narrations); err != nil {
		return nil, models.NewLoadError(models.CodeParse, false, err, "decode narration json")
	}
	for i := range narrations {
		if narrations[i].ID == "" {
			narrations[i].ID = strconv.Itoa(narrations[i].Number)
		}
	}
	return narrations, nil
}

// ParseFactsJSON decodes the fact array. Entries without an id get their
// 1-based position as id.
func ParseFactsJSON(data []byte) ([]models.Fact, error) {
	var facts []models.Fact
	if err := json.Unmarshal(data, &facts); err != nil {
		return nil, models.NewLoadError(models.CodeParse, false, err, "decode fact json")
	}
	for i := range facts {
		if facts[i].ID == "" {
			facts[i].ID = "fact-" + strconv.Itoa(i+1)
		}
	}
	return facts, nil
}
