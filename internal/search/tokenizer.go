package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// Arabic harakat, tanween, shadda, sukun and the extended marks up to U+065F.
var arabicDiacritics = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x064B, Hi: 0x065F, Stride: 1}},
}

// Tokenize lowercases s, strips Arabic diacritics, replaces every rune that
// is not a letter, digit, underscore, whitespace, or in the Arabic block
// with a space, and splits on whitespace. Documents and queries share it.
func Tokenize(s string) []string {
	stripped, _, err := transform.String(runes.Remove(runes.In(arabicDiacritics)), strings.ToLower(s))
	if err != nil {
		stripped = strings.ToLower(s)
	}
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r == '_', unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r >= 0x0600 && r <= 0x06FF:
			return r
		}
		return ' '
	}, stripped)
	return strings.Fields(cleaned)
}
