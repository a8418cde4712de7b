// Package models defines core data structures for verses, narrations, facts, queries, and search results.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RecordKind discriminates the variants of Record.
type RecordKind string

const (
	KindFact      RecordKind = "fact"
	KindVerse     RecordKind = "verse"
	KindNarration RecordKind = "narration"
)

// ParseRecordKind returns the kind named by s (case-insensitive, plural accepted).
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case "fact":
		return KindFact, nil
	case "verse", "ayah":
		return KindVerse, nil
	case "narration", "hadith":
		return KindNarration, nil
	}
	return "", fmt.Errorf("unknown record kind %q: %w", s, ErrNotFound)
}

// Verse is a single Quran ayah. Identity is (SurahNo, AyahNoSurah).
type Verse struct {
	SurahNo           int    `json:"surah_no"`
	SurahNameEn       string `json:"surah_name_en"`
	SurahNameAr       string `json:"surah_name_ar"`
	SurahNameRoman    string `json:"surah_name_roman"`
	AyahNoSurah       int    `json:"ayah_no_surah"`
	AyahNoQuran       int    `json:"ayah_no_quran"`
	AyahAr            string `json:"ayah_ar"`
	AyahEn            string `json:"ayah_en"`
	JuzNo             int    `json:"juz_no"`
	TotalAyahSurah    int    `json:"total_ayah_surah"`
	PlaceOfRevelation string `json:"place_of_revelation"`
	SajdahAyah        bool   `json:"sajah_ayah"`
	SajdahNo          int    `json:"sajdah_no"`
	WordCount         int    `json:"no_of_word_ayah"`
}

// ID returns "surah:ayah".
func (v *Verse) ID() string {
	return strconv.Itoa(v.SurahNo) + ":" + strconv.Itoa(v.AyahNoSurah)
}

// Narration is a single hadith entry.
type Narration struct {
	ID         string `json:"id"`
	Number     int    `json:"number"`
	Text       string `json:"text"`
	Collection string `json:"collection"`
}

// FactMetadata holds optional structured metadata of a fact.
type FactMetadata struct {
	Status   string   `json:"status,omitempty"`
	Category string   `json:"category,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// FactCounters holds optional engagement counters of a fact.
type FactCounters struct {
	Views     int `json:"views"`
	Favorites int `json:"favorites"`
	Shares    int `json:"shares"`
}

// Fact is a curated Islamic data entry ("miracle", prophecy, numerical fact, ...).
type Fact struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Type     string        `json:"type"`
	Notes    string        `json:"notes"`
	Metadata *FactMetadata `json:"metadata,omitempty"`
	Counters *FactCounters `json:"counters,omitempty"`
}

// Record is a tagged union over the three record shapes. Exactly one of
// Fact, Verse, Narration is set, matching Kind.
type Record struct {
	Kind      RecordKind
	Fact      *Fact
	Verse     *Verse
	Narration *Narration
}

// FactRecord wraps f as a Record.
func FactRecord(f *Fact) Record { return Record{Kind: KindFact, Fact: f} }

// VerseRecord wraps v as a Record.
func VerseRecord(v *Verse) Record { return Record{Kind: KindVerse, Verse: v} }

// NarrationRecord wraps n as a Record.
func NarrationRecord(n *Narration) Record { return Record{Kind: KindNarration, Narration: n} }

// ID returns the identity of the wrapped record.
func (r Record) ID() string {
	switch r.Kind {
	case KindFact:
		return r.Fact.ID
	case KindVerse:
		return r.Verse.ID()
	case KindNarration:
		return r.Narration.ID
	}
	return ""
}

// Title returns the display label of the wrapped record.
func (r Record) Title() string {
	switch r.Kind {
	case KindFact:
		return r.Fact.Title
	case KindVerse:
		return fmt.Sprintf("%s %d:%d", r.Verse.SurahNameEn, r.Verse.SurahNo, r.Verse.AyahNoSurah)
	case KindNarration:
		if r.Narration.Number > 0 {
			return fmt.Sprintf("%s #%d", r.Narration.Collection, r.Narration.Number)
		}
		return r.Narration.Collection + " " + r.Narration.ID
	}
	return ""
}

// Content returns the main body text of the wrapped record. For verses the
// English translation is preferred and the Arabic text used when it is empty.
func (r Record) Content() string {
	switch r.Kind {
	case KindFact:
		return r.Fact.Notes
	case KindVerse:
		if r.Verse.AyahEn != "" {
			return r.Verse.AyahEn
		}
		return r.Verse.AyahAr
	case KindNarration:
		return r.Narration.Text
	}
	return ""
}

// SearchFields returns the fields indexed for unified search.
func (r Record) SearchFields() []string {
	switch r.Kind {
	case KindFact:
		return []string{r.Fact.Title, r.Fact.Notes, r.Fact.Type}
	case KindVerse:
		return []string{r.Verse.SurahNameEn, r.Verse.AyahEn, r.Verse.AyahAr}
	case KindNarration:
		return []string{r.Narration.Text, r.Narration.Collection}
	}
	return nil
}
