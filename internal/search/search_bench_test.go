package search

import (
	"context"
	"fmt"
	"testing"

	"github.com/hyperjump/miftah/internal/models"
)

func benchCorpus(n int) *fakeCorpus {
	c := &fakeCorpus{gen: 1}
	for i := 0; i < n; i++ {
		c.facts = append(c.facts, models.Fact{
			ID:    fmt.Sprintf("f%d", i),
			Title: fmt.Sprintf("Fact %d about honey and healing", i),
			Type:  "scientific",
			Notes: "From their bellies comes a drink of varying colours in which there is healing for people.",
		})
		c.verses = append(c.verses, models.Verse{
			SurahNo:     i/10 + 1,
			AyahNoSurah: i%10 + 1,
			SurahNameEn: "Al-Nahl",
			AyahEn:      "And your Lord inspired the bee, saying: take dwellings in the mountains and trees.",
			AyahAr:      "وَأَوْحَىٰ رَبُّكَ إِلَى ٱلنَّحْلِ",
		})
	}
	return c
}

func BenchmarkTokenize(b *testing.B) {
	text := "Indeed, We have sent it down as an Arabic Qur'an that you might understand. إِنَّآ أَنزَلْنَـٰهُ قُرْءَٰنًا عَرَبِيًّا"
	for i := 0; i < b.N; i++ {
		_ = Tokenize(text)
	}
}

func BenchmarkIndexBuild(b *testing.B) {
	ctx := context.Background()
	corpus := benchCorpus(1000)
	idx := NewIndex(corpus)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Invalidate()
		if _, err := idx.Search(ctx, "honey", 10); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIndexSearch(b *testing.B) {
	ctx := context.Background()
	idx := NewIndex(benchCorpus(1000))
	if _, err := idx.Search(ctx, "warmup", 1); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Search(ctx, "honey healing bee", 10)
	}
}

func BenchmarkHighlights(b *testing.B) {
	content := "From their bellies comes a drink of varying colours in which there is healing for people. Indeed in that is a sign for a people who give thought."
	tokens := []string{"healing", "sign"}
	for i := 0; i < b.N; i++ {
		_ = Highlights(content, tokens, 20, 3)
	}
}
