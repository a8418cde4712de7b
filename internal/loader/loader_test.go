package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/miftah/internal/models"
)

type memSource struct {
	mu    sync.Mutex
	files map[string]string
	fail  map[string][]error // errors returned by successive opens before succeeding
	opens map[string]int
}

func newMemSource(files map[string]string) *memSource {
	return &memSource{files: files, fail: map[string][]error{}, opens: map[string]int{}}
}

func (s *memSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens[name]++
	if errs := s.fail[name]; len(errs) > 0 {
		s.fail[name] = errs[1:]
		return nil, errs[0]
	}
	content, ok := s.files[name]
	if !ok {
		return nil, models.NewLoadError(models.CodeNotFound, false, os.ErrNotExist, "open %s", name)
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (s *memSource) openCount(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[name]
}

var fastRetry = WithRetryPolicy(RetryPolicy{MaxAttempts: 4, BaseDelay: time.Millisecond})

func TestSplitCSVLine(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{`"x,y",z`, []string{"x,y", "z"}},
		{`"say ""hi""",2`, []string{`say "hi"`, "2"}},
		{"a,,c", []string{"a", "", "c"}},
		{"", []string{""}},
		{`1,Al-Fatiha,بِسْمِ`, []string{"1", "Al-Fatiha", "بِسْمِ"}},
	}
	for _, tt := range tests {
		got := SplitCSVLine(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") || len(got) != len(tt.want) {
			t.Errorf("SplitCSVLine(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseVersesCSV_singleRecord(t *testing.T) {
	verses, err := ParseVersesCSV("surah_no,surah_name_en,ayah_ar\n1,Al-Fatiha,بِسْمِ")
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 1 {
		t.Fatalf("got %d verses, want 1", len(verses))
	}
	if verses[0].SurahNo != 1 || verses[0].SurahNameEn != "Al-Fatiha" || verses[0].AyahAr != "بِسْمِ" {
		t.Errorf("unexpected verse: %+v", verses[0])
	}
	if verses[0].AyahEn != "" {
		t.Errorf("missing translation column should leave AyahEn empty, got %q", verses[0].AyahEn)
	}
}

func TestParseVersesCSV_wholeFileErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"headers only", "surah_no,surah_name_en,ayah_ar\n"},
		{"missing ayah_ar", "surah_no,surah_name_en\n1,Al-Fatiha"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseVersesCSV(tt.text)
			var le *models.LoadError
			if !errors.As(err, &le) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if le.Code != models.CodeParse || le.Retryable {
				t.Errorf("got code %s retryable %v, want PARSE_ERROR non-retryable", le.Code, le.Retryable)
			}
		})
	}
}

func TestParseVersesCSV_dropsBadLines(t *testing.T) {
	text := strings.Join([]string{
		"surah_no,surah_name_en,ayah_ar,ayah_no_surah",
		"1,Al-Fatiha,a,1",
		"x,Broken,b,2",
		"0,Zero,c,3",
		"",
		"1,Al-Fatiha,d,2,extra",
		"2,Al-Baqarah,\"e, f\",1",
	}, "\r\n")
	verses, err := ParseVersesCSV(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 2 {
		t.Fatalf("got %d verses, want 2: %+v", len(verses), verses)
	}
	if verses[1].AyahAr != "e, f" || verses[1].SurahNo != 2 {
		t.Errorf("quoted field not preserved: %+v", verses[1])
	}
}

func TestParseVersesJSON(t *testing.T) {
	verses, err := ParseVersesJSON([]byte(`[{"surah_no":1,"surah_name_en":"Al-Fatiha","ayah_ar":"x"},{"surah_no":0}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 1 || verses[0].AyahEn != "" {
		t.Errorf("unexpected verses: %+v", verses)
	}
	if _, err := ParseVersesJSON([]byte("{not json")); err == nil {
		t.Error("expected error for invalid json")
	}
}

func TestLoader_bundledCorpus(t *testing.T) {
	ld := New(EmbeddedSource{}, DefaultFiles(), nil)
	ctx := context.Background()
	verses, err := ld.Verses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 14 {
		t.Errorf("got %d bundled verses, want 14", len(verses))
	}
	if verses[10].SurahNo != 112 || !strings.Contains(verses[10].AyahEn, `"He is Allah`) {
		t.Errorf("quoted translation not decoded: %+v", verses[10])
	}
	narrations, err := ld.Narrations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(narrations) != 7 {
		t.Errorf("got %d narrations, want 7", len(narrations))
	}
	facts, err := ld.Facts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 9 {
		t.Errorf("got %d facts, want 9", len(facts))
	}
}

func TestLoader_cachesUntilInvalidated(t *testing.T) {
	src := newMemSource(map[string]string{
		"quran.csv": "surah_no,surah_name_en,ayah_ar\n1,Al-Fatiha,a",
	})
	ld := New(src, DefaultFiles(), nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := ld.Verses(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if n := src.openCount("quran.csv"); n != 1 {
		t.Errorf("csv opened %d times, want 1", n)
	}
	gen := ld.Generation()
	ld.Invalidate()
	if ld.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", ld.Generation(), gen+1)
	}
	if _, err := ld.Verses(ctx); err != nil {
		t.Fatal(err)
	}
	if n := src.openCount("quran.csv"); n != 2 {
		t.Errorf("csv opened %d times after invalidation, want 2", n)
	}
}

// gateSource serves a different facts file per open. The first open blocks
// until release is closed.
type gateSource struct {
	mu       sync.Mutex
	versions []string
	opens    int
	opened   chan struct{}
	release  chan struct{}
}

func (s *gateSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	n := s.opens
	s.opens++
	s.mu.Unlock()
	if n == 0 {
		close(s.opened)
		<-s.release
	}
	return io.NopCloser(strings.NewReader(s.versions[n])), nil
}

func TestLoader_invalidateDuringLoadStartsFreshLoad(t *testing.T) {
	src := &gateSource{
		versions: []string{`[{"id":"old","title":"Old"}]`, `[{"id":"new","title":"New"}]`},
		opened:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	ld := New(src, DefaultFiles(), nil)
	ctx := context.Background()

	first := make(chan []models.Fact, 1)
	go func() {
		facts, _ := ld.Facts(ctx)
		first <- facts
	}()
	<-src.opened
	ld.Invalidate()

	second := make(chan []models.Fact, 1)
	go func() {
		facts, _ := ld.Facts(ctx)
		second <- facts
	}()
	select {
	case facts := <-second:
		if len(facts) != 1 || facts[0].ID != "new" {
			t.Errorf("load after invalidation = %+v, want new", facts)
		}
	case <-time.After(2 * time.Second):
		close(src.release)
		t.Fatal("load after invalidation waited on the stale load")
	}

	close(src.release)
	if facts := <-first; len(facts) != 1 || facts[0].ID != "old" {
		t.Errorf("stale load = %+v", facts)
	}
	facts, err := ld.Facts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if facts[0].ID != "new" {
		t.Errorf("cache holds %q, want new", facts[0].ID)
	}
}

func TestLoader_fallsBackToJSON(t *testing.T) {
	src := newMemSource(map[string]string{
		"quran.csv":  "surah_no,ayah_ar\n1,a",
		"quran.json": `[{"surah_no":2,"surah_name_en":"Al-Baqarah","ayah_ar":"b"}]`,
	})
	ld := New(src, DefaultFiles(), nil)
	verses, err := ld.Verses(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(verses) != 1 || verses[0].SurahNameEn != "Al-Baqarah" {
		t.Errorf("expected json fallback, got %+v", verses)
	}
}

func TestLoader_bothSourcesFail(t *testing.T) {
	src := newMemSource(map[string]string{"quran.csv": "bad"})
	ld := New(src, DefaultFiles(), nil, fastRetry)
	_, err := ld.Verses(context.Background())
	var le *models.LoadError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if le.Code != models.CodeUnknown || le.Retryable {
		t.Errorf("got %s retryable=%v, want UNKNOWN non-retryable", le.Code, le.Retryable)
	}
	if n := src.openCount("quran.csv"); n != 1 {
		t.Errorf("non-retryable failure retried: %d opens", n)
	}
}

func TestLoader_retriesTransientFailures(t *testing.T) {
	src := newMemSource(map[string]string{"hadith.json": `[{"number":7,"text":"t","collection":"c"}]`})
	transient := models.NewLoadError(models.CodeNetwork, true, errors.New("io timeout"), "open hadith.json")
	src.fail["hadith.json"] = []error{transient, transient, transient}
	ld := New(src, DefaultFiles(), nil, fastRetry)
	narrations, err := ld.Narrations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(narrations) != 1 || narrations[0].ID != "7" {
		t.Errorf("unexpected narrations: %+v", narrations)
	}
	if n := src.openCount("hadith.json"); n != 4 {
		t.Errorf("opened %d times, want 4", n)
	}
}

func TestLoader_retryBudgetExhausted(t *testing.T) {
	src := newMemSource(map[string]string{"islamic_data.json": `[]`})
	transient := models.NewLoadError(models.CodeNetwork, true, errors.New("io timeout"), "open")
	src.fail["islamic_data.json"] = []error{transient, transient, transient, transient, transient}
	ld := New(src, DefaultFiles(), nil, fastRetry)
	_, err := ld.Facts(context.Background())
	if !models.IsRetryable(err) {
		t.Fatalf("expected retryable error after exhausting budget, got %v", err)
	}
	if n := src.openCount("islamic_data.json"); n != 4 {
		t.Errorf("opened %d times, want 4", n)
	}
}

func TestDefaultRetryPolicy_schedule(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.BaseDelay = time.Millisecond
	var waits []time.Duration
	policy.OnRetry = func(_ error, wait time.Duration) { waits = append(waits, wait) }
	calls := 0
	_, err := LoadWithRetry(context.Background(), policy, func(context.Context) (int, error) {
		calls++
		return 0, models.NewLoadError(models.CodeNetwork, true, nil, "down")
	})
	if !models.IsRetryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	want := []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait %d = %s, want %s", i, waits[i], want[i])
		}
	}
}

func TestLoadWithRetry_contextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := LoadWithRetry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, func(context.Context) (int, error) {
		calls++
		return 0, models.NewLoadError(models.CodeNetwork, true, nil, "down")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "islamic_data.json"), []byte(`[{"title":"A","type":"scientific","notes":"n"}]`), 0600); err != nil {
		t.Fatal(err)
	}
	ld := New(DirSource{Dir: dir}, DefaultFiles(), nil)
	facts, err := ld.Facts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 || facts[0].ID != "fact-1" {
		t.Errorf("unexpected facts: %+v", facts)
	}
	_, err = ld.Narrations(context.Background())
	var le *models.LoadError
	if !errors.As(err, &le) || le.Code != models.CodeNotFound {
		t.Errorf("missing file: got %v, want NOT_FOUND", err)
	}
}

func TestCache(t *testing.T) {
	c := NewCache()
	gen := c.Generation()
	if !c.setIfGeneration("k", 1, gen) {
		t.Fatal("setIfGeneration should succeed at current generation")
	}
	if v, ok := c.Get("k"); !ok || v.(int) != 1 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	c.InvalidateAll()
	if _, ok := c.Get("k"); ok {
		t.Error("entry should be gone")
	}
	if c.Generation() != gen+1 {
		t.Errorf("generation = %d, want %d", c.Generation(), gen+1)
	}
	if c.setIfGeneration("k", 2, gen) {
		t.Error("setIfGeneration should fail after invalidation")
	}
}
