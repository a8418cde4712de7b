// Package loader loads the verse, narration, and fact datasets from bundled or
// on-disk sources and caches them until invalidated.
package loader

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hyperjump/miftah/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Files names the corpus files inside a Source.
type Files struct {
	VersesCSV      string
	VersesJSON     string
	NarrationsJSON string
	FactsJSON      string
}

// DefaultFiles are the names of the bundled corpus files.
func DefaultFiles() Files {
	return Files{
		VersesCSV:      "quran.csv",
		VersesJSON:     "quran.json",
		NarrationsJSON: "hadith.json",
		FactsJSON:      "islamic_data.json",
	}
}

// Loader loads datasets from a Source through a Cache.
type Loader struct {
	source Source
	files  Files
	cache  *Cache
	retry  RetryPolicy
	group  singleflight.Group
	logger *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger for dropped lines, fallbacks, and retries.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithRetryPolicy overrides DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(ld *Loader) { ld.retry = p }
}

// New creates a loader reading files from source. cache may be shared with
// other components that watch its generation; nil creates a private one.
func New(source Source, files Files, cache *Cache, opts ...Option) *Loader {
	if cache == nil {
		cache = NewCache()
	}
	ld := &Loader{
		source: source,
		files:  files,
		cache:  cache,
		retry:  DefaultRetryPolicy(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Generation returns the cache generation.
func (l *Loader) Generation() uint64 { return l.cache.Generation() }

// Invalidate drops every cached dataset; the next call reloads from the source.
func (l *Loader) Invalidate() {
	l.cache.InvalidateAll()
	l.logger.Info("dataset cache invalidated", zap.Uint64("generation", l.cache.Generation()))
}

// Verses returns the verse dataset. The CSV file is tried first; if it fails
// as a whole, the JSON file is used. If both fail a *models.LoadError is returned.
func (l *Loader) Verses(ctx context.Context) ([]models.Verse, error) {
	return load(ctx, l, KeyVerses, l.loadVerses)
}

// Narrations returns the narration dataset.
func (l *Loader) Narrations(ctx context.Context) ([]models.Narration, error) {
	return load(ctx, l, KeyNarrations, func(ctx context.Context) ([]models.Narration, error) {
		data, err := readAll(ctx, l.source, l.files.NarrationsJSON)
		if err != nil {
			return nil, err
		}
		return ParseNarrationsJSON(data)
	})
}

// Facts returns the fact dataset.
func (l *Loader) Facts(ctx context.Context) ([]models.Fact, error) {
	return load(ctx, l, KeyFacts, func(ctx context.Context) ([]models.Fact, error) {
		data, err := readAll(ctx, l.source, l.files.FactsJSON)
		if err != nil {
			return nil, err
		}
		return ParseFactsJSON(data)
	})
}

func load[T any](ctx context.Context, l *Loader, key string, fn func(context.Context) ([]T, error)) ([]T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v.([]T), nil
	}
	// Callers only share a load started at the same generation.
	gen := l.cache.Generation()
	v, err, _ := l.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		start := time.Now()
		policy := l.retry
		policy.OnRetry = func(err error, wait time.Duration) {
			l.logger.Info("retrying dataset load", zap.String("dataset", key), zap.Duration("wait", wait), zap.Error(err))
		}
		records, err := LoadWithRetry(ctx, policy, fn)
		if err != nil {
			return nil, asLoadError(key, err)
		}
		if !l.cache.setIfGeneration(key, records, gen) {
			l.logger.Debug("dataset invalidated while loading", zap.String("dataset", key))
		}
		l.logger.Debug("dataset loaded", zap.String("dataset", key), zap.Int("records", len(records)), zap.Duration("took", time.Since(start)))
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]T), nil
}

func (l *Loader) loadVerses(ctx context.Context) ([]models.Verse, error) {
	csvData, csvErr := readAll(ctx, l.source, l.files.VersesCSV)
	if csvErr == nil {
		verses, err := parseVersesCSV(string(csvData), l.logger)
		if err == nil {
			return verses, nil
		}
		csvErr = err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	l.logger.Warn("verse csv unusable, falling back to json", zap.String("file", l.files.VersesCSV), zap.Error(csvErr))

	jsonData, err := readAll(ctx, l.source, l.files.VersesJSON)
	if err == nil {
		verses, perr := ParseVersesJSON(jsonData)
		if perr == nil {
			return verses, nil
		}
		err = perr
	}
	retryable := models.IsRetryable(csvErr) || models.IsRetryable(err)
	code := models.CodeUnknown
	if retryable {
		code = models.CodeNetwork
	}
	return nil, models.NewLoadError(code, retryable, errors.Join(csvErr, err), "verses unavailable from csv and json")
}

// asLoadError makes sure callers always see a *models.LoadError, except for
// context cancellation which is passed through.
func asLoadError(key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var le *models.LoadError
	if errors.As(err, &le) {
		return le
	}
	return models.NewLoadError(models.CodeUnknown, false, err, "load %s", key)
}
