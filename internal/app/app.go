// Package app wires the loader, pipelines, search engine, fuzzy index, and
// user store into the service used by the HTTP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hyperjump/miftah/internal/config"
	"github.com/hyperjump/miftah/internal/export"
	"github.com/hyperjump/miftah/internal/keyword"
	"github.com/hyperjump/miftah/internal/loader"
	"github.com/hyperjump/miftah/internal/models"
	"github.com/hyperjump/miftah/internal/pipeline"
	"github.com/hyperjump/miftah/internal/search"
	"github.com/hyperjump/miftah/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// App is the composition root. Create it with New and release it with Close.
type App struct {
	cfg        *config.Config
	loader     *loader.Loader
	engine     *search.Engine
	fuzzy      *keyword.BleveIndex
	store      storage.UserStore
	facts      *pipeline.Pipeline[models.Fact]
	verses     *pipeline.Pipeline[models.Verse]
	narrations *pipeline.Pipeline[models.Narration]
	logger     *zap.Logger
}

// Option configures an App.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	source    loader.Source
	store     storage.UserStore
	skipStore bool
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSource overrides the source chosen from the data configuration.
func WithSource(s loader.Source) Option {
	return func(o *options) { o.source = s }
}

// WithUserStore uses s instead of opening the configured database.
func WithUserStore(s storage.UserStore) Option {
	return func(o *options) { o.store = s }
}

// WithoutUserStore skips opening the user database.
func WithoutUserStore() Option {
	return func(o *options) { o.skipStore = true }
}

// New builds the application from cfg. The corpus is read from
// cfg.Data.Directory when set, else from the bundled files.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	source := o.source
	if source == nil {
		if cfg.Data.Directory != "" {
			source = loader.DirSource{Dir: cfg.Data.Directory}
		} else {
			source = loader.EmbeddedSource{}
		}
	}
	files := loader.Files{
		VersesCSV:      cfg.Data.VersesCSV,
		VersesJSON:     cfg.Data.VersesJSON,
		NarrationsJSON: cfg.Data.NarrationsJSON,
		FactsJSON:      cfg.Data.FactsJSON,
	}
	ld := loader.New(source, files, loader.NewCache(),
		loader.WithLogger(logger.Named("loader")),
		loader.WithRetryPolicy(loader.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
		}),
	)

	fuzzy, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open fuzzy index: %w", err)
	}

	index := search.NewIndex(ld,
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithHighlightWindow(cfg.Search.HighlightWindow),
		search.WithMaxHighlights(cfg.Search.MaxHighlights),
		search.WithIndexLogger(logger.Named("index")),
	)
	engine := search.NewEngine(index, fuzzy, &cfg.Search, search.WithLogger(logger.Named("search")))

	store := o.store
	if store == nil && !o.skipStore && cfg.Storage.DatabasePath != "" {
		s, err := storage.NewSQLiteUserStore(cfg.Storage.DatabasePath)
		if err != nil {
			_ = fuzzy.Close()
			return nil, fmt.Errorf("failed to open user store: %w", err)
		}
		store = s
	}

	return &App{
		cfg:        cfg,
		loader:     ld,
		engine:     engine,
		fuzzy:      fuzzy,
		store:      store,
		facts:      pipeline.Facts(cfg.Pagination.Facts),
		verses:     pipeline.Verses(cfg.Pagination.Verses),
		narrations: pipeline.Narrations(cfg.Pagination.Narrations),
		logger:     logger,
	}, nil
}

// Engine returns the search engine.
func (a *App) Engine() *search.Engine { return a.engine }

// Store returns the user store, or nil when none is configured.
func (a *App) Store() storage.UserStore { return a.store }

// Close releases the fuzzy index and the user store.
func (a *App) Close() error {
	var errs []error
	if a.fuzzy != nil {
		errs = append(errs, a.fuzzy.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// Reload drops cached datasets and both search indices. The next request
// reads the sources again.
func (a *App) Reload() uint64 {
	a.loader.Invalidate()
	a.engine.Invalidate()
	return a.loader.Generation()
}

// Warm loads every dataset concurrently.
func (a *App) Warm(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := a.loader.Verses(gctx); return err })
	g.Go(func() error { _, err := a.loader.Narrations(gctx); return err })
	g.Go(func() error { _, err := a.loader.Facts(gctx); return err })
	return g.Wait()
}

// Search runs a unified search.
func (a *App) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	return a.engine.Search(ctx, q)
}

// Facts returns one page of the filtered, sorted facts.
func (a *App) Facts(ctx context.Context, state models.FilterState, page int) (models.Page[models.Fact], error) {
	facts, err := a.loader.Facts(ctx)
	if err != nil {
		return models.Page[models.Fact]{}, err
	}
	return a.facts.Apply(facts, state, page), nil
}

// Verses returns one page of the filtered, sorted verses.
func (a *App) Verses(ctx context.Context, state models.FilterState, page int) (models.Page[models.Verse], error) {
	verses, err := a.loader.Verses(ctx)
	if err != nil {
		return models.Page[models.Verse]{}, err
	}
	return a.verses.Apply(verses, state, page), nil
}

// Narrations returns one page of the filtered, sorted narrations.
func (a *App) Narrations(ctx context.Context, state models.FilterState, page int) (models.Page[models.Narration], error) {
	narrations, err := a.loader.Narrations(ctx)
	if err != nil {
		return models.Page[models.Narration]{}, err
	}
	return a.narrations.Apply(narrations, state, page), nil
}

// Categories returns the distinct fact types, sorted.
func (a *App) Categories(ctx context.Context) ([]string, error) {
	facts, err := a.loader.Facts(ctx)
	if err != nil {
		return nil, err
	}
	return categories(facts), nil
}

func categories(facts []models.Fact) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, f := range facts {
		t := strings.TrimSpace(f.Type)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// SortKeys returns the accepted sort keys of a dataset, default first.
func (a *App) SortKeys(kind models.RecordKind) []string {
	switch kind {
	case models.KindFact:
		return a.facts.SortKeys()
	case models.KindVerse:
		return a.verses.SortKeys()
	case models.KindNarration:
		return a.narrations.SortKeys()
	}
	return nil
}

// ExportRows returns the whole filtered and sorted dataset as export rows.
func (a *App) ExportRows(ctx context.Context, kind models.RecordKind, state models.FilterState) ([]export.Row, error) {
	switch kind {
	case models.KindFact:
		facts, err := a.loader.Facts(ctx)
		if err != nil {
			return nil, err
		}
		return export.Rows(a.facts.All(facts, state), export.FactRow), nil
	case models.KindVerse:
		verses, err := a.loader.Verses(ctx)
		if err != nil {
			return nil, err
		}
		return export.Rows(a.verses.All(verses, state), export.VerseRow), nil
	case models.KindNarration:
		narrations, err := a.loader.Narrations(ctx)
		if err != nil {
			return nil, err
		}
		return export.Rows(a.narrations.All(narrations, state), export.NarrationRow), nil
	}
	return nil, fmt.Errorf("dataset %q: %w", kind, models.ErrNotFound)
}

// Export renders a dataset in format f and returns the content and a file name.
func (a *App) Export(ctx context.Context, kind models.RecordKind, state models.FilterState, f export.Format) ([]byte, string, error) {
	rows, err := a.ExportRows(ctx, kind, state)
	if err != nil {
		return nil, "", err
	}
	name := datasetName(kind)
	content, err := export.Encode(f, rows, name)
	if err != nil {
		return nil, "", err
	}
	return content, f.Filename(name), nil
}

func datasetName(kind models.RecordKind) string {
	switch kind {
	case models.KindFact:
		return "facts"
	case models.KindVerse:
		return "verses"
	}
	return "narrations"
}
