package app

import (
	"context"

	"github.com/hyperjump/miftah/internal/search"
	"github.com/hyperjump/miftah/internal/storage"
	"go.uber.org/zap"
)

// Status summarizes the loaded corpus, the search indices, and storage.
type Status struct {
	Verses          int               `json:"verses"`
	Narrations      int               `json:"narrations"`
	Facts           int               `json:"facts"`
	Categories      []string          `json:"categories"`
	VersesByPlace   map[string]int    `json:"verses_by_place"`
	CacheGeneration uint64            `json:"cache_generation"`
	Index           search.IndexStats `json:"index"`
	FuzzyDocuments  uint64            `json:"fuzzy_documents"`
	Users           int64             `json:"users"`
	Favorites       int64             `json:"favorites"`
	DiskUsageBytes  int64             `json:"disk_usage_bytes"`
	DataSource      string            `json:"data_source"`
}

// Status loads every dataset and reports counts and index state. Any load
// failure is returned rather than reported as an empty dataset.
func (a *App) Status(ctx context.Context) (*Status, error) {
	verses, err := a.loader.Verses(ctx)
	if err != nil {
		return nil, err
	}
	narrations, err := a.loader.Narrations(ctx)
	if err != nil {
		return nil, err
	}
	facts, err := a.loader.Facts(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Verses:          len(verses),
		Narrations:      len(narrations),
		Facts:           len(facts),
		Categories:      categories(facts),
		VersesByPlace:   map[string]int{},
		CacheGeneration: a.loader.Generation(),
		Index:           a.engine.Index().Stats(),
		DataSource:      "bundled",
	}
	if a.cfg.Data.Directory != "" {
		st.DataSource = a.cfg.Data.Directory
	}
	for _, v := range verses {
		if v.PlaceOfRevelation != "" {
			st.VersesByPlace[v.PlaceOfRevelation]++
		}
	}
	if n, err := a.fuzzy.DocCount(); err == nil {
		st.FuzzyDocuments = n
	}
	if a.store != nil {
		if st.Users, err = a.store.CountUsers(ctx); err != nil {
			return nil, err
		}
		if st.Favorites, err = a.store.CountFavorites(ctx); err != nil {
			return nil, err
		}
	}
	disk, err := storage.DiskUsageBytes(a.cfg.Storage.DatabasePath, a.cfg.Storage.BleveIndexPath)
	if err != nil {
		a.logger.Warn("status: disk usage failed", zap.Error(err))
	}
	st.DiskUsageBytes = disk
	return st, nil
}
