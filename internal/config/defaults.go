package config

import "time"

// Default page sizes per dataset.
const (
	DefaultFactsPageSize      = 8
	DefaultVersesPageSize     = 12
	DefaultNarrationsPageSize = 20
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"https://*", "http://*"}
	}
	if cfg.Data.VersesCSV == "" {
		cfg.Data.VersesCSV = "quran.csv"
	}
	if cfg.Data.VersesJSON == "" {
		cfg.Data.VersesJSON = "quran.json"
	}
	if cfg.Data.NarrationsJSON == "" {
		cfg.Data.NarrationsJSON = "hadith.json"
	}
	if cfg.Data.FactsJSON == "" {
		cfg.Data.FactsJSON = "islamic_data.json"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/miftah/data/db/userdata.db"
	}
	if cfg.Pagination.Facts == 0 {
		cfg.Pagination.Facts = DefaultFactsPageSize
	}
	if cfg.Pagination.Verses == 0 {
		cfg.Pagination.Verses = DefaultVersesPageSize
	}
	if cfg.Pagination.Narrations == 0 {
		cfg.Pagination.Narrations = DefaultNarrationsPageSize
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 50
	}
	if cfg.Search.HighlightWindow == 0 {
		cfg.Search.HighlightWindow = 20
	}
	if cfg.Search.MaxHighlights == 0 {
		cfg.Search.MaxHighlights = 3
	}
	if cfg.Search.Fuzziness == 0 {
		cfg.Search.Fuzziness = 2
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 4
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = time.Second
	}
}
