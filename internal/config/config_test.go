package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.Address() != "127.0.0.1:9000" {
		t.Errorf("Address() = %s", cfg.Server.Address())
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Storage.BleveIndexPath != "" {
		t.Errorf("bleve_index_path should stay empty (in-memory), got %s", cfg.Storage.BleveIndexPath)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_expandsEnv(t *testing.T) {
	t.Setenv("MIFTAH_PORT", "9191")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: ${MIFTAH_PORT}
retry:
  base_delay: 250ms
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("base_delay = %s, want 250ms", cfg.Retry.BaseDelay)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/userdata.db"
data:
  directory: "./corpus"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	wantDB := filepath.Join(dir, "data", "db", "userdata.db")
	if cfg.Storage.DatabasePath != wantDB {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, wantDB)
	}
	wantData := filepath.Join(dir, "corpus")
	if cfg.Data.Directory != wantData {
		t.Errorf("data directory = %s, want %s", cfg.Data.Directory, wantData)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "server:\n  port: 70000\n"},
		{"negative page size", "pagination:\n  facts: -1\n"},
		{"watch without directory", "data:\n  watch: true\n"},
		{"fuzziness too high", "search:\n  fuzziness: 5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Pagination.Facts != 8 || cfg.Pagination.Verses != 12 || cfg.Pagination.Narrations != 20 {
		t.Errorf("default page sizes: got %+v", cfg.Pagination)
	}
	if cfg.Search.MaxResults != 50 || cfg.Search.HighlightWindow != 20 || cfg.Search.MaxHighlights != 3 {
		t.Errorf("default search: got %+v", cfg.Search)
	}
	if cfg.Retry.MaxAttempts != 4 || cfg.Retry.BaseDelay != time.Second {
		t.Errorf("default retry: got %+v", cfg.Retry)
	}
	if cfg.Data.VersesCSV != "quran.csv" || cfg.Data.FactsJSON != "islamic_data.json" {
		t.Errorf("default data files: got %+v", cfg.Data)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSearchConfig_FuzzyFallbackOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		c := &SearchConfig{}
		if !c.FuzzyFallbackOrDefault() {
			t.Error("FuzzyFallbackOrDefault() = false, want true")
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		c := &SearchConfig{FuzzyFallback: &f}
		if c.FuzzyFallbackOrDefault() {
			t.Error("FuzzyFallbackOrDefault() = true, want false")
		}
	})
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		Retry:   RetryConfig{MaxAttempts: 2, BaseDelay: 2 * time.Second},
	}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Retry.BaseDelay != 2*time.Second {
		t.Errorf("loaded base_delay: got %s", loaded.Retry.BaseDelay)
	}
}
