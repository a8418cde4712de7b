package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/miftah/internal/app"
	"github.com/hyperjump/miftah/internal/cli"
	"github.com/hyperjump/miftah/internal/config"
	"github.com/hyperjump/miftah/internal/export"
	"github.com/hyperjump/miftah/internal/models"
)

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"straight path", "-limit", "5"},
			expected: []string{"-limit", "5", "straight path"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-fuzzy", "hony"},
			expected: []string{"-fuzzy", "hony"},
		},
		{
			name:     "dataset then filters",
			args:     []string{"facts", "--category", "medical"},
			expected: []string{"--category", "medical", "facts"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"mercy"}, "mercy"},
		{"multiple words", []string{"straight", "path"}, "straight path"},
		{"quoted phrase", []string{"straight path"}, "straight path"},
		{"empty", nil, ""},
		{"whitespace only", []string{"  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSearchQuery(tt.args); got != tt.expected {
				t.Errorf("buildSearchQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	got, err := parseKinds("facts, verse")
	if err != nil {
		t.Fatal(err)
	}
	want := []models.RecordKind{models.KindFact, models.KindVerse}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseKinds = %v, want %v", got, want)
	}
	if got, err := parseKinds(""); err != nil || got != nil {
		t.Errorf("empty kinds = %v, %v", got, err)
	}
	if _, err := parseKinds("facts,poems"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestFilterFlags(t *testing.T) {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	filters := addFilterFlags(fs)
	if err := fs.Parse(argsReorder([]string{"verses", "--surah", "112", "--place", "Meccan", "--sort", "ayah"})); err != nil {
		t.Fatal(err)
	}
	kind, err := datasetArg(fs)
	if err != nil || kind != models.KindVerse {
		t.Fatalf("datasetArg = %v, %v", kind, err)
	}
	want := models.FilterState{Surah: 112, Place: "Meccan", SortBy: "ayah"}
	if got := filters.state(); got != want {
		t.Errorf("state = %+v, want %+v", got, want)
	}

	empty := flag.NewFlagSet("export", flag.ContinueOnError)
	_ = empty.Parse(nil)
	if _, err := datasetArg(empty); err == nil {
		t.Error("expected error when dataset is missing")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := writeDefaultConfig(path, filepath.Join(dir, "data"), false); err != nil {
		t.Fatal(err)
	}
	if err := writeDefaultConfig(path, "", false); err == nil {
		t.Error("expected error when config exists without force")
	}

	cfg, loaded, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != path {
		t.Errorf("loaded path = %q, want %q", loaded, path)
	}
	if cfg.Data.Directory != filepath.Join(dir, "data") {
		t.Errorf("data directory = %q", cfg.Data.Directory)
	}
	if cfg.Pagination.Facts != config.DefaultFactsPageSize {
		t.Errorf("facts page size = %d", cfg.Pagination.Facts)
	}

	if _, _, err := loadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing path")
	}
}

func TestWriteDefaultConfig_relativeDataDir(t *testing.T) {
	work := t.TempDir()
	t.Chdir(work)
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}

	for _, dataDir := range []string{"data", "./data"} {
		if err := writeDefaultConfig(path, dataDir, true); err != nil {
			t.Fatal(err)
		}
		cfg, _, err := loadConfig(path)
		if err != nil {
			t.Fatal(err)
		}
		if want := filepath.Join(cwd, "data"); cfg.Data.Directory != want {
			t.Errorf("--data %s: directory = %q, want %q", dataDir, cfg.Data.Directory, want)
		}
	}
}

func TestLoadConfig_defaultFallsBackToCwd(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  port: 9191\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, loaded, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9191 || !strings.HasSuffix(loaded, "config.yaml") {
		t.Errorf("port = %d, loaded = %q", cfg.Server.Port, loaded)
	}
}

func TestSearchViaHTTP(t *testing.T) {
	var got models.SearchQuery
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/search" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(models.SearchResponse{Query: got.Query, Total: 1})
	}))
	defer srv.Close()

	resp, err := searchViaHTTP(srv.URL+"/", &models.SearchQuery{Query: "honey", Limit: 3, Fuzzy: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Query != "honey" || resp.Total != 1 {
		t.Errorf("response = %+v", resp)
	}
	if got.Limit != 3 || !got.Fuzzy {
		t.Errorf("server saw %+v", got)
	}
}

func TestViaHTTP_errorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"dataset unavailable"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := searchViaHTTP(srv.URL, &models.SearchQuery{Query: "x"}); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("search error = %v", err)
	}
	if _, err := statusViaHTTP(srv.URL); err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("status error = %v", err)
	}
}

func TestStatusViaHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(app.Status{Verses: 14, Facts: 9})
	}))
	defer srv.Close()

	st, err := statusViaHTTP(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if st.Verses != 14 || st.Facts != 9 {
		t.Errorf("status = %+v", st)
	}
}

func TestNewLocalApp_listAndExport(t *testing.T) {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.BleveIndexPath = filepath.Join(t.TempDir(), "fuzzy.bleve")

	a, err := newLocalApp(cfg, false)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.Store() != nil {
		t.Error("one-shot app should not open the user store")
	}
	if _, err := os.Stat(cfg.Storage.BleveIndexPath); !os.IsNotExist(err) {
		t.Errorf("one-shot app should keep the fuzzy index in memory, stat: %v", err)
	}
	if cfg.Storage.BleveIndexPath == "" {
		t.Error("caller config must not be modified")
	}

	var sb strings.Builder
	err = writeList(t.Context(), &sb, a, models.KindVerse, models.FilterState{Surah: 112}, 1, cli.OutputCompact)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(sb.String()), "\n"); len(lines) != 4 {
		t.Errorf("compact list = %q", sb.String())
	}

	content, filename, err := a.Export(t.Context(), models.KindFact, models.FilterState{Category: "medical"}, export.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if filename != "facts.json" {
		t.Errorf("filename = %q", filename)
	}
	var rows []map[string]any
	if err := json.Unmarshal(content, &rows); err != nil || len(rows) != 2 {
		t.Errorf("export rows = %d, %v", len(rows), err)
	}
}
