// Package main is the Miftah CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/miftah/internal/app"
	"github.com/hyperjump/miftah/internal/cli"
	"github.com/hyperjump/miftah/internal/config"
	"github.com/hyperjump/miftah/internal/export"
	"github.com/hyperjump/miftah/internal/models"
	"github.com/hyperjump/miftah/internal/server"
	"github.com/hyperjump/miftah/internal/watcher"
	"github.com/hyperjump/miftah/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/miftah/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory takes precedence if present. When the default file
// does not exist at all, built-in defaults are used so the bundled corpus
// works without any setup. Returns the config and the path actually loaded
// ("" for built-in defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				cfg, err := config.Load(fallback)
				if err != nil {
					return nil, "", err
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", cfg.Validate()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "list":
		runList()
	case "export":
		runExport()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("miftah version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.String("data_directory", cfg.Data.Directory),
	)

	a, err := app.New(cfg, app.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Warm(ctx); err != nil {
		logger.Warn("initial dataset load failed; requests will retry", zap.Error(err))
	}

	srv := server.NewServer(a, &cfg.Server, logger)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if cfg.Data.Watch {
		w := watcher.NewWatcher(cfg.Data.Directory, func(paths []string) {
			gen := a.Reload()
			logger.Info("corpus reloaded", zap.Strings("paths", paths), zap.Uint64("generation", gen))
		}, watcher.WithLogger(logger.Named("watcher")))
		g.Go(func() error { return w.Run(gctx) })
	}
	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		os.Exit(1)
	}
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse sees them.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// parseKinds parses a comma-separated list of record kinds.
func parseKinds(s string) ([]models.RecordKind, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var kinds []models.RecordKind
	for _, name := range strings.Split(s, ",") {
		kind, err := models.ParseRecordKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// newLocalApp builds an in-process app for one-shot commands. The fuzzy index
// stays in memory so a running server's on-disk index is never locked.
func newLocalApp(cfg *config.Config, debug bool) (*app.App, error) {
	local := *cfg
	local.Storage.BleveIndexPath = ""
	logger := zap.NewNop()
	if debug || cfg.Debug {
		if l, err := utils.NewLogger(true); err == nil {
			logger = l
		}
	}
	return app.New(&local, app.WithLogger(logger), app.WithoutUserStore())
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: miftah search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Searches verses, narrations, and facts at once. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  miftah search straight path
  miftah search --kinds facts,narrations barley
  miftah search --fuzzy hony                        # typo-tolerant search
  miftah search --server http://localhost:8080 --output json mercy
`)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = search in-process)")
	limit := fs.Int("limit", 10, "number of results")
	fuzzy := fs.Bool("fuzzy", false, "use the typo-tolerant index")
	kindsFlag := fs.String("kinds", "", "comma-separated record kinds: verse, narration, fact")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	kinds, err := parseKinds(*kindsFlag)
	if err != nil {
		fatalf("%v", err)
	}
	query := &models.SearchQuery{Query: queryStr, Limit: *limit, Fuzzy: *fuzzy, Kinds: kinds}

	var response *models.SearchResponse
	if *serverURL != "" {
		response, err = searchViaHTTP(*serverURL, query)
	} else {
		cfg, _, cerr := loadConfig(*configPath)
		if cerr != nil {
			fatalf("Failed to load config: %v", cerr)
		}
		a, aerr := newLocalApp(cfg, *debug)
		if aerr != nil {
			fatalf("Failed to initialize: %v", aerr)
		}
		defer a.Close()
		response, err = a.Search(context.Background(), query)
	}
	if err != nil {
		fatalf("Search failed: %v", err)
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fatalf("%v", err)
	}
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/search", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// filterFlags registers the dataset filter flags shared by list and export.
type filterFlags struct {
	search   *string
	category *string
	surah    *int
	place    *string
	sort     *string
}

func addFilterFlags(fs *flag.FlagSet) *filterFlags {
	return &filterFlags{
		search:   fs.String("search", "", "case-insensitive free-text filter"),
		category: fs.String("category", "", "fact type or narration collection"),
		surah:    fs.Int("surah", 0, "surah number (verses only)"),
		place:    fs.String("place", "", "place of revelation: Meccan or Medinan (verses only)"),
		sort:     fs.String("sort", "", "sort key (dataset default when empty)"),
	}
}

func (f *filterFlags) state() models.FilterState {
	return models.FilterState{
		SearchTerm: *f.search,
		Category:   *f.category,
		Surah:      *f.surah,
		Place:      *f.place,
		SortBy:     *f.sort,
	}
}

// datasetArg returns the record kind named by the first positional argument.
func datasetArg(fs *flag.FlagSet) (models.RecordKind, error) {
	if fs.NArg() < 1 {
		return "", errors.New("dataset required: verses, narrations, or facts")
	}
	return models.ParseRecordKind(fs.Arg(0))
}

func runList() {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	page := fs.Int("page", 1, "page number")
	outputFormat := fs.String("output", "text", "output format: text, compact, or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	filters := addFilterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: miftah list [flags] <verses|narrations|facts>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	kind, err := datasetArg(fs)
	if err != nil {
		fs.Usage()
		fatalf("%v", err)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	a, err := newLocalApp(cfg, *debug)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	if err := writeList(context.Background(), os.Stdout, a, kind, filters.state(), *page, format); err != nil {
		fatalf("List failed: %v", err)
	}
}

func writeList(ctx context.Context, w io.Writer, a *app.App, kind models.RecordKind, state models.FilterState, page int, format cli.OutputFormat) error {
	switch kind {
	case models.KindVerse:
		p, err := a.Verses(ctx, state, page)
		if err != nil {
			return err
		}
		return cli.WritePage(w, p, format, cli.DescribeVerse)
	case models.KindNarration:
		p, err := a.Narrations(ctx, state, page)
		if err != nil {
			return err
		}
		return cli.WritePage(w, p, format, cli.DescribeNarration)
	default:
		p, err := a.Facts(ctx, state, page)
		if err != nil {
			return err
		}
		return cli.WritePage(w, p, format, cli.DescribeFact)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	formatFlag := fs.String("format", "csv", "export format: csv, json, or xlsx")
	out := fs.String("out", "", "output file (default <dataset>.<format>; - for stdout)")
	debug := fs.Bool("debug", false, "enable debug logging")
	filters := addFilterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: miftah export [flags] <verses|narrations|facts>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(argsReorder(os.Args[2:]))

	kind, err := datasetArg(fs)
	if err != nil {
		fs.Usage()
		fatalf("%v", err)
	}
	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	a, err := newLocalApp(cfg, *debug)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	content, filename, err := a.Export(context.Background(), kind, filters.state(), format)
	if err != nil {
		fatalf("Export failed: %v", err)
	}
	if *out == "-" {
		_, _ = os.Stdout.Write(content)
		return
	}
	path := *out
	if path == "" {
		path = filename
	}
	if err := export.WriteFile(path, content); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote %d bytes to %s\n", len(content), path)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = load the corpus in-process)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fatalf("%v", err)
	}
	var st *app.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(*serverURL)
	} else {
		cfg, _, cerr := loadConfig(*configPath)
		if cerr != nil {
			fatalf("Failed to load config: %v", cerr)
		}
		a, aerr := newLocalApp(cfg, false)
		if aerr != nil {
			fatalf("Failed to initialize: %v", aerr)
		}
		defer a.Close()
		st, err = a.Status(context.Background())
	}
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fatalf("%v", err)
	}
}

func statusViaHTTP(serverURL string) (*app.Status, error) {
	u, err := url.JoinPath(serverURL, "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var st app.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &st, nil
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	dataDir := fs.String("data", "", "data directory (empty = bundled corpus)")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*path, *dataDir, *force); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote default config to %s\n", *path)
}

// writeDefaultConfig saves a config with every default filled in. A relative
// dataDir is resolved against the working directory and stored absolute.
func writeDefaultConfig(path, dataDir string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if dataDir != "" {
		abs, err := filepath.Abs(dataDir)
		if err != nil {
			return fmt.Errorf("resolve data directory: %w", err)
		}
		dataDir = abs
	}
	cfg := &config.Config{Data: config.DataConfig{Directory: dataDir}}
	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(path, cfg)
}

func printUsage() {
	fmt.Println(`Miftah - Islamic knowledge explorer

Usage:
  miftah <command> [flags]

Commands:
  server    Start the HTTP API server
  search    Search verses, narrations, and facts
  list      List one page of a dataset (verses, narrations, facts)
  export    Export a filtered dataset to csv, json, or xlsx
  status    Show corpus counts and index state
  init      Write a default config file
  version   Show version
  help      Show this help

Run 'miftah <command> -h' for command flags.`)
}
