// Package main is the Nagomi CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/artmeta"
	"github.com/nagomi-art/nagomi/internal/blocks"
	"github.com/nagomi-art/nagomi/internal/cli"
	"github.com/nagomi-art/nagomi/internal/collection"
	"github.com/nagomi-art/nagomi/internal/config"
	"github.com/nagomi-art/nagomi/internal/encoder"
	"github.com/nagomi-art/nagomi/internal/engine"
	"github.com/nagomi-art/nagomi/internal/generate"
	"github.com/nagomi-art/nagomi/internal/keywordidx"
	"github.com/nagomi-art/nagomi/internal/loader"
	"github.com/nagomi-art/nagomi/internal/models"
	"github.com/nagomi-art/nagomi/internal/server"
	"github.com/nagomi-art/nagomi/internal/session"
	"github.com/nagomi-art/nagomi/internal/watcher"
	"github.com/nagomi-art/nagomi/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/nagomi/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's settings. Returns the config and the path actually used.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys can live in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "embed":
		runEmbed()
	case "load":
		runLoad()
	case "recommend":
		runRecommend()
	case "chat":
		runChat()
	case "search":
		runSearch()
	case "serve":
		runServe()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("nagomi version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved))
	return cfg, logger
}

func runEmbed() {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	imageRoot := fs.String("images", "", "image tree to embed (default: dataset.image_root from config)")
	outDir := fs.String("out", "", "block output directory (default: dataset.blocks_dir from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	root := cfg.Dataset.ImageRoot
	if *imageRoot != "" {
		root = config.ExpandPath(*imageRoot)
	}
	dir := cfg.Dataset.BlocksDir
	if *outDir != "" {
		dir = config.ExpandPath(*outDir)
	}

	enc := newEncoder(cfg, logger)
	defer enc.Close()

	writer := blocks.NewWriter(enc, cfg.Dataset.BlockSize,
		blocks.WithExtensions(cfg.Dataset.Extensions),
		blocks.WithLogger(logger))

	ctx, cancel := signalContext()
	defer cancel()
	stats, err := writer.Build(ctx, root, dir)
	if err != nil {
		logger.Fatal("Embedding failed", zap.Error(err))
	}
	fmt.Printf("Embedded %d image(s) into %d block(s), %d skipped\n",
		stats.Embedded, stats.Blocks, stats.Skipped)
}

func runLoad() {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	blocksDir := fs.String("blocks", "", "block directory to load (default: dataset.blocks_dir from config)")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	dir := cfg.Dataset.BlocksDir
	if *blocksDir != "" {
		dir = config.ExpandPath(*blocksDir)
	}

	coll, err := collection.Open(cfg.Collection.Path, cfg.Collection.Name)
	if err != nil {
		logger.Fatal("Failed to open collection", zap.Error(err))
	}
	defer coll.Close()

	meta, err := keywordidx.Open(cfg.Collection.BleveIndexPath)
	if err != nil {
		logger.Fatal("Failed to open metadata index", zap.Error(err))
	}
	defer meta.Close()

	ld := loader.New(coll,
		loader.WithMetadataIndex(meta),
		loader.WithLogger(logger))

	ctx, cancel := signalContext()
	defer cancel()
	stats, err := ld.LoadAll(ctx, dir)
	if err != nil {
		logger.Fatal("Loading failed", zap.Error(err))
	}
	fmt.Printf("Loaded %d block(s) (%d record(s), %d skipped); collection now holds %d artwork(s)\n",
		stats.BlocksLoaded, stats.RecordsLoaded, stats.BlocksSkipped, stats.IndexCount)
}

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	serverURL := fs.String("server", "", "server URL (empty = run the engine in-process)")
	sessionID := fs.String("session", "", "server session ID to continue (with --server)")
	exclude := fs.String("exclude", "", "comma-separated artwork paths to exclude (in-process mode)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: nagomi recommend [flags] <mood...>")
		os.Exit(1)
	}
	mood := strings.TrimSpace(strings.Join(fs.Args(), " "))
	format, ok := parseFormat(*outputFormat)
	if !ok {
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	if *serverURL != "" {
		resp, err := recommendViaHTTP(*serverURL, mood, *sessionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteRecommendation(os.Stdout, resp.Recommendation, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		if format == cli.OutputText {
			fmt.Printf("\nSession: %s\n", resp.SessionID)
		}
		return
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	if components.Engine == nil {
		fmt.Fprintf(os.Stderr, "Recommendation needs a generation API key; set %s\n", cfg.Generation.APIKeyEnv)
		os.Exit(1)
	}

	exclusions := session.NewExclusions()
	for _, id := range strings.Split(*exclude, ",") {
		if id = strings.TrimSpace(id); id != "" {
			exclusions.Add(id)
		}
	}

	rec, err := components.Engine.Recommend(context.Background(), mood, exclusions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendation(os.Stdout, rec, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runChat() {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	if components.Engine == nil {
		fmt.Fprintf(os.Stderr, "Chat needs a generation API key; set %s\n", cfg.Generation.APIKeyEnv)
		os.Exit(1)
	}

	// One exclusion set for the whole conversation, so repeated moods keep
	// surfacing new artworks until the top ranks are exhausted.
	exclusions := session.NewExclusions()
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Nagomi. Tell me how you feel and I will find you an artwork. (q to quit)")
	for {
		fmt.Print("\nHow are you feeling today? > ")
		if !scanner.Scan() {
			break
		}
		mood := strings.TrimSpace(scanner.Text())
		if mood == "" {
			continue
		}
		if mood == "q" || mood == "quit" || mood == "exit" {
			break
		}
		rec, err := components.Engine.Recommend(context.Background(), mood, exclusions)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
			continue
		}
		if rec != nil {
			exclusions.Add(rec.Path)
		}
		_ = cli.WriteRecommendation(os.Stdout, rec, cli.OutputText)
	}
	fmt.Println("Take care.")
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	limit := fs.Int("limit", 10, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: nagomi search [flags] <query...>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	format, ok := parseFormat(*outputFormat)
	if !ok {
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	meta, err := keywordidx.Open(cfg.Collection.BleveIndexPath)
	if err != nil {
		logger.Fatal("Failed to open metadata index", zap.Error(err))
	}
	defer meta.Close()

	hits, err := meta.Search(context.Background(), query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchHits(os.Stdout, query, hits, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()
	if components.Engine == nil {
		logger.Fatal("Server needs a generation API key",
			zap.String("env", cfg.Generation.APIKeyEnv))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Dataset.Watch {
		w := newImageWatcher(cfg, components, logger)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(
		components.Engine,
		session.NewStore(),
		components.Collection,
		components.Metadata,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newImageWatcher wires filesystem events to the collection: settled images are
// encoded and upserted, removed images are deleted from both indices.
func newImageWatcher(cfg *config.Config, components *Components, logger *zap.Logger) *watcher.Watcher {
	onImage := func(path string) {
		ctx := context.Background()
		vec, err := components.Encoder.EncodeImage(ctx, path)
		if err != nil {
			logger.Warn("watch encode failed", zap.String("path", path), zap.Error(err))
			return
		}
		meta := artmeta.Parse(path)
		entry := collection.Entry{ID: path, Vector: vec, Metadata: meta}
		if err := components.Collection.Upsert(ctx, []collection.Entry{entry}); err != nil {
			logger.Warn("watch upsert failed", zap.String("path", path), zap.Error(err))
			return
		}
		if components.Metadata != nil {
			art := &models.Artwork{Path: path, Metadata: meta}
			if err := components.Metadata.Index(ctx, art); err != nil {
				logger.Warn("watch metadata index failed", zap.String("path", path), zap.Error(err))
			}
		}
		logger.Info("artwork indexed from watch", zap.String("path", path))
	}
	onRemove := func(path string) {
		ctx := context.Background()
		if err := components.Collection.Delete(ctx, []string{path}); err != nil {
			logger.Warn("watch delete failed", zap.String("path", path), zap.Error(err))
		}
		if components.Metadata != nil {
			if err := components.Metadata.Delete(path); err != nil {
				logger.Warn("watch metadata delete failed", zap.String("path", path), zap.Error(err))
			}
		}
		logger.Info("artwork removed from watch", zap.String("path", path))
	}
	opts := []watcher.Option{}
	if cfg.Debug {
		opts = append(opts, watcher.WithLogger(logger))
	}
	return watcher.New(cfg.Dataset.ImageRoot, cfg.Dataset.Extensions, onImage, onRemove, opts...)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = direct collection access)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]interface{}
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = res
	} else {
		cfg, logger := setup(*configPath, false)
		defer logger.Sync()

		coll, err := collection.Open(cfg.Collection.Path, cfg.Collection.Name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open collection: %v\n", err)
			os.Exit(1)
		}
		defer coll.Close()
		count, err := coll.Count(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count failed: %v\n", err)
			os.Exit(1)
		}
		status = map[string]interface{}{
			"artworks":        count,
			"collection":      cfg.Collection.Name,
			"collection_path": cfg.Collection.Path,
			"blocks_dir":      cfg.Dataset.BlocksDir,
			"image_root":      cfg.Dataset.ImageRoot,
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		for _, key := range []string{"artworks", "sessions", "metadata_indexed", "collection", "collection_path", "blocks_dir", "image_root"} {
			if v, ok := status[key]; ok {
				fmt.Printf("%-18s %v\n", key+":", v)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func recommendViaHTTP(serverURL, mood, sessionID string) (*models.RecommendResponse, error) {
	body, err := json.Marshal(models.RecommendRequest{Mood: mood, SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/recommend", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.RecommendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func statusViaHTTP(serverURL string) (map[string]interface{}, error) {
	u, err := url.JoinPath(serverURL, "/api/v1/status")
	if err != nil {
		return nil, err
	}
	resp, err := http.Get(u)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// parseFormat maps a flag value to an output format.
func parseFormat(s string) (cli.OutputFormat, bool) {
	switch s {
	case "text", "":
		return cli.OutputText, true
	case "json":
		return cli.OutputJSON, true
	default:
		return cli.OutputText, false
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Components holds initialized services shared by the subcommands.
type Components struct {
	Collection collection.Collection
	Metadata   *keywordidx.MetadataIndex
	Encoder    encoder.Encoder
	Generator  generate.Generator
	Engine     *engine.Engine
}

func (c *Components) Close() {
	if c.Collection != nil {
		_ = c.Collection.Close()
	}
	if c.Metadata != nil {
		_ = c.Metadata.Close()
	}
	if c.Encoder != nil {
		_ = c.Encoder.Close()
	}
}

// newEncoder returns the CLIP ONNX encoder, falling back to the deterministic
// mock when the models cannot be loaded so indexing still works offline.
func newEncoder(cfg *config.Config, logger *zap.Logger) encoder.Encoder {
	clip, err := encoder.NewCLIPEncoder(
		cfg.Encoder.TextModelPath,
		cfg.Encoder.VisualModelPath,
		cfg.Encoder.Dimensions,
		cfg.Encoder.MaxTokens,
		cfg.Encoder.CacheSize,
	)
	if err != nil {
		logger.Warn("CLIP encoder unavailable, using mock embeddings",
			zap.String("text_model", cfg.Encoder.TextModelPath),
			zap.Error(err))
		return encoder.NewMockEncoder(cfg.Encoder.Dimensions)
	}
	return clip
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	coll, err := collection.Open(cfg.Collection.Path, cfg.Collection.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection: %w", err)
	}

	meta, err := keywordidx.Open(cfg.Collection.BleveIndexPath)
	if err != nil {
		_ = coll.Close()
		return nil, fmt.Errorf("failed to open metadata index: %w", err)
	}

	enc := newEncoder(cfg, logger)

	components := &Components{
		Collection: coll,
		Metadata:   meta,
		Encoder:    enc,
	}

	// The engine is only available when a generation API key is configured.
	apiKey := os.Getenv(cfg.Generation.APIKeyEnv)
	if apiKey != "" {
		gen, err := generate.NewOpenRouterGenerator(apiKey, cfg.Generation.Model,
			time.Duration(cfg.Generation.TimeoutSec)*time.Second)
		if err != nil {
			components.Close()
			return nil, fmt.Errorf("failed to create generator: %w", err)
		}
		components.Generator = gen
		engOpts := []engine.Option{
			engine.WithTopK(cfg.Engine.TopK),
			engine.WithRecipeMaxKeywords(cfg.Engine.RecipeMaxKeywords),
		}
		if cfg.Debug {
			engOpts = append(engOpts, engine.WithLogger(logger))
		}
		components.Engine = engine.New(gen, enc, coll, engOpts...)
	} else {
		logger.Warn("generation API key not set, recommend/chat/serve are disabled",
			zap.String("env", cfg.Generation.APIKeyEnv))
	}

	return components, nil
}

func printUsage() {
	fmt.Println(`nagomi - mood-based artwork recommendations

Usage:
  nagomi embed [flags]              Embed an image tree into block files
  nagomi load [flags]               Load block files into the collection
  nagomi recommend [flags] <mood>   Recommend one artwork for a mood
  nagomi chat [flags]               Interactive recommendation loop
  nagomi search [flags] <query>     Keyword search over artwork metadata
  nagomi serve [flags]              Start the HTTP server
  nagomi status [flags]             Show collection status
  nagomi version                    Show version
  nagomi help                       Show this help

Common Flags:
  --config string    Config file path (default: /usr/local/etc/nagomi/config.yaml,
                     or ./config.yaml when present)
  --debug            Enable debug logging

Embed Flags:
  --images string    Image tree to embed (default from config)
  --out string       Block output directory (default from config)

Load Flags:
  --blocks string    Block directory to load (default from config)

Recommend Flags:
  --server string    Server URL (empty = run in-process)
  --session string   Server session ID to continue (with --server)
  --exclude string   Comma-separated artwork paths to exclude (in-process mode)
  --output string    Output format: text or json (default: text)

Search Flags:
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (empty = direct collection access)
  --output string    Output format: text or json (default: text)

Examples:
  nagomi embed --images ./art_dataset --out ./clip_blocks_output
  nagomi load
  nagomi recommend melancholic and tired
  nagomi chat
  nagomi search surrealism
  nagomi serve
  nagomi status --output json`)
}
