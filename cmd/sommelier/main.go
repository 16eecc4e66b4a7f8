// Package main is the sommelier CLI entry point.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/hyperjump/sommelier/internal/blob"
	"github.com/hyperjump/sommelier/internal/cli"
	"github.com/hyperjump/sommelier/internal/config"
	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/openai"
	"github.com/hyperjump/sommelier/internal/recommend"
	"github.com/hyperjump/sommelier/internal/server"
	"github.com/hyperjump/sommelier/internal/storage"
	"github.com/hyperjump/sommelier/internal/tasting"
	"github.com/hyperjump/sommelier/internal/winelist"
	"github.com/hyperjump/sommelier/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/sommelier/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml in the
// current directory wins (for development); when neither exists the environment and
// defaults are used. Returns the config and the path that was actually loaded.
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
		if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
			cfg, err := config.Load("")
			if err != nil {
				return nil, "", err
			}
			return cfg, "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// Secrets such as OPEN_AI_API_KEY usually live in .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "recommend":
		runRecommend()
	case "corpus":
		runCorpus()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("sommelier version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	preload := fs.Bool("preload", true, "load the corpus in the background at startup")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
		zap.Int("k", cfg.Recommend.K),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	if *preload {
		go func() {
			if _, err := components.Loader.Load(ctx); err != nil {
				logger.Warn("corpus preload failed; will retry on first request", zap.Error(err))
			}
		}()
	}

	srv := server.NewServer(
		components.Recommender,
		components.Wines,
		components.Tasting,
		components.Storage,
		&cfg.Server,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// printRecommendUsage prints recommend subcommand usage.
func printRecommendUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: sommelier recommend [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  sommelier recommend bright red cherry with soft tannins
  sommelier recommend --output json "buttery oak"
  sommelier recommend --server "" smoky peat    # no server, load the corpus directly
`)
}

// buildQuery joins all positional args with spaces so multi-word queries work the same
// with or without shell quoting.
func buildQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the query to the front
// of the slice so that flag.Parse() sees them.
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

func runRecommend() {
	fs := flag.NewFlagSet("recommend", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = load the corpus and call the AI API directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printRecommendUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	query := buildQuery(fs.Args())
	if query == "" {
		printRecommendUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var res *recommend.Result
	if *serverURL != "" {
		res, err = recommendViaHTTP(*serverURL, query)
	} else {
		res, err = recommendDirect(*configPath, query)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteRecommendation(os.Stdout, query, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func recommendDirect(configPath, query string) (*recommend.Result, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	ctx := context.Background()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Recommender.Recommend(ctx, query)
}

func recommendViaHTTP(serverURL, query string) (*recommend.Result, error) {
	body, err := json.Marshal(models.RecommendationRequest{Query: query})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/recommendations", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var res recommend.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

// runCorpus loads the corpus once and prints its shape. Useful to check a new export
// before deploying it.
func runCorpus() {
	fs := flag.NewFlagSet("corpus", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	file := fs.String("file", "", "read the corpus from this local CSV instead of the configured source")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *file != "" {
		cfg.Corpus.Path = *file
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	src, err := newCorpusSource(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create corpus source: %v\n", err)
		os.Exit(1)
	}
	loader := newLoader(src, cfg, logger)
	if _, err := loader.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Corpus load failed: %v\n", err)
		os.Exit(1)
	}
	svc := recommend.NewService(loader, nil, recommend.WithK(cfg.Recommend.K))
	if err := cli.WriteStatus(os.Stdout, svc.Status(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("Wines:           %d\n", status.Wines)
	fmt.Printf("Tasting notes:   %d\n", status.TastingNotes)
	if status.DiskUsageBytes != nil {
		fmt.Printf("Database bytes:  %d\n", *status.DiskUsageBytes)
	}
	_ = cli.WriteStatus(os.Stdout, status.Recommender, cli.OutputText)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Wines          int64            `json:"wines"`
	TastingNotes   int64            `json:"tasting_notes"`
	DiskUsageBytes *int64           `json:"disk_usage_bytes,omitempty"`
	Recommender    recommend.Status `json:"recommender"`
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &status, nil
}

// Components holds initialized services.
type Components struct {
	Storage     storage.Storage
	Loader      *corpus.Loader
	AI          *openai.Client
	Embedder    embedding.Embedder
	Recommender *recommend.Service
	Wines       *winelist.Service
	Tasting     *tasting.Service
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func newCorpusSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (corpus.Source, error) {
	if cfg.Corpus.Path != "" {
		logger.Info("corpus source", zap.String("path", cfg.Corpus.Path))
		return blob.NewFileSource(cfg.Corpus.Path), nil
	}
	s3cfg := blob.S3Config{
		Region:         cfg.Corpus.Region,
		Bucket:         cfg.Corpus.Bucket,
		Key:            cfg.Corpus.Key,
		Endpoint:       cfg.Corpus.Endpoint,
		ForcePathStyle: cfg.Corpus.ForcePathStyle,
		Retry:          cfg.Retry,
	}
	client, err := blob.NewS3Client(ctx, s3cfg)
	if err != nil {
		return nil, err
	}
	src, err := blob.NewS3Source(client, s3cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus source", zap.String("object", src.String()))
	return src, nil
}

func newLoader(src corpus.Source, cfg *config.Config, logger *zap.Logger) *corpus.Loader {
	return corpus.NewLoader(src,
		corpus.WithLogger(logger),
		corpus.WithColumns(cfg.Corpus.Columns),
		corpus.WithFetchTimeout(cfg.Corpus.FetchTimeout),
	)
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	src, err := newCorpusSource(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize corpus source: %w", err)
	}
	loader := newLoader(src, cfg, logger)

	ai, err := openai.NewClient(openai.Config{
		BaseURL: cfg.OpenAI.URL,
		APIKey:  cfg.OpenAI.APIKey,
		Timeout: cfg.OpenAI.Timeout,
		Retry:   cfg.Retry,
		Breaker: cfg.Breaker,
	}, openai.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}
	embedder, err := embedding.NewCachedEmbedder(ai, cfg.Embedding.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	recommender := recommend.NewService(loader, embedder,
		recommend.WithK(cfg.Recommend.K),
		recommend.WithModels(cfg.OpenAI.SimilarityModel, cfg.OpenAI.SearchModel),
		recommend.WithLogger(logger),
	)
	wines := winelist.NewService(store, ai,
		winelist.WithModels(cfg.OpenAI.SimilarityModel, cfg.OpenAI.SearchModel),
		winelist.WithLogger(logger),
	)
	tastingSvc := tasting.NewService(ai, tasting.Models{
		Completion: cfg.OpenAI.CompletionModel,
		Reimagine:  cfg.OpenAI.ReimagineModel,
		Chat:       cfg.OpenAI.ChatModel,
		Edit:       cfg.OpenAI.EditModel,
	}, logger)

	return &Components{
		Storage:     store,
		Loader:      loader,
		AI:          ai,
		Embedder:    embedder,
		Recommender: recommender,
		Wines:       wines,
		Tasting:     tastingSvc,
	}, nil
}

func printUsage() {
	fmt.Println(`sommelier - Wine tasting-note recommendations

Usage:
  sommelier server [flags]              Start the HTTP server
  sommelier recommend [flags] <query>   Recommend tasting notes for a description
  sommelier corpus [flags]              Load the embeddings corpus and print its shape
  sommelier status [flags]              Show server status
  sommelier version                     Show version
  sommelier help                        Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/sommelier/config.yaml)
  --debug            Enable debug logging
  --preload          Load the corpus at startup (default: true)

Recommend Flags:
  --config string    Config file path (direct mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to run without a server.
  --output string    Output format: text or json (default: text)

Corpus Flags:
  --config string    Config file path
  --file string      Local CSV to load instead of the configured bucket
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Server URL (default: http://localhost:8080)
  --output string    Output format: text or json (default: text)

Environment:
  OPEN_AI_API_KEY, OPEN_AI_API_URL, BUCKET_NAME, REGION, DATABASE_PATH, PORT
  A .env file in the working directory is loaded first.

Examples:
  sommelier server
  sommelier recommend "dark cherry, tobacco and firm tannins"
  sommelier recommend --output json citrus and flint
  sommelier corpus --file ./wine_tasting_notes_embeddings__curie_combined.csv`)
}
