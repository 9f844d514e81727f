// Package main is the Kotae CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/rag"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/store"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so that running from the project
// dir picks up the project's config.
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
	// Missing .env is fine; the environment may carry the keys already.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "index":
		runIndex()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "summary":
		runSummary()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// components bundles everything a command needs, with a single Close.
type components struct {
	Config *config.Config
	Store  *store.Engine
	System *rag.System
	Logger *zap.Logger
}

func (c *components) Close() {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil && c.Logger != nil {
			c.Logger.Warn("store close failed", zap.Error(err))
		}
	}
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

func initialize(configPath string, debugFlag bool) (*components, error) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	debug := cfg.Debug || debugFlag
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.Info("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	emb, err := newEmbedder(&cfg.Embedding)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg)
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg.Storage.DataDir, cfg.Embedding.Dimensions, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &components{
		Config: cfg,
		Store:  st,
		System: rag.New(cfg, st, emb, gen, logger),
		Logger: logger,
	}, nil
}

func newEmbedder(cfg *config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "openai", "":
		return embedding.NewOpenAIEmbedder(cfg.Model, cfg.Dimensions)
	case "onnx":
		return embedding.NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens, cfg.CacheSize)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimensions), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
}

func newGenerator(cfg *config.Config) (answer.Generator, error) {
	// The mock provider is for local development without API access, so it
	// pairs with a canned generator instead of a real model.
	if cfg.Embedding.Provider == "mock" {
		return staticGenerator{}, nil
	}
	return answer.NewOpenAIGenerator(cfg.Generation.Model, cfg.Generation.MaxTokens, cfg.Generation.Temperature)
}

type staticGenerator struct{}

func (staticGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return "The retrieved context is shown above the question; no language model is configured. " +
		"First context line: " + firstLine(prompt), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	c, err := initialize(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
	logger := c.Logger

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if c.Config.Watch.Enabled {
		roots := []watcher.Root{
			{Dir: c.Config.Sources.PDFDir, Extension: ".pdf"},
			{Dir: c.Config.Sources.TranscriptDir, Extension: ".json"},
		}
		opts := []watcher.Option{}
		if c.Config.Debug || *debug {
			opts = append(opts, watcher.WithLogger(logger))
		}
		w := watcher.New(roots,
			func(path string) {
				if err := c.System.IndexFile(context.Background(), path); err != nil {
					logger.Warn("watch index failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				if err := c.System.RemoveFile(context.Background(), path); err != nil {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			opts...,
		)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(c.System, &c.Config.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
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

func runIndex() {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	rebuild := fs.Bool("rebuild", false, "rebuild the index from scratch instead of updating in place")
	_ = fs.Parse(os.Args[2:])

	c, err := initialize(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	mode := models.IndexIncremental
	if *rebuild {
		mode = models.IndexRebuild
	}
	report, err := c.System.BuildIndex(context.Background(), mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Index build failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %d chunk(s), skipped %d source(s), failed %d\n",
		report.Indexed, report.Skipped, report.Failed)
	for _, f := range report.Failures {
		fmt.Printf("  failed: %s\n", f)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	jsonOut := fs.Bool("json", false, "print the full answer as JSON")
	_ = fs.Parse(os.Args[2:])

	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Usage: kotae ask [flags] <question>")
		os.Exit(1)
	}

	c, err := initialize(*configPath, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	ans, err := c.System.AnswerQuestion(context.Background(), question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Question failed: %v\n", err)
		os.Exit(1)
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ans)
		return
	}
	fmt.Println(ans.Text)
	if len(ans.Citations) > 0 {
		fmt.Println("\nSources:")
		for i, cit := range ans.Citations {
			fmt.Printf("  [%d] %s\n", i+1, cit.Label())
		}
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	c, err := initialize(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	stats := c.System.Stats()
	fmt.Printf("Generation:  %d\n", stats.Generation)
	fmt.Printf("Documents:   %d (%d chunks)\n", len(stats.PDFSources), stats.PDFChunks)
	fmt.Printf("Transcripts: %d (%d chunks)\n", len(stats.VideoSources), stats.VideoChunks)
}

func runSummary() {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	c, err := initialize(*configPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()

	sum, err := c.System.KnowledgeSummary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Summary failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(sum.Overview)
	if len(sum.Topics) > 0 {
		fmt.Printf("\nTopics: %s\n", strings.Join(sum.Topics, ", "))
	}
	if len(sum.SuggestedQuestions) > 0 {
		fmt.Println("\nTry asking:")
		for _, q := range sum.SuggestedQuestions {
			fmt.Printf("  - %s\n", q)
		}
	}
}

func printUsage() {
	fmt.Println(`Kotae - question answering over PDF documents and video transcripts

Usage:
  kotae server  [-config path] [-debug]            Start the HTTP API server
  kotae index   [-config path] [-rebuild]          Build or update the index
  kotae ask     [-config path] [-json] <question>  Ask a question
  kotae status  [-config path]                     Show index contents
  kotae summary [-config path]                     Show the knowledge summary
  kotae version                                    Show version
  kotae help                                       Show this help`)
}
