// Package main is the askdocs CLI entry point.
package main

import (
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

	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/embedding"
	"github.com/askdocs/askdocs/internal/ingest"
	"github.com/askdocs/askdocs/internal/llm"
	"github.com/askdocs/askdocs/internal/loader"
	"github.com/askdocs/askdocs/internal/models"
	"github.com/askdocs/askdocs/internal/rag"
	"github.com/askdocs/askdocs/internal/server"
	"github.com/askdocs/askdocs/internal/storage"
	"github.com/askdocs/askdocs/internal/vectorstore"
	"github.com/askdocs/askdocs/internal/watcher"
	"github.com/askdocs/askdocs/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/askdocs/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "askdocs server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded (for saving, etc.).
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
	// API keys are commonly kept in a local .env during development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("askdocs version %s\n", version)
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
	debug := fs.Bool("debug", false, "enable debug logging (watch events, retrieval details, etc.)")
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

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ing := components.Ingester
	watchSvc := watcherService(cfg, ing, logger)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	watchSvc.IngestExistingFiles()

	srv := server.NewServer(
		components.Answerer,
		components.Ingester,
		components.Storage,
		components.Store,
		cfg,
		logger,
	)
	srv.EnableWatch(watchSvc, resolvedConfigPath)
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

func watcherService(cfg *config.Config, ing *ingest.Ingester, logger *zap.Logger) *watcher.Watcher {
	return watcher.New(
		cfg.Watch.Directories,
		cfg.Watch.Extensions,
		cfg.Watch.RecursiveOrDefault(),
		func(path string) {
			summary := ing.Ingest(context.Background(), path)
			if summary.Status != models.StatusOK {
				logger.Warn("watch ingest failed",
					zap.String("path", path),
					zap.Strings("errors", summary.Errors),
				)
			}
		},
		logger,
	)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = run the pipeline locally)`)
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: askdocs ingest [flags] <file-or-directory>")
		os.Exit(1)
	}
	path, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		fmt.Printf("Invalid path: %v\n", err)
		os.Exit(1)
	}

	var summary *models.IngestSummary
	if *serverURL != "" {
		summary, err = ingestViaHTTP(*serverURL, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ingest failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		summary = components.Ingester.Ingest(context.Background(), path)
	}

	printSummary(summary)
	if summary.Status != models.StatusOK {
		os.Exit(1)
	}
}

func ingestViaHTTP(serverURL, path string) (*models.IngestSummary, error) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var summary models.IngestSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &summary, nil
}

func printSummary(s *models.IngestSummary) {
	fmt.Printf("file:            %s\n", s.File)
	fmt.Printf("status:          %s\n", s.Status)
	fmt.Printf("pages_loaded:    %d\n", s.PagesLoaded)
	fmt.Printf("chunks_created:  %d\n", s.ChunksCreated)
	fmt.Printf("indexed_count:   %d\n", s.IndexedCount)
	for _, e := range s.Errors {
		fmt.Printf("error:           %s\n", e)
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = answer locally)`)
	historyFile := fs.String("history", "", "JSON file with prior conversation turns")
	debug := fs.Bool("debug", false, "include the reformulated question context in output")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: askdocs ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: askdocs ask [flags] <question>")
		os.Exit(1)
	}

	var history models.History
	if *historyFile != "" {
		data, err := os.ReadFile(*historyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read history: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &history); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to parse history: %v\n", err)
			os.Exit(1)
		}
	}

	var result *models.AnswerResult
	var err error
	if *serverURL != "" {
		result, err = askViaHTTP(*serverURL, question, history, *debug)
	} else {
		result, err = askDirect(*configPath, question, history, *debug)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Println(result.Answer)
		if len(result.Sources) > 0 {
			fmt.Println("\nSources:")
			for _, src := range result.Sources {
				fmt.Printf("  - %s: %s\n", src.Source, src.Snippet)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func askViaHTTP(serverURL, question string, history models.History, debug bool) (*models.AnswerResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"question": question,
		"history":  []models.Turn(history),
		"debug":    debug,
	})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/api/v1/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var result models.AnswerResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

func askDirect(configPath, question string, history models.History, debug bool) (*models.AnswerResult, error) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		return nil, err
	}
	defer components.Close()
	return components.Answerer.Answer(context.Background(), question, history, debug)
}

// statusResponse is the shape of GET /status.
type statusResponse struct {
	Documents int64                  `json:"documents"`
	Chunks    int64                  `json:"chunks"`
	IndexSize int                    `json:"index_size"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", `server URL (empty = read storage directly)`)
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status statusResponse
	if *serverURL != "" {
		res, err := statusViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		status = *res
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
			os.Exit(1)
		}
		defer components.Close()
		ctx := context.Background()
		docCount, err := components.Storage.CountDocuments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count documents failed: %v\n", err)
			os.Exit(1)
		}
		chunkCount, err := components.Storage.CountChunks(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Count chunks failed: %v\n", err)
			os.Exit(1)
		}
		indexSize := 0
		if handle, err := components.Store.Load(ctx); err == nil {
			indexSize = handle.Size()
		}
		status = statusResponse{
			Documents: docCount,
			Chunks:    chunkCount,
			IndexSize: indexSize,
			Config: map[string]interface{}{
				"embedding_model": cfg.Embedding.Model,
				"chat_model":      cfg.Chat.Model,
				"chunk_size":      cfg.Ingest.ChunkSize,
				"chunk_overlap":   cfg.Ingest.ChunkOverlap,
				"top_k":           cfg.Retrieval.TopK,
				"database_path":   cfg.Storage.DatabasePath,
				"index_dir":       cfg.Storage.IndexDir,
			},
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
		fmt.Printf("documents:   %d   # count of ingested documents\n", status.Documents)
		fmt.Printf("chunks:      %d   # count of text chunks\n", status.Chunks)
		fmt.Printf("index_size:  %d   # count of vectors in the index\n", status.IndexSize)
		if len(status.Config) > 0 {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_model", "chat_model", "chunk_size", "chunk_overlap", "top_k", "database_path", "index_dir"} {
				if v, ok := status.Config[key]; ok {
					fmt.Printf("%-16s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: askdocs watch <add|remove|list> [path]")
		fmt.Println("  askdocs watch add <path>     Add directory to watch")
		fmt.Println("  askdocs watch remove <path>  Remove directory from watch")
		fmt.Println("  askdocs watch list           List watched directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	_ = fs.Parse(os.Args[3:])
	switch sub {
	case "add":
		if fs.NArg() < 1 {
			fmt.Println("Usage: askdocs watch add <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		body, _ := json.Marshal(map[string]interface{}{"path": path, "ingest": true})
		resp, err := http.Post(*serverURL+"/api/v1/watch/directories", "application/json", bytes.NewReader(body))
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Add failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Added: %s\n", path)
	case "remove":
		if fs.NArg() < 1 {
			fmt.Println("Usage: askdocs watch remove <path>")
			os.Exit(1)
		}
		path, _ := filepath.Abs(fs.Arg(0))
		req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/watch/directories?path="+url.QueryEscape(path), nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("Remove failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		resp, err := http.Get(*serverURL + "/api/v1/watch/directories")
		if err != nil {
			fmt.Printf("Request failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Printf("List failed (%d): %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		var out struct {
			Directories []string `json:"directories"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			fmt.Printf("Parse failed: %v\n", err)
			os.Exit(1)
		}
		for _, d := range out.Directories {
			fmt.Println(d)
		}
	default:
		fmt.Printf("Unknown watch subcommand: %s\n", sub)
		os.Exit(1)
	}
}

// Components holds initialized services.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Store    *vectorstore.Store
	Ingester *ingest.Ingester
	Answerer *rag.Answerer
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedClient, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:     os.Getenv(cfg.Embedding.APIKeyEnv),
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedding client (set %s): %w", cfg.Embedding.APIKeyEnv, err)
	}
	embedder := embedding.NewCachedEmbedder(embedClient, cfg.Embedding.CacheSize)

	chatClient, err := llm.NewClient(llm.ClientConfig{
		APIKey:      os.Getenv(cfg.Chat.APIKeyEnv),
		BaseURL:     cfg.Chat.BaseURL,
		Model:       cfg.Chat.Model,
		Temperature: cfg.Chat.Temperature,
		Timeout:     time.Duration(cfg.Chat.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize chat client (set %s): %w", cfg.Chat.APIKeyEnv, err)
	}

	vs := vectorstore.NewStore(cfg.Storage.IndexDir, cfg.Storage.IndexName, embedder, logger)

	ld := loader.NewFileLoader(cfg.Ingest.Extensions, logger)
	chunker := ingest.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap, logger)
	ing := ingest.NewIngester(ld, chunker, store, vs, cfg.Ingest.DeleteAfterIndex, logger)

	retriever := rag.NewRetriever(vs, store, chatClient, cfg.Retrieval.TopK, cfg.Retrieval.ChunkBudget, logger)
	answerer := rag.NewAnswerer(retriever, chatClient, cfg.Retrieval.SnippetChars, logger)

	return &Components{
		Storage:  store,
		Embedder: embedder,
		Store:    vs,
		Ingester: ing,
		Answerer: answerer,
	}, nil
}

func printUsage() {
	fmt.Println(`askdocs - Ask questions about your documents

Usage:
  askdocs server [flags]            Start the HTTP server
  askdocs ingest [flags] <path>     Ingest a file or directory
  askdocs ask [flags] <question>    Ask a question about ingested documents
  askdocs status [flags]            Show storage and index status
  askdocs watch <add|remove|list>   Manage watched directories
  askdocs version                   Show version
  askdocs help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/askdocs/config.yaml)
  --debug            Enable debug logging (watch events, retrieval details, etc.)

Ingest Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to run the pipeline locally.

Ask Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to answer locally.
  --history string   JSON file with prior conversation turns
  --debug            Include prior turns in the response for inspection
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for local mode)
  --server string    Server URL (default: http://localhost:8080). Use empty (--server "") to read storage directly.
  --output string    Output format: text or json (default: text)

Watch Flags:
  --server string    Server URL (default: http://localhost:8080)

Examples:
  askdocs server
  askdocs ingest ./docs/handbook.pdf
  askdocs ask "what is the refund policy?"
  askdocs ask --history chat.json "and for enterprise customers?"
  askdocs ask --output json "what changed in v2?"
  askdocs status
  askdocs watch add /path/to/docs
  askdocs watch list`)
}
