// Package main is the Chishiki CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/chishiki/internal/cli"
	"github.com/hyperjump/chishiki/internal/config"
	"github.com/hyperjump/chishiki/internal/embedding"
	"github.com/hyperjump/chishiki/internal/knowledge"
	"github.com/hyperjump/chishiki/internal/models"
	"github.com/hyperjump/chishiki/internal/server"
	"github.com/hyperjump/chishiki/internal/store"
	"github.com/hyperjump/chishiki/pkg/utils"
)

var version = "dev"

const defaultServerURL = "http://127.0.0.1:4001"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "files":
		runFiles()
	case "delete":
		runDelete()
	case "rename":
		runRename()
	case "search":
		runSearch()
	case "context":
		runContext()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("chishiki version %s\n", version)
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
	configPath := fs.String("config", "", "config file path (optional)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	// A .env beside the binary can carry CHISHIKI_* overrides.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
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

	embedder := newEmbedder(cfg, logger)
	defer embedder.Close()

	st, err := store.Open(cfg.Storage.DataDir, cfg.Storage.Collection, embedder, logger)
	if err != nil {
		logger.Fatal("Failed to open knowledge store", zap.Error(err))
	}
	defer st.Close()

	service, err := knowledge.NewService(st, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize service", zap.Error(err))
	}

	srv := server.NewServer(service, st, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// newEmbedder returns the fastembed ONNX embedder, falling back to the
// deterministic hash embedder when model setup fails (e.g. no model cache
// and no network). The fallback keeps the service usable; retrieval quality
// is degraded and the log says so.
func newEmbedder(cfg *config.Config, logger *zap.Logger) embedding.Embedder {
	fe, err := embedding.NewFastEmbedder(cfg.Embedding.Model, cfg.Embedding.CacheDir)
	if err != nil {
		logger.Warn("embedding model unavailable, using hash fallback",
			zap.String("model", cfg.Embedding.Model),
			zap.Error(err),
		)
		return embedding.NewHashEmbedder(0)
	}
	logger.Info("embedding model loaded", zap.String("model", cfg.Embedding.Model))
	return fe
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chishiki upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read file: %v\n", err)
		os.Exit(1)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	if _, err := part.Write(content); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build request: %v\n", err)
		os.Exit(1)
	}
	_ = mw.Close()

	resp, err := http.Post(*serverURL+"/api/upload", mw.FormDataContentType(), &body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.UploadResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Message)
	if out.File != nil {
		fmt.Printf("File ID: %s\n", out.File.ID)
	}
}

func runFiles() {
	fs := flag.NewFlagSet("files", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	resp, err := http.Get(*serverURL + "/api/files")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.FileListResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteFileList(os.Stdout, &out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chishiki delete [flags] <file-id>")
		os.Exit(1)
	}
	fileID := fs.Arg(0)
	req, _ := http.NewRequest(http.MethodDelete, *serverURL+"/api/files/"+url.PathEscape(fileID), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.DeleteResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Delete failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Message)
}

func runRename() {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 2 {
		fmt.Println("Usage: chishiki rename [flags] <file-id> <new-name>")
		os.Exit(1)
	}
	fileID, newName := fs.Arg(0), fs.Arg(1)
	target := *serverURL + "/api/files/" + url.PathEscape(fileID) + "/rename?new_name=" + url.QueryEscape(newName)
	req, _ := http.NewRequest(http.MethodPut, target, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.UploadResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Rename failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Message)
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	limit := fs.Int("limit", 5, "number of results")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chishiki search [flags] <query>")
		os.Exit(1)
	}
	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	query := fs.Arg(0)
	target := fmt.Sprintf("%s/api/search?query=%s&limit=%d", *serverURL, url.QueryEscape(query), *limit)
	resp, err := http.Get(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.SearchResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, &out, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runContext() {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	limit := fs.Int("limit", 3, "number of chunks")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: chishiki context [flags] <query>")
		os.Exit(1)
	}
	query := fs.Arg(0)
	target := fmt.Sprintf("%s/api/context?query=%s&limit=%d", *serverURL, url.QueryEscape(query), *limit)
	resp, err := http.Get(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out models.ContextResponse
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Context retrieval failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Context)
	if len(out.Sources) > 0 {
		fmt.Printf("\nSources: %v\n", out.Sources)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	_ = fs.Parse(os.Args[2:])

	resp, err := http.Get(*serverURL + "/api/status")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := decodeResponse(resp, &out); err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// decodeResponse decodes a JSON body into v, turning non-2xx statuses into
// errors carrying the server's error message.
func decodeResponse(resp *http.Response, v interface{}) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func printUsage() {
	fmt.Println(`chishiki - Local knowledge base with semantic retrieval

Usage:
  chishiki server [flags]                 Start the HTTP server
  chishiki upload [flags] <file>          Upload a document
  chishiki files [flags]                  List uploaded files
  chishiki delete [flags] <file-id>       Delete a file and its chunks
  chishiki rename [flags] <file-id> <new-name>  Rename a file
  chishiki search [flags] <query>         Search stored chunks
  chishiki context [flags] <query>        Retrieve chat context for a query
  chishiki status [flags]                 Show store status
  chishiki version                        Show version
  chishiki help                           Show this help

Server Flags:
  --config string    Config file path (optional; CHISHIKI_* env vars also apply)
  --debug            Enable debug logging

Client Flags (upload, files, delete, rename, search, context, status):
  --server string    Server URL (default: http://127.0.0.1:4001)
  --limit int        Result count for search (default 5) and context (default 3)
  --output string    Output format for files/search: text or json (default: text)

Examples:
  chishiki server
  chishiki upload report.pdf
  chishiki files
  chishiki search "quarterly revenue"
  chishiki context "quarterly revenue"
  chishiki rename 4f1c... report-2024.pdf
  chishiki delete 4f1c...`)
}
