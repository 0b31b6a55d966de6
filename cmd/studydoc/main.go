package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/api"
	"github.com/liliang-cn/studydoc/internal/config"
	embeddingollama "github.com/liliang-cn/studydoc/internal/embedding/ollama"
	"github.com/liliang-cn/studydoc/internal/indexer"
	"github.com/liliang-cn/studydoc/internal/llm"
	llmollama "github.com/liliang-cn/studydoc/internal/llm/ollama"
	"github.com/liliang-cn/studydoc/internal/pkg/logger"
	"github.com/liliang-cn/studydoc/internal/repository"
	"github.com/liliang-cn/studydoc/internal/service"
	"github.com/liliang-cn/studydoc/internal/vectorstore"
	"github.com/liliang-cn/studydoc/internal/vectorstore/memory"
	"github.com/liliang-cn/studydoc/internal/vectorstore/sqlite"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zlog := logger.New(cfg.Log.Path, cfg.Log.Production)
	defer zlog.Sync()

	// Initialize database
	db, err := repository.NewDB(cfg.Database.Path)
	if err != nil {
		zlog.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	documentRepo := repository.NewDocumentRepository(db)

	// Initialize vector store
	var store vectorstore.Store
	switch cfg.Index.Store {
	case "memory":
		store, err = memory.NewStore(cfg.Index.Dimension)
	default:
		store, err = sqlite.NewStore(cfg.Index.DBPath, cfg.Index.Dimension)
	}
	if err != nil {
		zlog.Fatal("Failed to initialize vector store", zap.Error(err))
	}
	defer store.Close()

	// Initialize indexing pipeline
	embedder := embeddingollama.NewProvider(cfg.LLM.BaseURL, cfg.LLM.EmbeddingModel)
	ix := indexer.New(embedder, store, zlog, indexer.Options{
		ChunkSize:     cfg.Index.ChunkSize,
		SearchLimit:   cfg.Index.SearchLimit,
		MinSimilarity: cfg.Index.MinSimilarity,
		QueryCacheTTL: cfg.Index.QueryCacheTTL,
	})

	// Initialize services
	documentService := service.NewDocumentService(documentRepo, ix, cfg.Storage.Documents, zlog)

	llmProvider := llmollama.NewProvider(cfg.LLM.BaseURL, cfg.LLM.Model)
	interactionService := service.NewInteractionService(llmProvider, llm.Options{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		TopK:        cfg.LLM.TopK,
		TopP:        cfg.LLM.TopP,
	}, documentService, zlog)

	// Setup router
	router := api.SetupRouter(documentService, interactionService, api.RouterConfig{
		APIKey:       cfg.Admin.APIKey,
		AllowOrigins: []string{"*"},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zlog.Info("Starting StudyDoc server", zap.String("address", cfg.Address()))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("Shutting down...")
	zlog.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Tear down live model workers before closing the stores they log to
	interactionService.CloseAll()

	zlog.Info("Server exited")
}
