package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/mygoreply/internal/api"
	"github.com/timmy/mygoreply/internal/assets"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/embedding"
	"github.com/timmy/mygoreply/internal/index"
	"github.com/timmy/mygoreply/internal/layout"
	"github.com/timmy/mygoreply/internal/llm"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/ocr"
	"github.com/timmy/mygoreply/internal/repository"
	"github.com/timmy/mygoreply/internal/retrieval"
	"github.com/timmy/mygoreply/internal/service"
	"github.com/timmy/mygoreply/internal/storage"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv().WithService("mygoreply-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH is honoured for container deployments
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx := context.Background()

	lines, err := corpus.Load(cfg.Corpus.Path)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load corpus")
	}

	gen, err := llm.New(&cfg.LLM)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		appLogger.WithError(err).Warn("Embedding disabled, candidates are capped in corpus order")
		embedder = nil
	}

	searcher, indexSize, closeSearcher := openSearcher(ctx, cfg, embedder, lines.Len())
	defer closeSearcher()

	engine, err := retrieval.NewEngine(retrieval.Config{
		Corpus:       lines,
		Analyzer:     service.NewToneAnalyzer(gen),
		Selector:     service.NewReplySelector(gen),
		Embedder:     embedder,
		Searcher:     searcher,
		TopK:         cfg.Retrieval.TopK,
		AssetBaseURL: cfg.Corpus.AssetBaseURL,
		AssetExt:     cfg.Corpus.AssetExt,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize retrieval engine")
	}

	var fetcher service.AssetFetcher
	objectStorage, err := storage.NewStorage(ctx, &cfg.Storage)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		appLogger.Info("Object storage disabled, asset URLs point at the asset host")
	case err != nil:
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	default:
		fetcher = assets.NewFetcher(objectStorage, assets.Config{
			BaseURL: cfg.Corpus.AssetBaseURL,
			Ext:     cfg.Corpus.AssetExt,
			Prefix:  cfg.Storage.AssetPrefix,
		})
	}

	layoutOpts := layout.Options{
		ThresholdRatio: cfg.Layout.ThresholdRatio,
		MiddleLow:      cfg.Layout.MiddleLow,
		MiddleHigh:     cfg.Layout.MiddleHigh,
	}

	assistant := service.NewAssistant(
		service.NewScreenshotService(ocr.NewVisionClient(&cfg.OCR), layoutOpts),
		service.NewAnalysisService(gen),
		service.NewStickerService(engine, fetcher),
	)

	router := api.SetupRouter(api.Dependencies{
		Assistant:    assistant,
		Corpus:       lines,
		Layout:       layoutOpts,
		CorpusSize:   lines.Len(),
		IndexSize:    indexSize,
		AssetBaseURL: cfg.Corpus.AssetBaseURL,
		AssetExt:     cfg.Corpus.AssetExt,
	}, &cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":        cfg.Server.Port,
			"mode":        cfg.Server.Mode,
			"corpus_size": lines.Len(),
			"index_size":  indexSize,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// openSearcher returns the configured vector backend, or nil when vectors
// are unavailable. A missing or stale index only disables the top-K cap.
func openSearcher(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, corpusSize int) (index.Searcher, int, func()) {
	noop := func() {}
	log := logger.GetDefault()

	if embedder == nil || cfg.Retrieval.Backend == "none" {
		return nil, 0, noop
	}

	switch cfg.Retrieval.Backend {
	case "qdrant":
		repo, err := repository.NewQdrantRepository(&cfg.Qdrant, embedder.Dimensions())
		if err != nil {
			log.WithError(err).Warn("Qdrant unavailable, vector cap disabled")
			return nil, 0, noop
		}
		if err := repo.EnsureCollection(ctx); err != nil {
			log.WithError(err).Warn("Qdrant collection unavailable, vector cap disabled")
			repo.Close()
			return nil, 0, noop
		}
		return repo, corpusSize, func() { repo.Close() }

	default:
		flat, err := index.LoadFile(cfg.Retrieval.IndexPath)
		if err != nil {
			log.WithError(err).Warn("Vector index unavailable, vector cap disabled")
			return nil, 0, noop
		}
		if flat.Len() != corpusSize {
			log.WithFields(logger.Fields{"index_size": flat.Len(), "corpus_size": corpusSize}).
				Warn("Vector index does not match the corpus, rebuild it with cmd/index")
			return nil, 0, noop
		}
		if flat.Model() != "" && flat.Model() != embedder.Model() {
			log.WithFields(logger.Fields{"index_model": flat.Model(), "embedding_model": embedder.Model()}).
				Warn("Vector index was built with another model")
			return nil, 0, noop
		}
		return flat, flat.Len(), noop
	}
}
