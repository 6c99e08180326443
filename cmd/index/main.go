package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/embedding"
	"github.com/timmy/mygoreply/internal/index"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/repository"
	"github.com/timmy/mygoreply/internal/storage"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to config file")
	input := flag.String("input", "", "Corpus to index (defaults to corpus.path)")
	output := flag.String("output", "", "Index file (defaults to retrieval.index_path)")
	batchSize := flag.Int("batch-size", 64, "Texts per embedding request")
	qdrant := flag.Bool("qdrant", false, "Also upsert the vectors into Qdrant")
	publish := flag.Bool("publish", false, "Upload the index file to object storage")
	flag.Parse()

	appLogger := logger.NewFromEnv(logger.LoadFromEnv().WithService("mygoreply-index"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *input == "" {
		*input = cfg.Corpus.Path
	}
	if *output == "" {
		*output = cfg.Retrieval.IndexPath
	}
	if *batchSize <= 0 {
		*batchSize = 64
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lines, err := corpus.Load(*input)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load corpus")
	}

	embedder, err := embedding.New(&cfg.Embedding)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize embedding client")
	}

	appLogger.WithFields(logger.Fields{
		"entries":    lines.Len(),
		"model":      embedder.Model(),
		"dimensions": embedder.Dimensions(),
		"batch_size": *batchSize,
	}).Info("Building vector index")

	flat, err := index.Build(ctx, embedder, lines.Texts(), *batchSize, func(done, total int) {
		fmt.Printf("\rEmbedded %d/%d", done, total)
	})
	fmt.Println()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build index")
	}

	if err := flat.SaveFile(*output); err != nil {
		appLogger.WithError(err).Fatal("Failed to save index")
	}
	appLogger.WithField("path", *output).Info("Index saved")

	if *qdrant {
		if err := upsertQdrant(ctx, cfg, lines, flat, *batchSize); err != nil {
			appLogger.WithError(err).Fatal("Failed to upsert vectors into Qdrant")
		}
	}

	if *publish {
		store, err := storage.NewStorage(ctx, &cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
		url, err := storage.PublishFile(ctx, store, cfg.Storage.ArtifactPrefix, *output)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to publish index")
		}
		fmt.Printf("Published index to %s\n", url)
	}
}

// upsertQdrant mirrors the flat index into the configured collection, keyed
// by corpus position.
func upsertQdrant(ctx context.Context, cfg *config.Config, lines *corpus.Corpus, flat *index.Flat, batchSize int) error {
	repo, err := repository.NewQdrantRepository(&cfg.Qdrant, flat.Dim())
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureCollection(ctx); err != nil {
		return err
	}

	entries := lines.Entries()
	batch := make([]repository.LinePoint, 0, batchSize)
	for i, entry := range entries {
		vec, _ := flat.Vector(i)
		batch = append(batch, repository.LinePoint{
			Position: i,
			Text:     entry.Text,
			Tones:    entry.Tones,
			Vector:   vec,
		})
		if len(batch) == batchSize || i == len(entries)-1 {
			if err := repo.Upsert(ctx, batch); err != nil {
				return fmt.Errorf("failed to upsert points up to %d: %w", i, err)
			}
			batch = batch[:0]
		}
	}

	logger.With(logger.Fields{logger.FieldCount: len(entries)}).Info(ctx, "Qdrant collection %s updated", cfg.Qdrant.Collection)
	return nil
}
