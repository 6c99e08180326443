package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/mygoreply/internal/blocklist"
	"github.com/timmy/mygoreply/internal/config"
	"github.com/timmy/mygoreply/internal/corpus"
	"github.com/timmy/mygoreply/internal/llm"
	"github.com/timmy/mygoreply/internal/logger"
	"github.com/timmy/mygoreply/internal/repository"
	"github.com/timmy/mygoreply/internal/service"
	"github.com/timmy/mygoreply/internal/storage"
	"github.com/timmy/mygoreply/internal/tagging"
	"github.com/timmy/mygoreply/internal/tui"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "Path to config file")
	input := flag.String("input", "", "Corpus to tag (defaults to corpus.path)")
	output := flag.String("output", "", "Labeled output path (defaults to tagging.output_path)")
	storeType := flag.String("store", "", "Checkpoint store: file or redis (defaults to tagging.store)")
	limit := flag.Int("limit", 0, "Stop after this many entries (0 = no limit)")
	reset := flag.Bool("reset", false, "Discard the saved checkpoint before starting")
	useTUI := flag.Bool("tui", false, "Show an interactive progress view")
	flag.Parse()

	envCfg := logger.LoadFromEnv().WithService("mygoreply-tag")
	if *useTUI {
		// stdout belongs to the progress view
		logFile := &lumberjack.Logger{Filename: "logs/tag.log", MaxSize: 50, MaxBackups: 3}
		defer logFile.Close()
		envCfg.Output = logFile
	}
	appLogger := logger.NewFromEnv(envCfg)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *input == "" {
		*input = cfg.Corpus.Path
	}
	if *output != "" {
		cfg.Tagging.OutputPath = *output
	}
	if *storeType != "" {
		cfg.Tagging.Store = *storeType
	}

	ctx := context.Background()

	lines, err := corpus.Load(*input)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load corpus")
	}

	filter := blocklist.Default()
	if cfg.Tagging.BlocklistPath != "" {
		filter, err = blocklist.LoadFile(cfg.Tagging.BlocklistPath)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to load blocklist")
		}
	}

	gen, err := llm.New(&cfg.LLM)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize LLM client")
	}

	store, closeStore, err := openStore(ctx, cfg, *reset)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open checkpoint store")
	}
	defer closeStore()

	csvLog, err := tagging.OpenCSVAuditLog(cfg.Tagging.AuditLogPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open audit log")
	}
	defer csvLog.Close()
	audit := tagging.MultiAuditLog{csvLog}

	var jobs *repository.TaggingJobRepository
	var jobID string
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
		jobs = repository.NewTaggingJobRepository(db)
		job, err := jobs.Start(ctx, *input, lines.Len())
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to record tagging job")
		}
		jobID = job.ID
		audit = append(audit, repository.NewLabelAuditLog(repository.NewEntryLabelRepository(db), jobID))
		ctx = logger.SetJobID(ctx, jobID)
	}

	opts := tagging.Options{
		SaveEvery:      cfg.Tagging.SaveEvery,
		RateLimitCalls: cfg.Tagging.RateLimitCalls,
		RateLimitPause: cfg.Tagging.RateLimitPause,
		MaxRetries:     cfg.Tagging.MaxRetries,
		RetryDelay:     cfg.Tagging.RetryDelay,
		OutputPath:     cfg.Tagging.OutputPath,
		Limit:          *limit,
	}
	classifier := service.NewTagClassifier(gen)

	var result *tagging.Result
	run := func(ctx context.Context, obs tagging.Observer) error {
		var options []tagging.Option
		if obs != nil {
			options = append(options, tagging.WithObserver(obs))
		}
		pipeline := tagging.New(filter, classifier, store, audit, opts, options...)
		var runErr error
		result, runErr = pipeline.Run(ctx, lines.Entries())
		return runErr
	}

	if *useTUI {
		err = tui.Run(ctx, "Tagging "+*input, run)
	} else {
		runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		err = run(runCtx, nil)
		stop()
	}

	if jobs != nil && result != nil {
		finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if ferr := jobs.Finish(finishCtx, jobID, result.Stats, err); ferr != nil {
			appLogger.WithError(ferr).Warn("Failed to update tagging job")
		}
		cancel()
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			appLogger.Info("Tagging interrupted, rerun to resume from the checkpoint")
			os.Exit(130)
		}
		appLogger.WithError(err).Fatal("Tagging failed")
	}

	if result.Done && cfg.Storage.Enabled && cfg.Tagging.OutputPath != "" {
		publish(cfg, cfg.Tagging.OutputPath)
	}

	s := result.Stats
	fmt.Printf("Tagged %d entries: %d classified, %d cache hits, %d blocked, %d failed, %d LLM calls\n",
		s.Processed, s.Classified, s.CacheHits, s.Blocked, s.Failed, s.Calls)
	if !result.Done {
		fmt.Printf("Stopped at entry %d of %d, rerun to continue\n", s.StartIndex+s.Processed, s.Total)
	}
}

// openStore returns the configured checkpoint store and a release func.
func openStore(ctx context.Context, cfg *config.Config, reset bool) (tagging.Store, func(), error) {
	switch cfg.Tagging.Store {
	case "redis":
		rs, err := tagging.NewRedisStore(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		if reset {
			if err := rs.Reset(ctx); err != nil {
				rs.Close()
				return nil, nil, err
			}
		}
		return rs, func() { rs.Close() }, nil
	default:
		fs := tagging.NewFileStore(cfg.Tagging.CheckpointPath)
		if reset {
			if err := os.Remove(fs.Path()); err != nil && !os.IsNotExist(err) {
				return nil, nil, err
			}
		}
		return fs, func() {}, nil
	}
}

func publish(cfg *config.Config, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := storage.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		logger.GetDefault().WithError(err).Warn("Skipping upload of labeled corpus")
		return
	}
	url, err := storage.PublishFile(ctx, store, cfg.Storage.ArtifactPrefix, path)
	if err != nil {
		logger.GetDefault().WithError(err).Warn("Failed to upload labeled corpus")
		return
	}
	fmt.Printf("Published labeled corpus to %s\n", url)
}
