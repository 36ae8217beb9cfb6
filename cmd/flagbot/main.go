package main

import (
	"context"
	"errors"
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flagbot/internal/classifier"
	"flagbot/internal/config"
	"flagbot/internal/corpus"
	"flagbot/internal/message_processor"
	"flagbot/internal/pipeline"
	"flagbot/internal/repository"
	"flagbot/internal/server"
	"flagbot/internal/telegram_bot"
	"flagbot/internal/textnorm"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML configuration file")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(err))
	}

	// Load configuration
	cfg, err := config.LoadConfig(*cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewDB(cfg.Database.Driver, cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.MigrateDB(db, logger); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	channelRepo := repository.NewChannelRepository(db, logger)
	messageRepo := repository.NewMessageRepository(db, logger)
	flagRepo := repository.NewFlagRepository(db, logger)

	// Scoring pipeline
	normalizer, err := textnorm.New(cfg.Moderation.Blacklist)
	if err != nil {
		logger.Fatal("Invalid moderation blacklist", zap.Error(err))
	}
	trainer, err := classifier.NewTrainer(cfg.Corpus.CacheSize, logger)
	if err != nil {
		logger.Fatal("Failed to create trainer", zap.Error(err))
	}
	loader := corpus.NewLoader(cfg.Corpus.BasePath, cfg.Corpus.SupplementalPath, logger)

	var rng *rand.Rand
	if cfg.Moderation.RandomSeed != 0 {
		rng = rand.New(rand.NewSource(cfg.Moderation.RandomSeed))
	}
	scoring := pipeline.New(loader, normalizer, trainer, pipeline.Options{
		Threshold:  *cfg.Moderation.FlagThreshold,
		SampleRate: *cfg.Moderation.SampleRate,
		Emojis:     cfg.Moderation.ReactionEmojis,
	}, rng, logger)

	worker := pipeline.NewWorker(scoring, cfg.Scanner.QueueSize, logger)
	defer worker.Stop()

	// Telegram bot (optional)
	bot, err := telegram_bot.NewBot(cfg, channelRepo, messageRepo, logger)
	if err != nil {
		logger.Warn("Failed to initialize Telegram bot, continuing without it", zap.Error(err))
		bot = nil
	}

	var notifier message_processor.Notifier
	if bot != nil {
		notifier = bot
	}
	processor := message_processor.NewProcessor(worker, notifier, messageRepo, channelRepo, flagRepo, logger,
		cfg.Scanner.PollInterval, cfg.Scanner.BatchSize)
	if bot != nil {
		bot.SetScanner(processor)
	}

	srv := server.NewServer(server.Deps{
		Scorer:      worker,
		ChannelRepo: channelRepo,
		FlagRepo:    flagRepo,
		JWTSecret:   cfg.API.JWTSecret,
	}, logger)

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, cfg.Server.Port) })
	g.Go(func() error { return processor.Run(gctx) })
	if bot != nil {
		g.Go(func() error { return bot.Start(gctx) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}
	logger.Info("Application stopped.")
}
