package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/qinche/penpal-bot/internal/bot"
	"github.com/qinche/penpal-bot/internal/llm"
	"github.com/qinche/penpal-bot/internal/proactive"
	"github.com/qinche/penpal-bot/internal/scheduler"
	"github.com/qinche/penpal-bot/internal/storage"
	"github.com/qinche/penpal-bot/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load .env if present, then configuration
	_ = godotenv.Load()
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	persona, err := cfg.LoadPersona()
	if err != nil {
		logger.Fatal("Failed to load persona", zap.Error(err))
	}

	loc, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err), zap.String("timezone", cfg.Scheduler.Timezone))
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Storage.UsePostgres {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Storage.Host,
			Port:     cfg.Storage.Port,
			User:     cfg.Storage.User,
			Password: cfg.Storage.Password,
			DBName:   cfg.Storage.DBName,
			SSLMode:  cfg.Storage.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	} else {
		logger.Info("Using file storage", zap.String("data_dir", cfg.Storage.DataDir))
		store, err = storage.NewFileStorage(cfg.Storage.DataDir)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// One client per temperature: inbound replies run cooler than
	// proactive messages
	chatClient := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model,
		cfg.OpenAI.Temperature, cfg.OpenAI.Timeout)
	proactiveClient := llm.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model,
		cfg.OpenAI.ProactiveTemperature, cfg.OpenAI.Timeout)

	// Initialize bot, proactive service, and scheduler
	b, err := bot.New(cfg.Telegram.Token, store, chatClient, persona, cfg.Bot.ReplyPause, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	p := proactive.NewService(store, proactiveClient, b, persona,
		cfg.Bot.ProactivePause, loc, logger)

	sched := scheduler.New(scheduler.Config{
		Location:     loc,
		DailyHour:    cfg.Scheduler.DailyHour,
		DailyMinute:  cfg.Scheduler.DailyMinute,
		WindowStart:  cfg.Scheduler.WindowStart,
		WindowEnd:    cfg.Scheduler.WindowEnd,
		RandomCount:  cfg.Scheduler.RandomCount,
		Workers:      cfg.Scheduler.Workers,
		WelcomeDelay: cfg.Scheduler.WelcomeDelay,
		ReplanCron:   cfg.Scheduler.ReplanCron,
	}, store, func(userID int64) {
		if err := p.Run(context.Background(), userID); err != nil {
			logger.Error("Proactive message job failed",
				zap.Error(err),
				zap.Int64("user_id", userID))
		}
	}, logger)

	b.Attach(p, sched)

	if err := sched.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Pending timers are discarded on shutdown; the schedule is
	// re-derived from the registry on the next start
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("Shutting down")
		sched.Stop()
		store.Close()
		logger.Sync()
		os.Exit(0)
	}()

	// Start the bot
	if err := b.Start(); err != nil {
		logger.Fatal("Bot error", zap.Error(err))
	}
}
