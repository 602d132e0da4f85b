package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/quizbot/internal/ai"
	"github.com/example/quizbot/internal/bot"
	"github.com/example/quizbot/internal/config"
	"github.com/example/quizbot/internal/database"
	"github.com/example/quizbot/internal/quiz"
	"github.com/example/quizbot/internal/scheduler"
)

func main() {
	cfg := config.Load()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	storage := database.NewStorageRepository(db)

	provider, err := ai.New(ai.Options{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		BaseURL:     cfg.BaseURL,
		Temperature: &cfg.Temperature,
	})
	if err != nil {
		log.Fatalf("Failed to create question provider: %v", err)
	}
	if cfg.APIKey == "" {
		log.Printf("Warning: no API key configured for %s, quiz generation will fail", provider.Name())
	}

	botConfig := bot.DefaultConfig()
	botConfig.Token = cfg.TelegramToken
	botConfig.HistoryTTL = cfg.HistoryTTL

	b, err := bot.New(botConfig, quiz.NewService(provider), storage)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	if cfg.EnableScheduler {
		s := scheduler.New(b, storage, cfg.SessionIdle)
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer s.Stop()
	}

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v", sig)
		cancel()
		b.Stop()
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	if err := b.Start(ctx); err != nil && err != context.Canceled {
		log.Printf("Bot error: %v", err)
	}
	log.Println("Bot stopped successfully")
}
