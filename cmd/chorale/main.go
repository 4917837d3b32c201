package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/halcyonix/chorale/internal/cache"
	"github.com/halcyonix/chorale/internal/config"
	"github.com/halcyonix/chorale/internal/handlers"
	"github.com/halcyonix/chorale/internal/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	db, err := repository.OpenDB(cfg)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewRepo(db)
	fc := cache.NewFileCache(cfg, repo)
	bot := handlers.NewBot(cfg, repo, fc)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := bot.Run(ctx); err != nil {
		slog.Error("bot stopped", "err", err)
		os.Exit(1)
	}
}
