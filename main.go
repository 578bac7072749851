package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"blog/config"
	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/database"
	"blog/internal/handlers"
	"blog/internal/server"
	"blog/internal/store"

	log "github.com/sirupsen/logrus"
)

func main() {
	// 1. Configuration and logging
	cfg := config.LoadConfig()
	cfg.ConfigureLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database
	db, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.WithError(err).Error("Failed to close database connection")
		} else {
			log.Info("Database connection closed.")
		}
	}()

	go database.CleanupExpiredSessions(ctx, db, cfg.Session.CleanupInterval)

	// 3. Services and handlers
	authManager := auth.NewManager(db, cfg.Session.Expiration, cfg.Server.CookieSecure)
	blogService := blog.NewService(store.New(db))
	h, err := handlers.New(blogService, authManager)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}

	// 4. HTTP server
	if err := server.Run(ctx, cfg, server.NewRouter(h, authManager)); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}
}
