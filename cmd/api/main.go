package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medtrack/medtrack-go/internal/config"
	"github.com/medtrack/medtrack-go/internal/repository"
	"github.com/medtrack/medtrack-go/internal/routes"
	"github.com/medtrack/medtrack-go/internal/service"
	"github.com/medtrack/medtrack-go/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg := config.Load()

	ctx := context.Background()
	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		slog.Error("database connection failed", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
		slog.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)
	drugRepo := repository.NewDrugRepository(db)

	media := storage.NewLocalStore(cfg.MediaRoot)
	slog.Info("media storage ready", "root", media.Root(), "url", cfg.MediaURL)

	handler := routes.Setup(routes.Dependencies{
		Config:      cfg,
		DB:          db,
		Users:       service.NewUserService(userRepo, cfg.JWTSecret, cfg.JWTExpiry),
		Tags:        service.NewTagService(tagRepo),
		Ingredients: service.NewIngredientService(ingredientRepo),
		Drugs:       service.NewDrugService(drugRepo, tagRepo, ingredientRepo, media, cfg.MediaURL),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}
