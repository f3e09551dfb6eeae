// Command createsuperuser creates an administrative account.
//
//	createsuperuser -email admin@example.com [-password secret]
//
// A random password is generated and printed when -password is omitted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/medtrack/medtrack-go/internal/config"
	"github.com/medtrack/medtrack-go/internal/crypto"
	"github.com/medtrack/medtrack-go/internal/repository"
	"github.com/medtrack/medtrack-go/internal/service"
)

const generatedPasswordLength = 20

func main() {
	email := flag.String("email", "", "superuser email address")
	password := flag.String("password", "", "superuser password (generated when empty)")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	if err := run(config.Load(), *email, *password); err != nil {
		slog.Error("create superuser failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, email, password string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	generated := password == ""
	if generated {
		var err error
		password, err = crypto.GeneratePassword(generatedPasswordLength)
		if err != nil {
			return fmt.Errorf("generating password: %w", err)
		}
	}

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db, cfg.DatabaseDriver); err != nil {
		return err
	}

	users := service.NewUserService(repository.NewUserRepository(db), cfg.JWTSecret, cfg.JWTExpiry)
	user, err := users.CreateSuperuser(ctx, email, password)
	if err != nil {
		return err
	}

	slog.Info("superuser created", "id", user.ID, "email", user.Email)
	if generated {
		fmt.Printf("password: %s\n", password)
	}
	return nil
}
