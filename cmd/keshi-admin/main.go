// Command keshi-admin seeds an admin account. A fresh database has no users
// and every API endpoint except login and the health probes needs a session,
// so the first admin must be created out of band with this tool.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"keshi/internal/config"
	"keshi/internal/services"
	"keshi/internal/storage"
)

func main() {
	// Load .env for local development; absent in containers.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	username := flag.String("username", os.Getenv("ADMIN_USERNAME"), "username for the admin account")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "password for the admin account")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg.SQLiteDBPath, *username, *password); err != nil {
		logger.Error("Failed to create admin user", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dbPath, username, password string) error {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	user, err := services.NewUserService(repo).Create(ctx, username, password, true)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Admin user created", "id", user.ID, "username", user.Username)
	return nil
}
