package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"keshi/internal/core"
	"keshi/internal/services"
	"keshi/internal/storage"
)

func TestRunCreatesAdmin(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "keshi.db")
	ctx := context.Background()

	if err := run(ctx, dbPath, "admin", "s3cret"); err != nil {
		t.Fatalf("run: %v", err)
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	defer repo.Close()

	user, err := repo.GetUserByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.IsAdmin {
		t.Fatal("seeded user must be an admin")
	}
	// The seeded account can log in.
	if _, err := services.NewUserService(repo).Authenticate(ctx, "admin", "s3cret"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	// Re-seeding the same username conflicts instead of overwriting.
	if err := run(ctx, dbPath, "admin", "other"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("second run: %v", err)
	}
}

func TestRunValidation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "keshi.db")
	ctx := context.Background()

	if err := run(ctx, dbPath, "", "pw"); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("empty username: %v", err)
	}
	if err := run(ctx, dbPath, "admin", ""); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("empty password: %v", err)
	}
}
