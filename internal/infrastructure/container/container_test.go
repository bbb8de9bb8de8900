package container

import (
	"context"
	"path/filepath"
	"testing"

	"livefeed/internal/domain"
	"livefeed/internal/infrastructure/config"
	"livefeed/internal/infrastructure/storage/composite"
)

func TestContainerWithSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Drivers = []string{config.DriverSQLite}
	cfg.Storage.SQLite.Path = filepath.Join(t.TempDir(), "test_container.db")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	defer c.Close()

	store := c.StrategyStore()
	if store == nil {
		t.Fatalf("expected StrategyStore, got nil")
	}
	if err := store.Save(context.Background(), []domain.Strategy{{ID: "a"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if c.Pyth() == nil || c.Dexscreener() == nil || c.Metrics() == nil {
		t.Errorf("clients not initialized")
	}
	if c.RedisClient() != nil {
		t.Errorf("redis client should be nil when not configured")
	}
}

func TestContainerMirrorsStores(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Drivers = []string{config.DriverFile, config.DriverSQLite}
	cfg.Storage.File.Path = filepath.Join(dir, "strategies.json")
	cfg.Storage.SQLite.Path = filepath.Join(dir, "mirror.db")

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create container: %v", err)
	}
	if _, ok := c.StrategyStore().(*composite.Repo); !ok {
		t.Errorf("expected composite store, got %T", c.StrategyStore())
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestContainerUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Drivers = []string{"mongo"}

	if _, err := New(cfg); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
