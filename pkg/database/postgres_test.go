package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/wonny/stocklens/pkg/config"
)

func TestNew(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := db.HealthCheck(ctx)
	if !status.Healthy {
		t.Errorf("Expected healthy database, got error: %s", status.Error)
	}
}

func TestOpenSQLite(t *testing.T) {
	db, err := OpenSQLite(t.TempDir() + "/nested/stocklens.db")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer db.Close()

	status := db.HealthCheck(context.Background())
	if !status.Healthy {
		t.Fatalf("Expected healthy sqlite, got error: %s", status.Error)
	}
	if status.Driver != config.StoreDriverSQLite {
		t.Errorf("Expected driver sqlite, got %s", status.Driver)
	}
}
