package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/wonny/stocklens/pkg/config"
)

// SQLite wraps an embedded database file
type SQLite struct {
	conn *sql.DB
	path string
}

// NewSQLite opens (and creates if needed) the embedded store file
func NewSQLite(cfg *config.Config) (*SQLite, error) {
	return OpenSQLite(cfg.SQLite.Path)
}

// OpenSQLite opens the database file at path
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// sqlite는 단일 writer
	conn.SetMaxOpenConns(1)

	return &SQLite{conn: conn, path: path}, nil
}

// Conn returns the underlying sql.DB
func (s *SQLite) Conn() *sql.DB {
	return s.conn
}

// Close closes the database
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Ping checks if the database is accessible
func (s *SQLite) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// HealthCheck pings the file and reports connection usage
func (s *SQLite) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Driver: config.StoreDriverSQLite, Timestamp: time.Now()}

	start := time.Now()
	if err := s.conn.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.ResponseTime = time.Since(start)

	stats := s.conn.Stats()
	status.OpenConns = stats.OpenConnections
	status.IdleConns = stats.Idle
	status.Healthy = true
	return status
}
