package logger_test

import (
	"errors"

	"github.com/wonny/stocklens/pkg/config"
	"github.com/wonny/stocklens/pkg/logger"
)

// Example_module demonstrates per-component child loggers
func Example_module() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "console",
	}

	// Create logger (SSOT)
	log := logger.New(cfg)

	// Every component tags its lines with a module field
	crawlLog := log.Module("crawler")
	crawlLog.WithFields(map[string]interface{}{
		"run_id":  "3f1c9a2e",
		"workers": 5,
	}).Info("Incremental crawl started")

	// Not found is a debug-level event, never an error
	log.Module("stockdata").WithField("symbol", "600519").Debug("Symbol not found in store")
}

// Example_withError demonstrates error logging with context
func Example_withError() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	err := errors.New("fetch history 600519: upstream 503")
	log.WithError(err).
		WithFields(map[string]interface{}{
			"symbol": "600519",
			"from":   "2024-03-01",
			"to":     "2024-03-08",
		}).
		Error("Source unavailable")
}
