package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mrovchinnikov95/ai-idea-lab-bot/leadstore"
	"github.com/spf13/viper"
)

// leadStoreFromViper opens the configured lead table and wraps it in a
// Store. The returned closer is nil for backends with nothing to close.
func leadStoreFromViper(logger *slog.Logger) (*leadstore.Store, io.Closer, error) {
	path := strings.TrimSpace(viper.GetString("store.path"))
	if path == "" {
		return nil, nil, fmt.Errorf("missing store.path")
	}
	switch backend := storeBackend(); backend {
	case "csv":
		table, err := leadstore.NewCSVTable(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv table: %w", err)
		}
		return leadstore.New(table, logger), nil, nil
	case "sqlite":
		table, err := leadstore.NewSQLiteTable(path, "lead_rows")
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite table: %w", err)
		}
		return leadstore.New(table, logger), table, nil
	default:
		return nil, nil, fmt.Errorf("unknown store.backend: %s", backend)
	}
}

// proStoreFromViper opens the PRO waiting-list table. On CSV it is a
// second file next to the leads; on SQLite a second table in the same
// database file.
func proStoreFromViper(logger *slog.Logger) (*leadstore.ProStore, io.Closer, error) {
	switch backend := storeBackend(); backend {
	case "csv":
		path := strings.TrimSpace(viper.GetString("store.pro_path"))
		if path == "" {
			return nil, nil, fmt.Errorf("missing store.pro_path")
		}
		table, err := leadstore.NewCSVTable(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open pro csv table: %w", err)
		}
		return leadstore.NewProStore(table, logger), nil, nil
	case "sqlite":
		path := strings.TrimSpace(viper.GetString("store.path"))
		if path == "" {
			return nil, nil, fmt.Errorf("missing store.path")
		}
		table, err := leadstore.NewSQLiteTable(path, "pro_rows")
		if err != nil {
			return nil, nil, fmt.Errorf("open pro sqlite table: %w", err)
		}
		return leadstore.NewProStore(table, logger), table, nil
	default:
		return nil, nil, fmt.Errorf("unknown store.backend: %s", backend)
	}
}

func storeBackend() string {
	backend := strings.ToLower(strings.TrimSpace(viper.GetString("store.backend")))
	if backend == "" {
		return "csv"
	}
	return backend
}
