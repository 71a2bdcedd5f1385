package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/giving-analytics/internal/config"
	"github.com/Veraticus/giving-analytics/internal/storage"
	"github.com/spf13/viper"
)

// loadConfig reads the analytics configuration from viper.
func loadConfig() (config.AnalyticsConfig, error) {
	return config.LoadAnalyticsConfig(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg config.AnalyticsConfig) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// parseNow parses the --now flag. Empty means the current time; a bare date
// means the end of that day in the local time zone.
func parseNow(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Now(), nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return d.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use RFC3339 or YYYY-MM-DD", value)
}
