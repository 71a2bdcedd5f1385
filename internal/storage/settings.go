package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/model"
)

const givingAnalyticsSettingsKey = "giving_analytics"

// GetSettings loads the giving analytics settings. A missing row yields zero
// settings at version 0.
func (s *SQLiteStorage) GetSettings(ctx context.Context) (model.GivingAnalyticsSettings, error) {
	if err := validateContext(ctx); err != nil {
		return model.GivingAnalyticsSettings{}, err
	}

	var (
		value   string
		version int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, version FROM system_settings WHERE key = ?`,
		givingAnalyticsSettingsKey,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return model.GivingAnalyticsSettings{}, nil
	}
	if err != nil {
		return model.GivingAnalyticsSettings{}, fmt.Errorf("failed to read settings: %w", classifyError(err))
	}

	settings, err := model.ParseSettings([]byte(value))
	if err != nil {
		return model.GivingAnalyticsSettings{}, err
	}
	settings.Version = version
	return settings, nil
}

// SaveSettings replaces the settings blob if the stored version still matches
// settings.Version. It returns the new version, or common.ErrVersionConflict
// when another writer got there first.
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings model.GivingAnalyticsSettings) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	next := settings.Version + 1
	settings.Version = next
	data, err := settings.Marshal()
	if err != nil {
		return 0, err
	}

	var res sql.Result
	if next == 1 {
		res, err = s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO system_settings (key, value, version, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		`, givingAnalyticsSettingsKey, string(data), next)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE system_settings
			SET value = ?, version = ?, updated_at = CURRENT_TIMESTAMP
			WHERE key = ? AND version = ?
		`, string(data), next, givingAnalyticsSettingsKey, next-1)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to save settings: %w", classifyError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check settings update: %w", err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: settings version %d is stale", common.ErrVersionConflict, next-1)
	}

	return next, nil
}
