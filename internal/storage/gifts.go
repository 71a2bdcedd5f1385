package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/service"
)

// SaveGifts stores gifts, ignoring ids that already exist, and returns the
// number of new gifts.
func (s *SQLiteStorage) SaveGifts(ctx context.Context, gifts []model.Gift) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateGifts(gifts); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", classifyError(err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO gifts (
			id, giver_id, amount, date, source, currency_type, is_scheduled
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	inserted := 0
	for _, gift := range gifts {
		res, execErr := stmt.ExecContext(ctx,
			gift.ID,
			gift.GiverID,
			gift.Amount.String(),
			dbTime(gift.Date),
			gift.Source,
			gift.CurrencyType,
			gift.IsScheduled,
		)
		if execErr != nil {
			return 0, fmt.Errorf("failed to insert gift %s: %w", gift.ID, classifyError(execErr))
		}
		if n, rowsErr := res.RowsAffected(); rowsErr == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit gifts: %w", classifyError(err))
	}
	return inserted, nil
}

// GetGifts returns gifts matching the filter ordered by giver, date and id.
func (s *SQLiteStorage) GetGifts(ctx context.Context, filter service.GiftFilter) ([]model.Gift, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Start != nil && filter.End != nil && filter.End.Before(*filter.Start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, *filter.End, *filter.Start)
	}

	query := `SELECT id, giver_id, amount, date, source, currency_type, is_scheduled FROM gifts`
	var conditions []string
	var args []any

	if filter.Start != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, dbTime(*filter.Start))
	}
	if filter.End != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, dbTime(*filter.End))
	}
	if len(filter.GiverIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.GiverIDs)), ",")
		conditions = append(conditions, "giver_id IN ("+placeholders+")")
		for _, id := range filter.GiverIDs {
			args = append(args, id)
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY giver_id, date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gifts: %w", classifyError(err))
	}
	defer func() { _ = rows.Close() }()

	var gifts []model.Gift
	for rows.Next() {
		var gift model.Gift
		if err := rows.Scan(
			&gift.ID,
			&gift.GiverID,
			&gift.Amount,
			&gift.Date,
			&gift.Source,
			&gift.CurrencyType,
			&gift.IsScheduled,
		); err != nil {
			return nil, fmt.Errorf("failed to scan gift: %w", err)
		}
		gifts = append(gifts, gift)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gifts: %w", classifyError(err))
	}

	return gifts, nil
}

// GetGivingUnits returns every giver that has gifts on or before asOf, with
// its first and last gift times up to asOf and the last time any of its
// members was classified.
func (s *SQLiteStorage) GetGivingUnits(ctx context.Context, asOf time.Time) ([]model.GivingUnit, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT g.giver_id, MIN(g.date), MAX(g.date), c.last_classified
		FROM gifts g
		LEFT JOIN (
			SELECT p.giver_id, MAX(pa.value) AS last_classified
			FROM person_attributes pa
			JOIN persons p ON p.id = pa.person_id
			WHERE pa.key = ?
			GROUP BY p.giver_id
		) c ON c.giver_id = g.giver_id
		WHERE g.date <= ?
		GROUP BY g.giver_id
		ORDER BY g.giver_id
	`, model.AttributeLastClassificationDateTime, dbTime(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to query giving units: %w", classifyError(err))
	}
	defer func() { _ = rows.Close() }()

	var units []model.GivingUnit
	for rows.Next() {
		var (
			unit                  model.GivingUnit
			firstGift, lastGift   string
			lastClassifiedAttrVal sql.NullString
		)
		if err := rows.Scan(&unit.GiverID, &firstGift, &lastGift, &lastClassifiedAttrVal); err != nil {
			return nil, fmt.Errorf("failed to scan giving unit: %w", err)
		}

		first, err := parseTimestamp(firstGift)
		if err != nil {
			return nil, fmt.Errorf("giver %s first gift: %w", unit.GiverID, err)
		}
		last, err := parseTimestamp(lastGift)
		if err != nil {
			return nil, fmt.Errorf("giver %s last gift: %w", unit.GiverID, err)
		}
		unit.FirstGiftDateTime = &first
		unit.LastGiftDateTime = &last

		if lastClassifiedAttrVal.Valid && lastClassifiedAttrVal.String != "" {
			classified, err := time.Parse(time.RFC3339, lastClassifiedAttrVal.String)
			if err != nil {
				return nil, fmt.Errorf("giver %s last classification: %w", unit.GiverID, err)
			}
			unit.LastClassificationDateTime = &classified
		}

		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate giving units: %w", classifyError(err))
	}

	return units, nil
}
