package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/model"
)

// SavePerson inserts a person or updates an existing one.
func (s *SQLiteStorage) SavePerson(ctx context.Context, person *model.Person) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validatePerson(person); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, giver_id, first_name, last_name, is_adult)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			giver_id = excluded.giver_id,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			is_adult = excluded.is_adult
	`, person.ID, person.GiverID, person.FirstName, person.LastName, person.IsAdult)
	if err != nil {
		return fmt.Errorf("failed to save person %s: %w", person.ID, classifyError(err))
	}
	return nil
}

// GetPerson returns a person by id, or common.ErrNotFound.
func (s *SQLiteStorage) GetPerson(ctx context.Context, personID string) (*model.Person, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(personID, "personID"); err != nil {
		return nil, err
	}

	var p model.Person
	err := s.db.QueryRowContext(ctx, `
		SELECT id, giver_id, first_name, last_name, is_adult
		FROM persons
		WHERE id = ?
	`, personID).Scan(&p.ID, &p.GiverID, &p.FirstName, &p.LastName, &p.IsAdult)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", personID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", classifyError(err))
	}
	return &p, nil
}

// GetAdults returns the adult members of a giving unit ordered by id.
func (s *SQLiteStorage) GetAdults(ctx context.Context, giverID string) ([]model.Person, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(giverID, "giverID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, giver_id, first_name, last_name, is_adult
		FROM persons
		WHERE giver_id = ? AND is_adult = 1
		ORDER BY id
	`, giverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adults: %w", classifyError(err))
	}
	defer func() { _ = rows.Close() }()

	var people []model.Person
	for rows.Next() {
		var p model.Person
		if err := rows.Scan(&p.ID, &p.GiverID, &p.FirstName, &p.LastName, &p.IsAdult); err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate persons: %w", classifyError(err))
	}

	return people, nil
}

// GetPersonAttributes returns all attributes stored for a person.
func (s *SQLiteStorage) GetPersonAttributes(ctx context.Context, personID string) (map[string]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(personID, "personID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM person_attributes WHERE person_id = ?`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query person attributes: %w", classifyError(err))
	}
	defer func() { _ = rows.Close() }()

	attributes := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan person attribute: %w", err)
		}
		attributes[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate person attributes: %w", classifyError(err))
	}

	return attributes, nil
}

// WriteAttributes writes the same attribute values to every person in a
// single transaction. Empty values delete the attribute.
func (s *SQLiteStorage) WriteAttributes(ctx context.Context, people []model.Person, values []model.AttributeValue) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(people) == 0 || len(values) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classifyError(err))
	}
	defer func() { _ = tx.Rollback() }()

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO person_attributes (person_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(person_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare attribute upsert: %w", err)
	}
	defer func() { _ = upsert.Close() }()

	remove, err := tx.PrepareContext(ctx,
		`DELETE FROM person_attributes WHERE person_id = ? AND key = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare attribute delete: %w", err)
	}
	defer func() { _ = remove.Close() }()

	for _, person := range people {
		if err := validateString(person.ID, "person.ID"); err != nil {
			return err
		}
		for _, attr := range values {
			if attr.Value == "" {
				_, err = remove.ExecContext(ctx, person.ID, attr.Key)
			} else {
				_, err = upsert.ExecContext(ctx, person.ID, attr.Key, attr.Value)
			}
			if err != nil {
				return fmt.Errorf("failed to write attribute %s for person %s: %w", attr.Key, person.ID, classifyError(err))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit attributes: %w", classifyError(err))
	}
	return nil
}
