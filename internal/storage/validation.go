// Package storage provides the data persistence layer for the giving analytics job.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/giving-analytics/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrEmptySlice       = errors.New("slice cannot be empty")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidGift      = errors.New("invalid gift")
	ErrInvalidPerson    = errors.New("invalid person")
	ErrInvalidRun       = errors.New("invalid run record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateGifts validates a slice of gifts.
func validateGifts(gifts []model.Gift) error {
	if gifts == nil {
		return fmt.Errorf("%w: gifts", ErrNilParameter)
	}
	if len(gifts) == 0 {
		return fmt.Errorf("%w: gifts", ErrEmptySlice)
	}

	for i := range gifts {
		if err := validateGift(&gifts[i]); err != nil {
			return fmt.Errorf("gift at index %d: %w", i, err)
		}
	}
	return nil
}

// validateGift validates a single gift.
func validateGift(gift *model.Gift) error {
	if gift == nil {
		return fmt.Errorf("%w: gift", ErrNilParameter)
	}
	if strings.TrimSpace(gift.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidGift)
	}
	if strings.TrimSpace(gift.GiverID) == "" {
		return fmt.Errorf("%w: missing giver ID", ErrInvalidGift)
	}
	if gift.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidGift)
	}
	if gift.Amount.IsNegative() {
		return fmt.Errorf("%w: negative amount %s", ErrInvalidGift, gift.Amount)
	}
	return nil
}

// validatePerson validates a person.
func validatePerson(person *model.Person) error {
	if person == nil {
		return fmt.Errorf("%w: person", ErrNilParameter)
	}
	if strings.TrimSpace(person.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidPerson)
	}
	if strings.TrimSpace(person.GiverID) == "" {
		return fmt.Errorf("%w: missing giver ID", ErrInvalidPerson)
	}
	return nil
}

// validateRun validates a run record.
func validateRun(run *model.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}
	return nil
}
