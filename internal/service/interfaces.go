// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
)

// GiftFilter defines filtering options for gift queries. Both bounds are
// inclusive.
type GiftFilter struct {
	Start    *time.Time
	End      *time.Time
	GiverIDs []string
}

// GiftStore provides read and write access to contribution transactions.
type GiftStore interface {
	SaveGifts(ctx context.Context, gifts []model.Gift) (int, error)
	GetGifts(ctx context.Context, filter GiftFilter) ([]model.Gift, error)
	// GetGivingUnits summarizes every giver with gifts on or before asOf.
	GetGivingUnits(ctx context.Context, asOf time.Time) ([]model.GivingUnit, error)
}

// SettingsStore reads and writes the versioned giving analytics settings blob.
type SettingsStore interface {
	GetSettings(ctx context.Context) (model.GivingAnalyticsSettings, error)
	// SaveSettings replaces the settings if the stored version still equals
	// settings.Version and returns the new version.
	SaveSettings(ctx context.Context, settings model.GivingAnalyticsSettings) (int, error)
}

// PersonStore manages giving unit members and their attributes.
type PersonStore interface {
	SavePerson(ctx context.Context, person *model.Person) error
	GetPerson(ctx context.Context, personID string) (*model.Person, error)
	GetAdults(ctx context.Context, giverID string) ([]model.Person, error)
	GetPersonAttributes(ctx context.Context, personID string) (map[string]string, error)
	// WriteAttributes writes identical values to every given person in one
	// transaction. Empty values delete the attribute.
	WriteAttributes(ctx context.Context, people []model.Person, values []model.AttributeValue) error
}

// RunLog records giving analytics job executions.
type RunLog interface {
	SaveRun(ctx context.Context, run *model.RunRecord) error
	GetRecentRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Storage is the complete persistence layer.
type Storage interface {
	GiftStore
	SettingsStore
	PersonStore
	RunLog

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DateRange represents a time period with start and end dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}
