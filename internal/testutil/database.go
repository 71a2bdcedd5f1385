// Package testutil provides test utilities for the giving analytics project:
// isolated in-memory databases seeded through the givers builder.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/giving-analytics/internal/service"
	"github.com/Veraticus/giving-analytics/internal/storage"
	"github.com/Veraticus/giving-analytics/internal/testutil/givers"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new migrated in-memory test database. Cleanup is
// registered on t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithGivers creates a test database seeded with the giving units
// configured on a builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithGivers(t, now, func(b *givers.Builder) {
//		b.Giver("G1").WithAdult("Ada", "Lovelace").WithRecurringGifts(12, 30, "100.00")
//	})
func SetupTestDBWithGivers(t *testing.T, now time.Time, configure func(*givers.Builder)) *TestDB {
	t.Helper()

	builder := givers.NewBuilder(t, now)
	if configure != nil {
		configure(builder)
	}

	return SetupTestDBWithOptions(t, TestDBOptions{
		CustomSetup: func(ctx context.Context, s service.Storage) error {
			return builder.Build(ctx, s)
		},
	})
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	SkipMigrations bool
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustAttributes returns a person's stored attributes or fails the test.
func (db *TestDB) MustAttributes(personID string) map[string]string {
	db.t.Helper()
	attrs, err := db.Storage.GetPersonAttributes(context.Background(), personID)
	if err != nil {
		db.t.Fatalf("failed to read attributes of %s: %v", personID, err)
	}
	return attrs
}
