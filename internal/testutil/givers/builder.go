// Package givers provides a fluent builder for seeding giving units, their
// members and their gift history in tests.
//
// Example usage:
//
//	b := givers.NewBuilder(t, now)
//	b.Giver("G1").
//		WithAdult("Ada", "Lovelace").
//		WithRecurringGifts(12, 30, "100.00", givers.Scheduled())
//	err := b.Build(ctx, store)
package givers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/service"
	"github.com/shopspring/decimal"
)

// GiftOption customizes a seeded gift.
type GiftOption func(*model.Gift)

// Scheduled marks the gift as coming from a scheduled transaction.
func Scheduled() GiftOption {
	return func(g *model.Gift) { g.IsScheduled = true }
}

// Source sets the gift's payment source.
func Source(source string) GiftOption {
	return func(g *model.Gift) { g.Source = source }
}

// Currency sets the gift's currency type.
func Currency(currency string) GiftOption {
	return func(g *model.Gift) { g.CurrencyType = currency }
}

// Builder accumulates giving units relative to a fixed "now".
type Builder struct {
	t      *testing.T
	now    time.Time
	givers []*GiverBuilder
}

// NewBuilder creates a builder whose gift dates are relative to now.
func NewBuilder(t *testing.T, now time.Time) *Builder {
	t.Helper()
	return &Builder{t: t, now: now}
}

// Giver starts a new giving unit.
func (b *Builder) Giver(giverID string) *GiverBuilder {
	g := &GiverBuilder{builder: b, giverID: giverID}
	b.givers = append(b.givers, g)
	return g
}

// Gifts returns every gift configured so far.
func (b *Builder) Gifts() []model.Gift {
	var gifts []model.Gift
	for _, g := range b.givers {
		gifts = append(gifts, g.gifts...)
	}
	return gifts
}

// People returns every person configured so far.
func (b *Builder) People() []model.Person {
	var people []model.Person
	for _, g := range b.givers {
		people = append(people, g.people...)
	}
	return people
}

// Build writes all people and gifts to storage.
func (b *Builder) Build(ctx context.Context, store service.Storage) error {
	for _, p := range b.People() {
		if err := store.SavePerson(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed person %s: %w", p.ID, err)
		}
	}
	if gifts := b.Gifts(); len(gifts) > 0 {
		if _, err := store.SaveGifts(ctx, gifts); err != nil {
			return fmt.Errorf("failed to seed gifts: %w", err)
		}
	}
	return nil
}

// GiverBuilder configures a single giving unit.
type GiverBuilder struct {
	builder *Builder
	giverID string
	people  []model.Person
	gifts   []model.Gift
}

// WithAdult adds an adult member.
func (g *GiverBuilder) WithAdult(first, last string) *GiverBuilder {
	return g.withPerson(first, last, true)
}

// WithChild adds a member who never receives attributes.
func (g *GiverBuilder) WithChild(first, last string) *GiverBuilder {
	return g.withPerson(first, last, false)
}

func (g *GiverBuilder) withPerson(first, last string, adult bool) *GiverBuilder {
	g.people = append(g.people, model.Person{
		ID:        fmt.Sprintf("%s-p%d", g.giverID, len(g.people)+1),
		GiverID:   g.giverID,
		FirstName: first,
		LastName:  last,
		IsAdult:   adult,
	})
	return g
}

// WithGift adds a gift made daysAgo days before now.
func (g *GiverBuilder) WithGift(daysAgo int, amount string, opts ...GiftOption) *GiverBuilder {
	g.builder.t.Helper()

	value, err := decimal.NewFromString(amount)
	if err != nil {
		g.builder.t.Fatalf("invalid gift amount %q: %v", amount, err)
	}

	gift := model.Gift{
		ID:           fmt.Sprintf("%s-g%d", g.giverID, len(g.gifts)+1),
		GiverID:      g.giverID,
		Date:         g.builder.now.AddDate(0, 0, -daysAgo),
		Amount:       value,
		Source:       model.SourceWebsite,
		CurrencyType: model.CurrencyCreditCard,
	}
	for _, opt := range opts {
		opt(&gift)
	}
	g.gifts = append(g.gifts, gift)
	return g
}

// WithRecurringGifts adds count gifts every everyDays days, the most recent
// one made today.
func (g *GiverBuilder) WithRecurringGifts(count, everyDays int, amount string, opts ...GiftOption) *GiverBuilder {
	g.builder.t.Helper()
	for i := count - 1; i >= 0; i-- {
		g.WithGift(i*everyDays, amount, opts...)
	}
	return g
}

// Giver starts the next giving unit on the same builder.
func (g *GiverBuilder) Giver(giverID string) *GiverBuilder {
	return g.builder.Giver(giverID)
}
