package engine

import (
	"sort"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// daysPerYear is the span a full classification window is assumed to cover.
const daysPerYear = 365

// Window is the set of gifts a giving unit is classified from: everything
// given in the twelve months up to and including now.
type Window struct {
	Start    time.Time
	End      time.Time
	Gifts    []model.Gift // Sorted by date, then id
	SpanDays int          // Days of giving the window actually observed
	FullYear bool         // The unit was already giving when the window opened
}

// WindowStart returns the first instant of the twelve-month window ending at now.
func WindowStart(now time.Time) time.Time {
	return now.AddDate(-1, 0, 0)
}

// NewWindow selects the gifts falling in the window ending at now.
// firstGift is the unit's first gift ever; when it is nil the earliest gift in
// gifts is used instead.
func NewWindow(gifts []model.Gift, firstGift *time.Time, now time.Time) Window {
	w := Window{
		Start: WindowStart(now),
		End:   now,
	}

	for _, gift := range gifts {
		if gift.Date.Before(w.Start) || gift.Date.After(now) {
			continue
		}
		// Calendar days are counted in now's location, whatever location
		// the store returned the gift in.
		gift.Date = gift.Date.In(now.Location())
		w.Gifts = append(w.Gifts, gift)
	}
	sortGifts(w.Gifts)

	first := firstGift
	if first == nil && len(w.Gifts) > 0 {
		first = &w.Gifts[0].Date
	}
	w.FullYear = first != nil && !first.After(w.Start)

	switch {
	case w.FullYear:
		w.SpanDays = daysPerYear
	case len(w.Gifts) > 0:
		w.SpanDays = max(calendarDaysBetween(w.Gifts[0].Date, now), 1)
	}

	return w
}

// Len returns the number of gifts in the window.
func (w Window) Len() int {
	return len(w.Gifts)
}

// Total returns the sum of the window's gift amounts.
func (w Window) Total() decimal.Decimal {
	total := decimal.Zero
	for _, gift := range w.Gifts {
		total = total.Add(gift.Amount)
	}
	return total
}

// ExtrapolatedTotal projects the window total onto a full year when the unit
// has given for less than a year.
func (w Window) ExtrapolatedTotal() decimal.Decimal {
	total := w.Total()
	if w.FullYear || w.SpanDays <= 0 {
		return total
	}
	return total.Mul(decimal.NewFromInt(daysPerYear)).Div(decimal.NewFromInt(int64(w.SpanDays)))
}

// Amounts returns the gift amounts in chronological order.
func (w Window) Amounts() []decimal.Decimal {
	amounts := make([]decimal.Decimal, len(w.Gifts))
	for i, gift := range w.Gifts {
		amounts[i] = gift.Amount
	}
	return amounts
}

// Intervals returns the whole days between consecutive gifts.
func (w Window) Intervals() []float64 {
	if len(w.Gifts) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(w.Gifts)-1)
	for i := 1; i < len(w.Gifts); i++ {
		intervals = append(intervals, float64(calendarDaysBetween(w.Gifts[i-1].Date, w.Gifts[i].Date)))
	}
	return intervals
}

// LastGift returns the most recent gift in the window.
func (w Window) LastGift() (model.Gift, bool) {
	if len(w.Gifts) == 0 {
		return model.Gift{}, false
	}
	return w.Gifts[len(w.Gifts)-1], true
}

func sortGifts(gifts []model.Gift) {
	sort.SliceStable(gifts, func(i, j int) bool {
		if !gifts[i].Date.Equal(gifts[j].Date) {
			return gifts[i].Date.Before(gifts[j].Date)
		}
		return gifts[i].ID < gifts[j].ID
	})
}

// calendarDaysBetween counts calendar days from a to b, each taken in its own
// location, so that gift times of day do not skew intervals. Callers pass
// times in a common location.
func calendarDaysBetween(a, b time.Time) int {
	return int(civilDay(b) - civilDay(a))
}

func civilDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
