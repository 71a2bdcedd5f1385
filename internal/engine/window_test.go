package engine

import (
	"testing"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func gift(id string, daysAgo int, amount string) model.Gift {
	return model.Gift{
		ID:           id,
		GiverID:      "G1",
		Date:         testNow.AddDate(0, 0, -daysAgo),
		Amount:       decimal.RequireFromString(amount),
		Source:       model.SourceWebsite,
		CurrencyType: model.CurrencyCreditCard,
	}
}

func daysAgo(days int) *time.Time {
	t := testNow.AddDate(0, 0, -days)
	return &t
}

func TestNewWindow_SelectsTrailingYear(t *testing.T) {
	start := WindowStart(testNow)
	onStart := gift("on-start", 0, "1")
	onStart.Date = start
	justBefore := gift("before", 0, "1")
	justBefore.Date = start.Add(-time.Second)
	future := gift("future", 0, "1")
	future.Date = testNow.Add(time.Second)

	w := NewWindow([]model.Gift{
		gift("c", 0, "10"),
		future,
		onStart,
		gift("b", 100, "10"),
		justBefore,
	}, daysAgo(800), testNow)

	require.Equal(t, 3, w.Len())
	assert.Equal(t, "on-start", w.Gifts[0].ID)
	assert.Equal(t, "b", w.Gifts[1].ID)
	assert.Equal(t, "c", w.Gifts[2].ID)
	assert.True(t, w.FullYear)
	assert.Equal(t, daysPerYear, w.SpanDays)
}

func TestNewWindow_SameDayOrderedByID(t *testing.T) {
	w := NewWindow([]model.Gift{gift("z", 5, "1"), gift("a", 5, "1")}, nil, testNow)
	require.Equal(t, 2, w.Len())
	assert.Equal(t, "a", w.Gifts[0].ID)
}

func TestWindow_Extrapolation(t *testing.T) {
	tests := []struct {
		name      string
		firstGift *time.Time
		gifts     []model.Gift
		wantFull  bool
		wantSpan  int
		wantTotal string
	}{
		{
			name:      "three gifts over sixty days",
			firstGift: daysAgo(60),
			gifts:     []model.Gift{gift("1", 60, "100"), gift("2", 30, "100"), gift("3", 0, "100")},
			wantSpan:  60,
			wantTotal: "1825",
		},
		{
			name:      "giving for more than a year is not extrapolated",
			firstGift: daysAgo(500),
			gifts:     []model.Gift{gift("1", 60, "100"), gift("2", 30, "100"), gift("3", 0, "100")},
			wantFull:  true,
			wantSpan:  daysPerYear,
			wantTotal: "300",
		},
		{
			name:      "first gift today spans one day",
			firstGift: daysAgo(0),
			gifts:     []model.Gift{gift("1", 0, "10")},
			wantSpan:  1,
			wantTotal: "3650",
		},
		{
			name:      "unknown first gift falls back to window",
			gifts:     []model.Gift{gift("1", 73, "20"), gift("2", 0, "20")},
			wantSpan:  73,
			wantTotal: "200",
		},
		{
			name:      "empty window",
			firstGift: daysAgo(30),
			wantTotal: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(tt.gifts, tt.firstGift, testNow)
			assert.Equal(t, tt.wantFull, w.FullYear)
			assert.Equal(t, tt.wantSpan, w.SpanDays)
			got := w.ExtrapolatedTotal()
			assert.True(t, got.Equal(decimal.RequireFromString(tt.wantTotal)), "got %s, want %s", got, tt.wantTotal)
		})
	}
}

func TestWindow_IntervalsUseCalendarDays(t *testing.T) {
	late := gift("late", 7, "1")
	late.Date = late.Date.Add(11 * time.Hour) // 23:00
	early := gift("early", 0, "1")
	early.Date = early.Date.Add(-11 * time.Hour) // 01:00

	w := NewWindow([]model.Gift{gift("first", 14, "1"), late, early}, nil, testNow)

	assert.Equal(t, []float64{7, 7}, w.Intervals())

	last, ok := w.LastGift()
	require.True(t, ok)
	assert.Equal(t, "early", last.ID)
}

func TestWindow_Amounts(t *testing.T) {
	w := NewWindow([]model.Gift{gift("b", 1, "20"), gift("a", 2, "10")}, nil, testNow)
	amounts := w.Amounts()
	require.Len(t, amounts, 2)
	assert.Equal(t, "10", amounts[0].String())
	assert.Equal(t, "20", amounts[1].String())
	assert.Nil(t, NewWindow(nil, nil, testNow).Intervals())
}

func TestNewWindow_CountsDaysInNowLocation(t *testing.T) {
	edt := time.FixedZone("EDT", -4*60*60)
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, edt)

	// Stored gifts come back in UTC. The first was given on the evening of
	// April 16th local time, which is already April 17th in UTC.
	first := time.Date(2024, 4, 16, 21, 0, 0, 0, edt).UTC()
	second := time.Date(2024, 5, 16, 12, 0, 0, 0, edt).UTC()
	third := time.Date(2024, 6, 15, 9, 0, 0, 0, edt).UTC()

	gifts := []model.Gift{gift("a", 0, "100"), gift("b", 0, "100"), gift("c", 0, "100")}
	gifts[0].Date, gifts[1].Date, gifts[2].Date = first, second, third

	w := NewWindow(gifts, &first, now)

	require.Equal(t, 3, w.Len())
	assert.False(t, w.FullYear)
	assert.Equal(t, 60, w.SpanDays)
	assert.True(t, w.ExtrapolatedTotal().Equal(decimal.NewFromInt(1825)), "total = %s", w.ExtrapolatedTotal())
	assert.Equal(t, []float64{30, 30}, w.Intervals())
	assert.Equal(t, edt, w.Gifts[0].Date.Location())
	assert.True(t, gifts[0].Date.Location() == time.UTC, "input gifts are not modified")
}
