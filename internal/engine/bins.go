package engine

import (
	"math"
	"sort"

	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/shopspring/decimal"
)

// Distribution is the sorted set of twelve-month giving totals of every giving
// unit that gave in the window. Bin thresholds and percentiles are both
// derived from it.
type Distribution struct {
	totals []decimal.Decimal
}

// GivingTotals sums gift amounts per giver.
func GivingTotals(gifts []model.Gift) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, gift := range gifts {
		totals[gift.GiverID] = totals[gift.GiverID].Add(gift.Amount)
	}
	return totals
}

// NewDistribution builds a distribution from per-giver totals.
func NewDistribution(totals map[string]decimal.Decimal) Distribution {
	values := make([]decimal.Decimal, 0, len(totals))
	for _, total := range totals {
		values = append(values, total)
	}
	return Distribution{totals: sortDecimals(values)}
}

// Len returns the number of giving units in the distribution.
func (d Distribution) Len() int {
	return len(d.totals)
}

// Percentile ranks total against the distribution: the share of units giving
// less, counting units with an equal total as half below. It reports false
// when the distribution is empty.
func (d Distribution) Percentile(total decimal.Decimal) (int, bool) {
	n := len(d.totals)
	if n == 0 {
		return 0, false
	}

	below := sort.Search(n, func(i int) bool {
		return !d.totals[i].LessThan(total)
	})
	notAbove := sort.Search(n, func(i int) bool {
		return d.totals[i].GreaterThan(total)
	})
	ties := notAbove - below

	rank := (float64(below) + float64(ties)/2) * 100 / float64(n)
	return min(max(int(math.Round(rank)), 0), 100), true
}

// ComputeBins derives the bin lower limits from the distribution. Bin 1 starts
// at the 75th percentile, bin 2 at the median, bin 3 at the 25th percentile and
// bin 4 at zero. It reports false, leaving the caller to keep its previous
// bins, when fewer than minGivers units are in the distribution.
func ComputeBins(d Distribution, minGivers int) ([]model.GivingBin, bool) {
	if d.Len() == 0 || d.Len() < minGivers {
		return nil, false
	}

	return []model.GivingBin{
		{LowerLimit: quantile(d.totals, quartile3).Round(2)},
		{LowerLimit: quantile(d.totals, quartile2).Round(2)},
		{LowerLimit: quantile(d.totals, quartile1).Round(2)},
		{LowerLimit: decimal.Zero},
	}, true
}

// BinFor returns the 1-based bin the total falls into.
func BinFor(bins []model.GivingBin, total decimal.Decimal) (int, bool) {
	if len(bins) == 0 {
		return 0, false
	}
	for i, bin := range bins {
		if total.GreaterThanOrEqual(bin.LowerLimit) {
			return i + 1, true
		}
	}
	return len(bins), true
}
