package engine

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

var (
	quartile1 = decimal.RequireFromString("0.25")
	quartile2 = decimal.RequireFromString("0.5")
	quartile3 = decimal.RequireFromString("0.75")
)

// quantile returns the p-quantile of sorted values by linear interpolation
// between the order statistics around position (n-1)p. values must be sorted
// ascending and non-empty.
func quantile(sorted []decimal.Decimal, p decimal.Decimal) decimal.Decimal {
	if len(sorted) == 1 {
		return sorted[0]
	}

	pos := p.Mul(decimal.NewFromInt(int64(len(sorted) - 1)))
	lower := pos.Floor()
	idx := int(lower.IntPart())
	if idx >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}

	frac := pos.Sub(lower)
	return sorted[idx].Add(sorted[idx+1].Sub(sorted[idx]).Mul(frac))
}

func sortDecimals(values []decimal.Decimal) []decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].LessThan(sorted[j])
	})
	return sorted
}

// medianAndIQR returns the median and the interquartile range (Q3-Q1).
func medianAndIQR(values []decimal.Decimal) (median, iqr decimal.Decimal) {
	sorted := sortDecimals(values)
	median = quantile(sorted, quartile2)
	iqr = quantile(sorted, quartile3).Sub(quantile(sorted, quartile1))
	return median, iqr
}

// trimIntervals sorts the intervals and drops the extremes from both ends:
// one value per end when fewer than ten are available, otherwise 10% per end
// rounded to the nearest count.
func trimIntervals(intervals []float64) []float64 {
	n := len(intervals)
	if n == 0 {
		return nil
	}

	sorted := make([]float64, n)
	copy(sorted, intervals)
	sort.Float64s(sorted)

	trim := 1
	if n >= 10 {
		trim = int(math.Round(float64(n) * 0.1))
	}
	if n-2*trim < 1 {
		return nil
	}
	return sorted[trim : n-trim]
}

// meanStdDev returns the mean and population standard deviation.
func meanStdDev(values []float64) (mean, stdDev float64) {
	return stat.PopMeanStdDev(values, nil)
}

func roundTo(value float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(value*scale) / scale
}
