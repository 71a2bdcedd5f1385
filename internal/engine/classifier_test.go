package engine

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBins(limits ...string) []model.GivingBin {
	bins := make([]model.GivingBin, len(limits))
	for i, limit := range limits {
		bins[i] = model.GivingBin{LowerLimit: decimal.RequireFromString(limit)}
	}
	return bins
}

// monthlyGifts returns count gifts of amount spaced everyDays apart, the last
// one given today.
func monthlyGifts(count, everyDays int, amount string) []model.Gift {
	gifts := make([]model.Gift, count)
	for i := range count {
		gifts[i] = gift(fmt.Sprintf("g%02d", i), (count-1-i)*everyDays, amount)
	}
	return gifts
}

func TestClassify_ExtrapolatesPartialYear(t *testing.T) {
	classifier := NewClassifier(testBins("1500", "1000", "500", "0"), hundredsDistribution())
	unit := model.GivingUnit{GiverID: "G1", FirstGiftDateTime: daysAgo(60), LastGiftDateTime: daysAgo(0)}
	gifts := []model.Gift{
		gift("a", 60, "100"),
		gift("b", 30, "100"),
		gift("c", 0, "100"),
	}

	result, err := classifier.Classify(unit, gifts, testNow)
	require.NoError(t, err)

	// 300 over 60 days projects to 1825 for the year.
	require.NotNil(t, result.Bin)
	assert.Equal(t, 1, *result.Bin)
	require.NotNil(t, result.Percentile)
	assert.Equal(t, 100, *result.Percentile)

	assert.Nil(t, result.MedianAmount)
	assert.Nil(t, result.AmountIQR)
	assert.Nil(t, result.FrequencyMeanDays)
	assert.Nil(t, result.FrequencyStdDevDays)
	assert.Nil(t, result.NextExpectedGiftDate)
	assert.Equal(t, model.FrequencyUnset, result.FrequencyLabel)

	assert.Equal(t, model.SourceWebsite, result.PreferredSource)
	assert.Equal(t, model.CurrencyCreditCard, result.PreferredCurrency)
	require.NotNil(t, result.PercentScheduled)
	assert.Equal(t, 0, *result.PercentScheduled)
}

func TestClassify_MinimumSampleSizes(t *testing.T) {
	classifier := NewClassifier(testBins("1500", "1000", "500", "0"), hundredsDistribution())
	unit := model.GivingUnit{GiverID: "G1", FirstGiftDateTime: daysAgo(500), LastGiftDateTime: daysAgo(0)}

	tests := []struct {
		name          string
		gifts         []model.Gift
		wantCategory  bool
		wantBin       bool
		wantStatistic bool
	}{
		{name: "no gifts in window", gifts: []model.Gift{gift("old", 400, "50")}},
		{name: "one gift", gifts: monthlyGifts(1, 30, "50"), wantCategory: true},
		{name: "two gifts", gifts: monthlyGifts(2, 30, "50"), wantCategory: true},
		{name: "three gifts", gifts: monthlyGifts(3, 30, "50"), wantCategory: true, wantBin: true},
		{name: "four gifts", gifts: monthlyGifts(4, 30, "50"), wantCategory: true, wantBin: true},
		{name: "five gifts", gifts: monthlyGifts(5, 30, "50"), wantCategory: true, wantBin: true, wantStatistic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := classifier.Classify(unit, tt.gifts, testNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantCategory, result.PercentScheduled != nil, "percent scheduled")
			assert.Equal(t, tt.wantCategory, result.PreferredSource != "", "preferred source")
			assert.Equal(t, tt.wantBin, result.Bin != nil, "bin")
			assert.Equal(t, tt.wantBin, result.Percentile != nil, "percentile")
			assert.Equal(t, tt.wantStatistic, result.MedianAmount != nil, "median")
			assert.Equal(t, tt.wantStatistic, result.AmountIQR != nil, "iqr")
			assert.Equal(t, tt.wantStatistic, result.FrequencyMeanDays != nil, "mean days")
			assert.Equal(t, tt.wantStatistic, result.FrequencyStdDevDays != nil, "std-dev days")
			assert.Equal(t, tt.wantStatistic, result.FrequencyLabel != model.FrequencyUnset, "frequency label")
		})
	}
}

func TestClassify_MonthlyGiver(t *testing.T) {
	classifier := NewClassifier(testBins("2000", "1000", "500", "0"), hundredsDistribution())
	unit := model.GivingUnit{GiverID: "G1", FirstGiftDateTime: daysAgo(400), LastGiftDateTime: daysAgo(0)}

	result, err := classifier.Classify(unit, monthlyGifts(10, 30, "100"), testNow)
	require.NoError(t, err)

	require.NotNil(t, result.FrequencyMeanDays)
	assert.InDelta(t, 30.0, *result.FrequencyMeanDays, 1e-9)
	require.NotNil(t, result.FrequencyStdDevDays)
	assert.InDelta(t, 0.0, *result.FrequencyStdDevDays, 1e-9)
	assert.Equal(t, model.FrequencyMonthly, result.FrequencyLabel)

	require.NotNil(t, result.MedianAmount)
	assert.True(t, result.MedianAmount.Equal(decimal.NewFromInt(100)), "median = %s", result.MedianAmount)
	require.NotNil(t, result.AmountIQR)
	assert.True(t, result.AmountIQR.IsZero(), "iqr = %s", result.AmountIQR)

	// A full year of giving is not extrapolated: 1000 falls into bin 2.
	require.NotNil(t, result.Bin)
	assert.Equal(t, 2, *result.Bin)

	require.NotNil(t, result.NextExpectedGiftDate)
	assert.True(t, result.NextExpectedGiftDate.Equal(testNow.AddDate(0, 0, 30)),
		"next expected gift = %s", result.NextExpectedGiftDate)

	assert.True(t, result.FirstGiftDate.Equal(*daysAgo(400)))
	assert.True(t, result.LastGiftDate.Equal(testNow))
	assert.True(t, result.ClassifiedAt.Equal(testNow))
}

func TestClassify_WithoutUnitDatesFallsBackToWindow(t *testing.T) {
	classifier := NewClassifier(nil, Distribution{})
	unit := model.GivingUnit{GiverID: "G1"}

	result, err := classifier.Classify(unit, monthlyGifts(3, 7, "25"), testNow)
	require.NoError(t, err)

	require.NotNil(t, result.FirstGiftDate)
	assert.True(t, result.FirstGiftDate.Equal(*daysAgo(14)))
	require.NotNil(t, result.LastGiftDate)
	assert.True(t, result.LastGiftDate.Equal(testNow))

	// Without bins or a distribution there is nothing to rank against.
	assert.Nil(t, result.Bin)
	assert.Nil(t, result.Percentile)
}

func TestClassify_IsDeterministic(t *testing.T) {
	classifier := NewClassifier(testBins("1500", "1000", "500", "0"), hundredsDistribution())
	unit := model.GivingUnit{GiverID: "G1", FirstGiftDateTime: daysAgo(200), LastGiftDateTime: daysAgo(0)}

	gifts := []model.Gift{
		gift("a", 180, "25.00"),
		gift("b", 150, "40.00"),
		gift("c", 120, "25.00"),
		gift("d", 95, "60.00"),
		gift("e", 60, "25.00"),
		gift("f", 31, "35.50"),
		gift("g", 0, "25.00"),
	}
	gifts[1].Source = model.SourceKiosk
	gifts[3].IsScheduled = true

	reversed := make([]model.Gift, len(gifts))
	for i, g := range gifts {
		reversed[len(gifts)-1-i] = g
	}

	first, err := classifier.Classify(unit, gifts, testNow)
	require.NoError(t, err)
	second, err := classifier.Classify(unit, reversed, testNow)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(firstJSON), string(secondJSON))
}

func TestClassify_RejectsMalformedGifts(t *testing.T) {
	classifier := NewClassifier(nil, Distribution{})
	unit := model.GivingUnit{GiverID: "G1"}

	negative := gift("neg", 1, "0")
	negative.Amount = decimal.NewFromInt(-5)
	undated := gift("undated", 1, "10")
	undated.Date = time.Time{}
	foreign := gift("foreign", 1, "10")
	foreign.GiverID = "G2"

	for _, bad := range []model.Gift{negative, undated, foreign} {
		t.Run(bad.ID, func(t *testing.T) {
			_, err := classifier.Classify(unit, []model.Gift{gift("ok", 2, "10"), bad}, testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrComputationFailure)
		})
	}
}

func TestClassify_IgnoresUnitDatesAfterNow(t *testing.T) {
	classifier := NewClassifier(nil, Distribution{})
	now := testNow.AddDate(0, 0, -45)
	unit := model.GivingUnit{GiverID: "G1", FirstGiftDateTime: daysAgo(300), LastGiftDateTime: daysAgo(0)}

	// Monthly gifts up to today, classified as of 45 days ago.
	result, err := classifier.Classify(unit, monthlyGifts(10, 30, "100"), now)
	require.NoError(t, err)

	require.NotNil(t, result.LastGiftDate)
	assert.True(t, result.LastGiftDate.Equal(*daysAgo(60)), "last gift = %s", result.LastGiftDate)
	require.NotNil(t, result.NextExpectedGiftDate)
	assert.True(t, result.NextExpectedGiftDate.Equal(*daysAgo(30)), "next expected gift = %s", result.NextExpectedGiftDate)
	require.NotNil(t, result.FirstGiftDate)
	assert.True(t, result.FirstGiftDate.Equal(*daysAgo(300)))
}
