// Package engine implements the giving analytics classification job.
package engine

import (
	"fmt"
	"time"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/model"
)

// Minimum window sizes for each group of classifications.
const (
	MinGiftsForCategorical = 1
	MinGiftsForBin         = 3
	MinGiftsForStatistics  = 5
)

// Classifier computes classification results from a giving unit's gifts.
// It is safe for concurrent use once built.
type Classifier struct {
	distribution Distribution
	bins         []model.GivingBin
}

// NewClassifier creates a classifier for the given bin thresholds and the
// distribution of yearly totals they were ranked against.
func NewClassifier(bins []model.GivingBin, distribution Distribution) *Classifier {
	return &Classifier{
		bins:         bins,
		distribution: distribution,
	}
}

// Classify computes the classification of one giving unit as of now. gifts
// may contain gifts outside the twelve-month window; they are ignored.
func (c *Classifier) Classify(unit model.GivingUnit, gifts []model.Gift, now time.Time) (model.ClassificationResult, error) {
	if err := validateGifts(unit.GiverID, gifts); err != nil {
		return model.ClassificationResult{}, err
	}

	firstGift := unitDate(unit.FirstGiftDateTime, now)
	window := NewWindow(gifts, firstGift, now)

	result := model.ClassificationResult{
		GiverID:       unit.GiverID,
		ClassifiedAt:  now,
		FirstGiftDate: firstGift,
		LastGiftDate:  unitDate(unit.LastGiftDateTime, now),
	}
	if last, ok := window.LastGift(); ok && result.LastGiftDate == nil {
		result.LastGiftDate = &last.Date
	}
	if result.FirstGiftDate == nil && window.Len() > 0 {
		result.FirstGiftDate = &window.Gifts[0].Date
	}

	if window.Len() >= MinGiftsForCategorical {
		result.PreferredCurrency = preferredValue(window.Gifts, giftCurrencyType)
		result.PreferredSource = preferredValue(window.Gifts, giftSource)
		result.PercentScheduled = ptr(percentScheduled(window.Gifts))
	}

	if window.Len() >= MinGiftsForBin {
		total := window.ExtrapolatedTotal()
		if bin, ok := BinFor(c.bins, total); ok {
			result.Bin = ptr(bin)
		}
		if percentile, ok := c.distribution.Percentile(total); ok {
			result.Percentile = ptr(percentile)
		}
	}

	if window.Len() >= MinGiftsForStatistics {
		median, iqr := medianAndIQR(window.Amounts())
		result.MedianAmount = ptr(median.Round(2))
		result.AmountIQR = ptr(iqr.Round(2))

		if trimmed := trimIntervals(window.Intervals()); len(trimmed) > 0 {
			mean, stdDev := meanStdDev(trimmed)
			mean, stdDev = roundTo(mean, 2), roundTo(stdDev, 2)
			result.FrequencyMeanDays = ptr(mean)
			result.FrequencyStdDevDays = ptr(stdDev)
			result.FrequencyLabel = ClassifyFrequency(mean, stdDev)

			if result.LastGiftDate != nil {
				next := result.LastGiftDate.Add(time.Duration(mean * float64(24*time.Hour)))
				result.NextExpectedGiftDate = &next
			}
		}
	}

	return result, nil
}

func validateGifts(giverID string, gifts []model.Gift) error {
	for _, gift := range gifts {
		switch {
		case gift.GiverID != giverID:
			return fmt.Errorf("%w: gift %s belongs to giver %s", common.ErrComputationFailure, gift.ID, gift.GiverID)
		case gift.Date.IsZero():
			return fmt.Errorf("%w: gift %s has no date", common.ErrComputationFailure, gift.ID)
		case gift.Amount.IsNegative():
			return fmt.Errorf("%w: gift %s has negative amount %s", common.ErrComputationFailure, gift.ID, gift.Amount)
		}
	}
	return nil
}

// unitDate returns a unit-level gift time in now's location. Times after now,
// seen when an earlier date is replayed, are dropped.
func unitDate(t *time.Time, now time.Time) *time.Time {
	if t == nil || t.After(now) {
		return nil
	}
	local := t.In(now.Location())
	return &local
}

func ptr[T any](v T) *T {
	return &v
}
