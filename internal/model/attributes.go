package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Person attribute keys written by the giving analytics job.
const (
	AttributeFirstGave                  = "core_EraFirstGave"
	AttributeLastGave                   = "core_EraLastGave"
	AttributePreferredCurrency          = "PreferredCurrency"
	AttributePreferredSource            = "PreferredSource"
	AttributeFrequencyLabel             = "FrequencyLabel"
	AttributePercentScheduled           = "PercentofGiftsScheduled"
	AttributeGiftAmountMedian           = "GiftAmountMedian"
	AttributeGiftAmountIQR              = "GiftAmountIQR"
	AttributeGiftFrequencyDaysMean      = "GiftFrequencyDaysMean"
	AttributeGiftFrequencyDaysStdDev    = "GiftFrequencyDaysStandardDeviation"
	AttributeGivingBin                  = "GivingBin"
	AttributeGivingPercentile           = "GivingPercentile"
	AttributeNextExpectedGiftDate       = "NextExpectedGiftDate"
	AttributeLastClassificationDateTime = "LastClassificationRunDateTime"
)

// AttributeKeys returns every attribute key in the order results are written.
func AttributeKeys() []string {
	return []string{
		AttributeFirstGave,
		AttributeLastGave,
		AttributePreferredCurrency,
		AttributePreferredSource,
		AttributeFrequencyLabel,
		AttributePercentScheduled,
		AttributeGiftAmountMedian,
		AttributeGiftAmountIQR,
		AttributeGiftFrequencyDaysMean,
		AttributeGiftFrequencyDaysStdDev,
		AttributeGivingBin,
		AttributeGivingPercentile,
		AttributeNextExpectedGiftDate,
		AttributeLastClassificationDateTime,
	}
}

// DateFormat is the storage format of date-only attributes.
const DateFormat = "2006-01-02"

// AttributeValue is a single person attribute. An empty Value clears it.
type AttributeValue struct {
	Key   string
	Value string
}

// AttributeValues flattens the result into the person attributes that must be
// written to every adult of the giving unit, in a stable order.
func (r *ClassificationResult) AttributeValues() []AttributeValue {
	return []AttributeValue{
		{Key: AttributeFirstGave, Value: formatDate(r.FirstGiftDate)},
		{Key: AttributeLastGave, Value: formatDate(r.LastGiftDate)},
		{Key: AttributePreferredCurrency, Value: r.PreferredCurrency},
		{Key: AttributePreferredSource, Value: r.PreferredSource},
		{Key: AttributeFrequencyLabel, Value: formatLabel(r.FrequencyLabel)},
		{Key: AttributePercentScheduled, Value: formatInt(r.PercentScheduled)},
		{Key: AttributeGiftAmountMedian, Value: formatMoney(r.MedianAmount)},
		{Key: AttributeGiftAmountIQR, Value: formatMoney(r.AmountIQR)},
		{Key: AttributeGiftFrequencyDaysMean, Value: formatDays(r.FrequencyMeanDays)},
		{Key: AttributeGiftFrequencyDaysStdDev, Value: formatDays(r.FrequencyStdDevDays)},
		{Key: AttributeGivingBin, Value: formatInt(r.Bin)},
		{Key: AttributeGivingPercentile, Value: formatInt(r.Percentile)},
		{Key: AttributeNextExpectedGiftDate, Value: formatDate(r.NextExpectedGiftDate)},
		{Key: AttributeLastClassificationDateTime, Value: r.ClassifiedAt.UTC().Format(time.RFC3339)},
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateFormat)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatDays(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatLabel(f FrequencyLabel) string {
	if f == FrequencyUnset {
		return ""
	}
	return strconv.Itoa(int(f))
}

func formatMoney(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.StringFixed(2)
}
