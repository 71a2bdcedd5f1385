// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FrequencyLabel describes how regularly a giving unit gives.
type FrequencyLabel int

// Frequency labels. The numeric values are the stored attribute values.
const (
	FrequencyUnset        FrequencyLabel = 0
	FrequencyWeekly       FrequencyLabel = 1
	FrequencyBiWeekly     FrequencyLabel = 2
	FrequencyMonthly      FrequencyLabel = 3
	FrequencyQuarterly    FrequencyLabel = 4
	FrequencyErratic      FrequencyLabel = 5
	FrequencyUndetermined FrequencyLabel = 6
)

var frequencyLabelNames = map[FrequencyLabel]string{
	FrequencyWeekly:       "Weekly",
	FrequencyBiWeekly:     "Bi-Weekly",
	FrequencyMonthly:      "Monthly",
	FrequencyQuarterly:    "Quarterly",
	FrequencyErratic:      "Erratic",
	FrequencyUndetermined: "Undetermined",
}

func (f FrequencyLabel) String() string {
	if name, ok := frequencyLabelNames[f]; ok {
		return name
	}
	return ""
}

// ClassificationResult holds the computed giving classification of one giving
// unit. Nil pointers and empty strings mean the value could not be computed
// from the available sample and must be cleared rather than written.
type ClassificationResult struct {
	ClassifiedAt         time.Time        `json:"classifiedAt"`
	FirstGiftDate        *time.Time       `json:"firstGiftDate,omitempty"`
	LastGiftDate         *time.Time       `json:"lastGiftDate,omitempty"`
	NextExpectedGiftDate *time.Time       `json:"nextExpectedGiftDate,omitempty"`
	MedianAmount         *decimal.Decimal `json:"medianAmount,omitempty"`
	AmountIQR            *decimal.Decimal `json:"amountIqr,omitempty"`
	FrequencyMeanDays    *float64         `json:"frequencyMeanDays,omitempty"`
	FrequencyStdDevDays  *float64         `json:"frequencyStdDevDays,omitempty"`
	PercentScheduled     *int             `json:"percentScheduled,omitempty"`
	Bin                  *int             `json:"bin,omitempty"`
	Percentile           *int             `json:"percentile,omitempty"`
	GiverID              string           `json:"giverId"`
	PreferredCurrency    string           `json:"preferredCurrency,omitempty"`
	PreferredSource      string           `json:"preferredSource,omitempty"`
	FrequencyLabel       FrequencyLabel   `json:"frequencyLabel,omitempty"`
}
