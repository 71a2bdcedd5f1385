package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BinCount is the number of giving bins.
const BinCount = 4

// GivingBin is one giving tier. Bin 1 is the highest tier; a giving unit falls
// into the first bin whose lower limit does not exceed its yearly total.
type GivingBin struct {
	LowerLimit decimal.Decimal `json:"lowerLimit"`
}

// GivingAnalyticsSettings is the process-wide state of the giving analytics job.
// It is stored as a single JSON blob and replaced once at the end of each run.
type GivingAnalyticsSettings struct {
	LastRunDateTime     *time.Time  `json:"lastRunDateTime,omitempty"`
	BinsUpdatedDateTime *time.Time  `json:"binsUpdatedDateTime,omitempty"`
	GivingBins          []GivingBin `json:"givingBins,omitempty"`
	Version             int         `json:"version"`
}

// ParseSettings decodes a settings blob. An empty blob yields zero settings.
func ParseSettings(data []byte) (GivingAnalyticsSettings, error) {
	var settings GivingAnalyticsSettings
	if len(data) == 0 {
		return settings, nil
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return GivingAnalyticsSettings{}, fmt.Errorf("failed to decode giving analytics settings: %w", err)
	}
	if len(settings.GivingBins) != 0 && len(settings.GivingBins) != BinCount {
		return GivingAnalyticsSettings{}, fmt.Errorf("giving analytics settings have %d bins, expected %d", len(settings.GivingBins), BinCount)
	}
	return settings, nil
}

// Marshal encodes the settings blob.
func (s GivingAnalyticsSettings) Marshal() ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode giving analytics settings: %w", err)
	}
	return data, nil
}

// HasBins reports whether bin thresholds have been computed.
func (s GivingAnalyticsSettings) HasBins() bool {
	return len(s.GivingBins) == BinCount
}
