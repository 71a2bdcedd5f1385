package engine

import (
	"sort"
	"time"

	"github.com/Veraticus/giving-analytics/internal/model"
)

// EligibilityCriteria decides which giving units are (re)classified in a run.
type EligibilityCriteria struct {
	Now                        time.Time
	LastRun                    *time.Time
	ClassificationLifespanDays int
	MaxDaysSinceLastGift       int
}

// IsEligible reports whether the unit has given since the last run, its
// classification has expired, and it has given recently enough for a new
// classification to matter.
func (c EligibilityCriteria) IsEligible(unit model.GivingUnit) bool {
	if unit.LastGiftDateTime == nil {
		return false
	}
	lastGift := *unit.LastGiftDateTime

	if c.LastRun != nil && !lastGift.After(*c.LastRun) {
		return false
	}

	if unit.LastClassificationDateTime != nil {
		earliestValidClassification := c.Now.AddDate(0, 0, -c.ClassificationLifespanDays)
		if !unit.LastClassificationDateTime.Before(earliestValidClassification) {
			return false
		}
	}

	earliestLastGift := c.Now.AddDate(0, 0, -c.MaxDaysSinceLastGift)
	return !lastGift.Before(earliestLastGift)
}

// SelectEligible returns the eligible units ordered by giver id.
func SelectEligible(units []model.GivingUnit, criteria EligibilityCriteria) []model.GivingUnit {
	eligible := make([]model.GivingUnit, 0, len(units))
	for _, unit := range units {
		if criteria.IsEligible(unit) {
			eligible = append(eligible, unit)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].GiverID < eligible[j].GiverID
	})
	return eligible
}
