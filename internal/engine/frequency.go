package engine

import "github.com/Veraticus/giving-analytics/internal/model"

type frequencyRule struct {
	label     model.FrequencyLabel
	minMean   float64
	maxMean   float64
	maxStdDev float64 // exclusive
}

// frequencyRules are evaluated in order; the first match wins.
var frequencyRules = []frequencyRule{
	{label: model.FrequencyWeekly, minMean: 4.5, maxMean: 8.5, maxStdDev: 7},
	{label: model.FrequencyBiWeekly, minMean: 9, maxMean: 17, maxStdDev: 10},
	{label: model.FrequencyMonthly, minMean: 25, maxMean: 35, maxStdDev: 10},
	{label: model.FrequencyQuarterly, minMean: 80, maxMean: 110, maxStdDev: 15},
}

// ClassifyFrequency labels a giving pattern from the mean and standard
// deviation of the days between gifts.
func ClassifyFrequency(meanDays, stdDevDays float64) model.FrequencyLabel {
	for _, rule := range frequencyRules {
		if meanDays >= rule.minMean && meanDays <= rule.maxMean && stdDevDays < rule.maxStdDev {
			return rule.label
		}
	}
	if stdDevDays > meanDays/2 {
		return model.FrequencyErratic
	}
	return model.FrequencyUndetermined
}
