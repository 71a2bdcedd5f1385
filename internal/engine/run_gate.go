package engine

import (
	"slices"
	"time"
)

// ShouldRun reports whether classification may run at now: at most once per
// calendar day, and only on the configured days of the week (all days when
// none are configured). The returned reason explains a refusal.
func ShouldRun(now time.Time, lastRun *time.Time, daysOfWeek []time.Weekday) (bool, string) {
	if len(daysOfWeek) > 0 && !slices.Contains(daysOfWeek, now.Weekday()) {
		return false, "classification is not configured to run on " + now.Weekday().String()
	}
	if lastRun != nil && civilDay(lastRun.In(now.Location())) == civilDay(now) {
		return false, "classification already ran today"
	}
	return true, ""
}
