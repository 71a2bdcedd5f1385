package engine

import (
	"math"

	"github.com/Veraticus/giving-analytics/internal/model"
)

// preferredValue returns the most frequent non-empty value among the gifts.
// Ties go to the value used by the most recent of the tied gifts. gifts must
// be sorted chronologically.
func preferredValue(gifts []model.Gift, value func(model.Gift) string) string {
	counts := make(map[string]int)
	lastSeen := make(map[string]int)

	for i, gift := range gifts {
		v := value(gift)
		if v == "" {
			continue
		}
		counts[v]++
		lastSeen[v] = i
	}

	best := ""
	for v, count := range counts {
		switch {
		case best == "":
			best = v
		case count > counts[best]:
			best = v
		case count == counts[best] && lastSeen[v] > lastSeen[best]:
			best = v
		}
	}
	return best
}

func giftSource(g model.Gift) string       { return g.Source }
func giftCurrencyType(g model.Gift) string { return g.CurrencyType }

// percentScheduled returns the share of scheduled gifts as a whole percent.
func percentScheduled(gifts []model.Gift) int {
	if len(gifts) == 0 {
		return 0
	}
	scheduled := 0
	for _, gift := range gifts {
		if gift.IsScheduled {
			scheduled++
		}
	}
	return int(math.Round(float64(scheduled) * 100 / float64(len(gifts))))
}
