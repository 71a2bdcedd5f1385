package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/spf13/viper"
)

// Default giving analytics settings.
const (
	DefaultClassificationLifespanDays = 45
	DefaultMaxDaysSinceLastGift       = 548
	DefaultWorkers                    = 4
	DefaultMinBinGivers               = 10
	DefaultFetchBatchSize             = 500
	DefaultSchedule                   = "0 2 * * *"
)

// AnalyticsConfig holds everything the giving analytics job reads from
// configuration. It is populated once at job start.
type AnalyticsConfig struct {
	DaysOfWeek                 []time.Weekday
	DatabasePath               string
	Schedule                   string
	ClassificationLifespanDays int
	MaxDaysSinceLastGift       int
	Workers                    int
	MinBinGivers               int
	FetchBatchSize             int
}

// DefaultAnalyticsConfig returns the defaults used when nothing is configured.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		DatabasePath:               DefaultDatabasePath,
		Schedule:                   DefaultSchedule,
		ClassificationLifespanDays: DefaultClassificationLifespanDays,
		MaxDaysSinceLastGift:       DefaultMaxDaysSinceLastGift,
		Workers:                    DefaultWorkers,
		MinBinGivers:               DefaultMinBinGivers,
		FetchBatchSize:             DefaultFetchBatchSize,
	}
}

// LoadAnalyticsConfig reads the analytics configuration from v. Any error is
// wrapped in common.ErrFatalConfiguration since no run can proceed without it.
func LoadAnalyticsConfig(v *viper.Viper) (AnalyticsConfig, error) {
	cfg := DefaultAnalyticsConfig()

	cfg.DatabasePath = DatabasePath(v.GetString("database.path"))

	if v.IsSet("schedule.cron") {
		cfg.Schedule = v.GetString("schedule.cron")
	}
	if v.IsSet("analytics.classification_lifespan_days") {
		cfg.ClassificationLifespanDays = v.GetInt("analytics.classification_lifespan_days")
	}
	if v.IsSet("analytics.max_days_since_last_gift") {
		cfg.MaxDaysSinceLastGift = v.GetInt("analytics.max_days_since_last_gift")
	}
	if v.IsSet("analytics.workers") {
		cfg.Workers = v.GetInt("analytics.workers")
	}
	if v.IsSet("analytics.min_bin_givers") {
		cfg.MinBinGivers = v.GetInt("analytics.min_bin_givers")
	}
	if v.IsSet("analytics.fetch_batch_size") {
		cfg.FetchBatchSize = v.GetInt("analytics.fetch_batch_size")
	}

	days, err := parseWeekdays(v.GetStringSlice("analytics.days_of_week"))
	if err != nil {
		return AnalyticsConfig{}, fmt.Errorf("%w: %v", common.ErrFatalConfiguration, err)
	}
	cfg.DaysOfWeek = days

	if err := cfg.Validate(); err != nil {
		return AnalyticsConfig{}, fmt.Errorf("%w: %v", common.ErrFatalConfiguration, err)
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c AnalyticsConfig) Validate() error {
	if c.ClassificationLifespanDays < 0 {
		return fmt.Errorf("%w: classification lifespan cannot be negative", common.ErrInvalidConfig)
	}
	if c.MaxDaysSinceLastGift <= 0 {
		return fmt.Errorf("%w: max days since last gift must be positive", common.ErrInvalidConfig)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", common.ErrInvalidConfig)
	}
	if c.MinBinGivers < 1 {
		return fmt.Errorf("%w: min bin givers must be at least 1", common.ErrInvalidConfig)
	}
	if c.FetchBatchSize <= 0 {
		return fmt.Errorf("%w: fetch batch size must be positive", common.ErrInvalidConfig)
	}
	return nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekdays(names []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if len(key) == 3 {
			for full := range weekdayNames {
				if strings.HasPrefix(full, key) {
					key = full
					break
				}
			}
		}
		day, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("unknown day of week %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}
