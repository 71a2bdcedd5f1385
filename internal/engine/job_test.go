package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/config"
	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/service"
	"github.com/Veraticus/giving-analytics/internal/testutil"
	"github.com/Veraticus/giving-analytics/internal/testutil/givers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteClassification(ctx context.Context, result model.ClassificationResult, adults []model.Person) error {
	args := m.Called(ctx, result, adults)
	return args.Error(0)
}

// failingGifts fails every per-unit gift fetch while still serving the global
// twelve-month query used for bins.
type failingGifts struct {
	service.GiftStore
}

func (f failingGifts) GetGifts(ctx context.Context, filter service.GiftFilter) ([]model.Gift, error) {
	if len(filter.GiverIDs) > 0 {
		return nil, errors.New("connection reset")
	}
	return f.GiftStore.GetGifts(ctx, filter)
}

// seedGivers configures count giving units G01..Gnn, each with one adult, one
// child and a year of monthly gifts growing with the unit number.
func seedGivers(count int) func(*givers.Builder) {
	return func(b *givers.Builder) {
		for i := 1; i <= count; i++ {
			b.Giver(fmt.Sprintf("G%02d", i)).
				WithAdult("Adult", fmt.Sprint(i)).
				WithChild("Child", fmt.Sprint(i)).
				WithRecurringGifts(12, 30, fmt.Sprintf("%d.00", i*10))
		}
	}
}

func newTestJob(t *testing.T, store service.Storage, mutate func(*Dependencies, *config.AnalyticsConfig)) *Job {
	t.Helper()

	deps := Dependencies{Gifts: store, Settings: store, People: store, Runs: store}
	cfg := config.DefaultAnalyticsConfig()
	if mutate != nil {
		mutate(&deps, &cfg)
	}

	job, err := NewJob(deps, cfg)
	require.NoError(t, err)
	job.SetRetryOptions(service.RetryOptions{MaxAttempts: 1})
	return job
}

func TestJob_Run_ClassifiesEveryEligibleUnit(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))
	job := newTestJob(t, db.Storage, nil)

	summary, err := job.Run(ctx, testNow, RunOptions{})
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, 12, summary.Eligible)
	assert.Equal(t, 12, summary.Attempted)
	assert.Equal(t, 12, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.True(t, summary.BinsRecalculated)
	require.Len(t, summary.Results, 12)
	for i, result := range summary.Results {
		assert.Equal(t, fmt.Sprintf("G%02d", i+1), result.GiverID, "results are ordered by giver id")
	}

	adult := db.MustAttributes("G12-p1")
	assert.Equal(t, "1", adult[model.AttributeGivingBin])
	assert.Equal(t, "3", adult[model.AttributeFrequencyLabel])
	assert.Equal(t, model.SourceWebsite, adult[model.AttributePreferredSource])
	assert.NotEmpty(t, adult[model.AttributeLastClassificationDateTime])

	assert.Empty(t, db.MustAttributes("G12-p2"), "children receive no attributes")

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.LastRunDateTime)
	assert.True(t, settings.LastRunDateTime.Equal(testNow))
	assert.Len(t, settings.GivingBins, model.BinCount)
	assert.Equal(t, 1, settings.Version)

	runs, err := db.Storage.GetRecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].ID)
	assert.Equal(t, 12, runs[0].Succeeded)
	assert.Contains(t, runs[0].Result, "Classified 12 giving units")
}

func TestJob_Run_GatesRepeatRuns(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))
	job := newTestJob(t, db.Storage, nil)

	_, err := job.Run(ctx, testNow, RunOptions{})
	require.NoError(t, err)

	later := testNow.Add(3 * time.Hour)
	summary, err := job.Run(ctx, later, RunOptions{})
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Equal(t, "classification already ran today", summary.SkipReason)

	// Forcing bypasses the gate but nobody has given since the last run.
	summary, err = job.Run(ctx, later, RunOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 0, summary.Eligible)
	assert.Equal(t, 0, summary.Attempted)

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, settings.Version)
}

func TestJob_Run_DryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))
	job := newTestJob(t, db.Storage, nil)

	summary, err := job.Run(ctx, testNow, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 12, summary.Succeeded)
	assert.True(t, summary.DryRun)

	assert.Empty(t, db.MustAttributes("G01-p1"))

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings.LastRunDateTime)
	assert.Equal(t, 0, settings.Version)

	runs, err := db.Storage.GetRecentRuns(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestJob_Run_KeepsPreviousBinsForFewGivers(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(3))

	previous := testBins("900", "600", "300", "0")
	_, err := db.Storage.SaveSettings(ctx, model.GivingAnalyticsSettings{GivingBins: previous})
	require.NoError(t, err)

	job := newTestJob(t, db.Storage, nil)
	summary, err := job.Run(ctx, testNow, RunOptions{})
	require.NoError(t, err)

	assert.False(t, summary.BinsRecalculated)
	assert.Equal(t, 3, summary.Succeeded)

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings.GivingBins, model.BinCount)
	for i := range previous {
		assert.True(t, settings.GivingBins[i].LowerLimit.Equal(previous[i].LowerLimit))
	}
	assert.Nil(t, settings.BinsUpdatedDateTime)
}

func TestJob_Run_PartialFailure(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))

	writer := &mockWriter{}
	writer.On("WriteClassification", mock.Anything, mock.MatchedBy(func(r model.ClassificationResult) bool {
		return r.GiverID == "G03"
	}), mock.Anything).Return(errors.New("attribute store unavailable"))
	writer.On("WriteClassification", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	job := newTestJob(t, db.Storage, func(deps *Dependencies, _ *config.AnalyticsConfig) {
		deps.Writer = writer
	})

	summary, err := job.Run(ctx, testNow, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, 12, summary.Attempted)
	assert.Equal(t, 11, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "giver G03")
	writer.AssertNumberOfCalls(t, "WriteClassification", 12)

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.LastRunDateTime)
}

func TestJob_Run_AllUnitsFailed(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))

	job := newTestJob(t, db.Storage, func(deps *Dependencies, _ *config.AnalyticsConfig) {
		deps.Gifts = failingGifts{GiftStore: db.Storage}
	})

	summary, err := job.Run(ctx, testNow, RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAllUnitsFailed)
	assert.ErrorIs(t, err, common.ErrDataUnavailable)

	require.NotNil(t, summary)
	assert.Equal(t, 12, summary.Failed)
	assert.Equal(t, 0, summary.Succeeded)

	settings, err := db.Storage.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings.LastRunDateTime, "a run where every unit failed must not hide them from the next run")
	assert.Len(t, settings.GivingBins, model.BinCount)
}

func TestJob_Run_StopsOnCancellation(t *testing.T) {
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	writer := &mockWriter{}
	writer.On("WriteClassification", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil)

	job := newTestJob(t, db.Storage, func(deps *Dependencies, cfg *config.AnalyticsConfig) {
		deps.Writer = writer
		cfg.Workers = 1
	})

	summary, err := job.Run(ctx, testNow, RunOptions{})
	require.ErrorIs(t, err, context.Canceled)

	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "G01", summary.Results[0].GiverID)
	writer.AssertNumberOfCalls(t, "WriteClassification", 1)

	settings, err := db.Storage.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, settings.Version, "a cancelled run leaves the settings untouched")
}

func TestNewJob_RejectsIncompleteSetup(t *testing.T) {
	db := testutil.SetupTestDB(t)

	_, err := NewJob(Dependencies{Gifts: db.Storage}, config.DefaultAnalyticsConfig())
	assert.ErrorIs(t, err, common.ErrFatalConfiguration)

	cfg := config.DefaultAnalyticsConfig()
	cfg.Workers = 0
	_, err = NewJob(Dependencies{Gifts: db.Storage, Settings: db.Storage, People: db.Storage}, cfg)
	assert.ErrorIs(t, err, common.ErrFatalConfiguration)
}

func TestRunSummary_ResultText(t *testing.T) {
	tests := []struct {
		name    string
		summary RunSummary
		want    string
	}{
		{
			name:    "skipped",
			summary: RunSummary{Skipped: true, SkipReason: "classification already ran today"},
			want:    "Skipped: classification already ran today",
		},
		{
			name:    "one unit",
			summary: RunSummary{Succeeded: 1},
			want:    "Classified 1 giving unit",
		},
		{
			name:    "bins and errors",
			summary: RunSummary{Succeeded: 2, BinsRecalculated: true, Errors: []string{"giver G1: boom"}},
			want:    "Classified 2 giving units\nGiving bins recalculated\nErrors: \ngiver G1: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.ResultText())
		})
	}
}

func TestJob_Run_ReplaysEarlierDate(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDBWithGivers(t, testNow, seedGivers(12))
	job := newTestJob(t, db.Storage, nil)

	past := testNow.AddDate(0, 0, -45)
	summary, err := job.Run(ctx, past, RunOptions{Force: true, DryRun: true})
	require.NoError(t, err)
	require.Len(t, summary.Results, 12)

	// Gifts are every 30 days up to testNow, so the last one on or before
	// past was 60 days before testNow.
	lastGift := testNow.AddDate(0, 0, -60)
	for _, result := range summary.Results {
		require.NotNil(t, result.LastGiftDate, result.GiverID)
		assert.False(t, result.LastGiftDate.After(past), "%s last gift %s is after %s", result.GiverID, result.LastGiftDate, past)
		assert.True(t, result.LastGiftDate.Equal(lastGift), "%s last gift = %s", result.GiverID, result.LastGiftDate)
		require.NotNil(t, result.NextExpectedGiftDate, result.GiverID)
		assert.True(t, result.NextExpectedGiftDate.Equal(lastGift.AddDate(0, 0, 30)),
			"%s next expected gift = %s", result.GiverID, result.NextExpectedGiftDate)
	}
}
