package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/config"
	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/service"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// RunOptions configures a single job execution.
type RunOptions struct {
	Force  bool // Ignore the once-a-day and day-of-week gate
	DryRun bool // Compute results without writing attributes or settings
}

// UnitResult is the outcome of classifying one giving unit.
type UnitResult struct {
	Error  error
	Result model.ClassificationResult
	Unit   model.GivingUnit
}

// RunSummary describes a job execution.
type RunSummary struct {
	StartedAt        time.Time
	Now              time.Time
	RunID            string
	SkipReason       string
	Results          []model.ClassificationResult // Successful results ordered by giver id
	Errors           []string
	Bins             []model.GivingBin
	Duration         time.Duration
	Eligible         int
	Attempted        int
	Succeeded        int
	Failed           int
	Skipped          bool
	BinsRecalculated bool
	DryRun           bool
}

// ResultText formats the summary the way it is recorded in the run log.
func (s *RunSummary) ResultText() string {
	if s.Skipped {
		return "Skipped: " + s.SkipReason
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Classified %d giving %s", s.Succeeded, pluralize("unit", s.Succeeded))
	if s.BinsRecalculated {
		sb.WriteString("\nGiving bins recalculated")
	}
	if len(s.Errors) > 0 {
		sb.WriteString("\nErrors: ")
		for _, msg := range s.Errors {
			sb.WriteString("\n")
			sb.WriteString(msg)
		}
	}
	return sb.String()
}

func pluralize(word string, count int) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// Job is the giving analytics job: it selects eligible giving units,
// recalculates the global giving bins, classifies each unit and writes the
// results onto the unit's adults.
type Job struct {
	gifts    service.GiftStore
	settings service.SettingsStore
	people   service.PersonStore
	runs     service.RunLog
	writer   AttributeWriter
	progress ProgressReporter
	cfg      config.AnalyticsConfig
	retry    service.RetryOptions
}

// NewJob creates a job from its collaborators and configuration.
func NewJob(deps Dependencies, cfg config.AnalyticsConfig) (*Job, error) {
	if deps.Gifts == nil || deps.Settings == nil || deps.People == nil {
		return nil, fmt.Errorf("%w: gift, settings and person stores are required", common.ErrFatalConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrFatalConfiguration, err)
	}

	job := &Job{
		gifts:    deps.Gifts,
		settings: deps.Settings,
		people:   deps.People,
		runs:     deps.Runs,
		writer:   deps.Writer,
		progress: deps.Progress,
		cfg:      cfg,
		retry: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 100 * time.Millisecond,
			MaxDelay:     2 * time.Second,
			Multiplier:   2.0,
		},
	}
	if job.writer == nil {
		job.writer = NewAttributeWriter(deps.People)
	}
	if job.progress == nil {
		job.progress = noopProgress{}
	}
	return job, nil
}

// SetRetryOptions overrides how storage reads are retried.
func (j *Job) SetRetryOptions(opts service.RetryOptions) {
	j.retry = opts
}

// Run executes the job as of now. Per-unit failures are collected in the
// summary; an error is returned when the run could not start, was cancelled,
// or every attempted unit failed.
func (j *Job) Run(ctx context.Context, now time.Time, opts RunOptions) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
		Now:       now,
		DryRun:    opts.DryRun,
	}

	settings, err := j.settings.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load giving analytics settings: %v", common.ErrFatalConfiguration, err)
	}

	if !opts.Force {
		if ok, reason := ShouldRun(now, settings.LastRunDateTime, j.cfg.DaysOfWeek); !ok {
			summary.Skipped = true
			summary.SkipReason = reason
			slog.Info("Skipping giving analytics run", "reason", reason)
			return summary, nil
		}
	}

	var units []model.GivingUnit
	if err := common.WithRetry(ctx, func() error {
		var loadErr error
		units, loadErr = j.gifts.GetGivingUnits(ctx, now)
		return loadErr
	}, j.retry); err != nil {
		return nil, fmt.Errorf("%w: failed to load giving units: %v", common.ErrDataUnavailable, err)
	}

	eligible := SelectEligible(units, EligibilityCriteria{
		Now:                        now,
		LastRun:                    settings.LastRunDateTime,
		ClassificationLifespanDays: j.cfg.ClassificationLifespanDays,
		MaxDaysSinceLastGift:       j.cfg.MaxDaysSinceLastGift,
	})
	summary.Eligible = len(eligible)

	slog.Info("Starting giving analytics run",
		"run_id", summary.RunID,
		"giving_units", len(units),
		"eligible", len(eligible),
		"dry_run", opts.DryRun)

	// Bins are global and must be settled before any unit is classified.
	classifier, err := j.prepareClassifier(ctx, now, settings, summary)
	if err != nil {
		return nil, err
	}

	results := j.classifyUnits(ctx, now, eligible, classifier, opts)

	var unitErrs []error
	for _, r := range results {
		summary.Attempted++
		if r.Error != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, r.Error.Error())
			unitErrs = append(unitErrs, r.Error)
			continue
		}
		summary.Succeeded++
		summary.Results = append(summary.Results, r.Result)
	}
	summary.Duration = time.Since(summary.StartedAt)

	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Warn("Giving analytics run cancelled",
			"run_id", summary.RunID,
			"classified", summary.Succeeded,
			"remaining", len(eligible)-summary.Attempted)
		return summary, ctxErr
	}

	allFailed := summary.Attempted > 0 && summary.Succeeded == 0

	if !opts.DryRun {
		updated := settings
		updated.GivingBins = summary.Bins
		if summary.BinsRecalculated {
			updated.BinsUpdatedDateTime = &now
		}
		// A run where nothing could be classified must not hide those units
		// from the next run.
		if !allFailed {
			updated.LastRunDateTime = &now
		}
		if _, err := j.settings.SaveSettings(ctx, updated); err != nil {
			return summary, fmt.Errorf("failed to save giving analytics settings: %w", err)
		}
	}

	j.recordRun(ctx, summary)

	slog.Info("Giving analytics run complete",
		"run_id", summary.RunID,
		"eligible", summary.Eligible,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"bins_recalculated", summary.BinsRecalculated,
		"duration", summary.Duration)

	if allFailed {
		return summary, fmt.Errorf("%w: %w", common.ErrAllUnitsFailed, errors.Join(unitErrs...))
	}
	return summary, nil
}

// prepareClassifier recalculates the giving bins from the last twelve months
// of giving, falling back to the stored bins when too few units gave.
func (j *Job) prepareClassifier(ctx context.Context, now time.Time, settings model.GivingAnalyticsSettings, summary *RunSummary) (*Classifier, error) {
	start := WindowStart(now)
	var recent []model.Gift
	if err := common.WithRetry(ctx, func() error {
		var loadErr error
		recent, loadErr = j.gifts.GetGifts(ctx, service.GiftFilter{Start: &start, End: &now})
		return loadErr
	}, j.retry); err != nil {
		return nil, fmt.Errorf("%w: failed to load recent gifts: %v", common.ErrDataUnavailable, err)
	}

	distribution := NewDistribution(GivingTotals(recent))
	bins, recalculated := ComputeBins(distribution, j.cfg.MinBinGivers)
	if !recalculated {
		bins = settings.GivingBins
		common.LogInfo("Keeping previous giving bins", common.Fields{
			"givers":     distribution.Len(),
			"min_givers": j.cfg.MinBinGivers,
		})
	}
	summary.Bins = bins
	summary.BinsRecalculated = recalculated

	return NewClassifier(bins, distribution), nil
}

// classifyUnits classifies the units on a bounded pool of workers. Results are
// returned in the order of units; units not started before cancellation are
// left out.
func (j *Job) classifyUnits(
	ctx context.Context,
	now time.Time,
	units []model.GivingUnit,
	classifier *Classifier,
	opts RunOptions,
) []UnitResult {
	if len(units) == 0 {
		return nil
	}

	giftsByGiver, fetchErrs := j.loadUnitGifts(ctx, now, units)

	results := make([]UnitResult, len(units))
	processed := make([]bool, len(units))

	j.progress.Start(len(units))
	defer j.progress.Finish()

	var g errgroup.Group
	g.SetLimit(j.cfg.Workers)

	for i, unit := range units {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			// A worker slot may free up only after cancellation.
			if ctx.Err() != nil {
				return nil
			}
			processed[i] = true
			defer j.progress.Increment()

			if fetchErr, ok := fetchErrs[unit.GiverID]; ok {
				results[i] = UnitResult{Unit: unit, Error: &common.UnitError{GiverID: unit.GiverID, Err: fetchErr}}
			} else {
				results[i] = j.classifyUnit(ctx, now, unit, giftsByGiver[unit.GiverID], classifier, opts)
			}

			if results[i].Error != nil {
				common.LogError(results[i].Error, "Failed to classify giving unit", common.Fields{"giver_id": unit.GiverID})
			}
			return nil
		})
	}
	_ = g.Wait()

	completed := make([]UnitResult, 0, len(units))
	for i, ok := range processed {
		if ok {
			completed = append(completed, results[i])
		}
	}
	sort.SliceStable(completed, func(a, b int) bool {
		return completed[a].Unit.GiverID < completed[b].Unit.GiverID
	})
	return completed
}

// loadUnitGifts fetches the window gifts of every unit in batches. Units whose
// batch could not be read are reported in the error map.
func (j *Job) loadUnitGifts(ctx context.Context, now time.Time, units []model.GivingUnit) (map[string][]model.Gift, map[string]error) {
	giftsByGiver := make(map[string][]model.Gift, len(units))
	fetchErrs := make(map[string]error)
	start := WindowStart(now)

	for offset := 0; offset < len(units); offset += j.cfg.FetchBatchSize {
		end := min(offset+j.cfg.FetchBatchSize, len(units))
		batch := units[offset:end]

		giverIDs := make([]string, len(batch))
		for i, unit := range batch {
			giverIDs[i] = unit.GiverID
		}

		var gifts []model.Gift
		err := common.WithRetry(ctx, func() error {
			var loadErr error
			gifts, loadErr = j.gifts.GetGifts(ctx, service.GiftFilter{GiverIDs: giverIDs, Start: &start, End: &now})
			return loadErr
		}, j.retry)
		if err != nil {
			for _, id := range giverIDs {
				fetchErrs[id] = fmt.Errorf("%w: %v", common.ErrDataUnavailable, err)
			}
			continue
		}

		for _, gift := range gifts {
			giftsByGiver[gift.GiverID] = append(giftsByGiver[gift.GiverID], gift)
		}
	}

	common.LogDebug("Loaded giving unit gifts", common.Fields{
		"units":             len(units),
		"failed_units":      len(fetchErrs),
		"givers_with_gifts": len(giftsByGiver),
	})

	return giftsByGiver, fetchErrs
}

// classifyUnit computes one unit's classification and, unless this is a dry
// run, writes it to the unit's adults. Nothing is written unless the
// classification completed.
func (j *Job) classifyUnit(
	ctx context.Context,
	now time.Time,
	unit model.GivingUnit,
	gifts []model.Gift,
	classifier *Classifier,
	opts RunOptions,
) UnitResult {
	result, err := classifier.Classify(unit, gifts, now)
	if err != nil {
		return UnitResult{Unit: unit, Error: &common.UnitError{GiverID: unit.GiverID, Err: err}}
	}

	if opts.DryRun {
		return UnitResult{Unit: unit, Result: result}
	}

	adults, err := j.people.GetAdults(ctx, unit.GiverID)
	if err != nil {
		return UnitResult{Unit: unit, Error: &common.UnitError{
			GiverID: unit.GiverID,
			Err:     fmt.Errorf("%w: failed to load adults: %v", common.ErrDataUnavailable, err),
		}}
	}
	if len(adults) == 0 {
		slog.Debug("Giving unit has no adults to write to", "giver_id", unit.GiverID)
	}

	if err := j.writer.WriteClassification(ctx, result, adults); err != nil {
		return UnitResult{Unit: unit, Error: &common.UnitError{
			GiverID: unit.GiverID,
			Err:     fmt.Errorf("failed to write classification: %w", err),
		}}
	}

	return UnitResult{Unit: unit, Result: result}
}

func (j *Job) recordRun(ctx context.Context, summary *RunSummary) {
	if j.runs == nil || summary.DryRun {
		return
	}
	run := &model.RunRecord{
		ID:         summary.RunID,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.StartedAt.Add(summary.Duration),
		Eligible:   summary.Eligible,
		Succeeded:  summary.Succeeded,
		Failed:     summary.Failed,
		Result:     summary.ResultText(),
	}
	if err := j.runs.SaveRun(ctx, run); err != nil {
		slog.Warn("Failed to record giving analytics run", "run_id", summary.RunID, "error", err)
	}
}
