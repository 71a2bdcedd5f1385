package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/giving-analytics/internal/cli"
	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify eligible giving units",
		Long: `Run the giving analytics job once.

Giving bins are recalculated from the last twelve months of gifts, then every
eligible giving unit is classified and its adults receive the results as
attributes.

Examples:
  giving classify                    # Run as of now
  giving classify --force            # Run even if already run today
  giving classify --now 2024-06-30   # Run as of the end of June 30th
  giving classify --dry-run          # Preview without saving changes`,
		RunE: runClassify,
	}

	// Flags
	cmd.Flags().String("now", "", "Classify as of this time (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().BoolP("force", "f", false, "Ignore the once-a-day and day-of-week run gate")
	cmd.Flags().Bool("dry-run", false, "Preview without saving changes")
	cmd.Flags().Bool("no-progress", false, "Hide the progress bar")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("classification.now", cmd.Flags().Lookup("now"))
	_ = viper.BindPFlag("classification.force", cmd.Flags().Lookup("force"))
	_ = viper.BindPFlag("classification.dry_run", cmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("classification.no_progress", cmd.Flags().Lookup("no-progress"))

	return cmd
}

func runClassify(cmd *cobra.Command, _ []string) error {
	now, err := parseNow(viper.GetString("classification.now"))
	if err != nil {
		return common.NewUserError("Invalid --now value", err)
	}
	opts := engine.RunOptions{
		Force:  viper.GetBool("classification.force"),
		DryRun: viper.GetBool("classification.dry_run"),
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx := interrupts.HandleInterrupts(cmd.Context(), opts.DryRun)

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	deps := engine.Dependencies{
		Gifts:    store,
		Settings: store,
		People:   store,
		Runs:     store,
	}
	if !viper.GetBool("classification.no_progress") {
		deps.Progress = cli.NewProgressBar(os.Stderr)
	}

	job, err := engine.NewJob(deps, cfg)
	if err != nil {
		return err
	}

	slog.Info("📊 Starting giving analytics", "now", now, "force", opts.Force, "dry_run", opts.DryRun)

	summary, runErr := job.Run(ctx, now, opts)
	if summary != nil {
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderRunSummary(summary))
	}

	switch {
	case runErr == nil:
		return nil
	case interrupts.WasInterrupted():
		return nil
	case errors.Is(runErr, common.ErrAllUnitsFailed):
		return common.NewUserError("No giving unit could be classified", runErr)
	default:
		return runErr
	}
}
