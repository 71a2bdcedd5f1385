package main

import (
	"fmt"

	"github.com/Veraticus/giving-analytics/internal/cli"
	"github.com/spf13/cobra"
)

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect giving analytics settings",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the last run, giving bins and recent runs",
		RunE:  runSettingsShow,
	}
	show.Flags().Int("runs", 5, "Number of recent runs to list")

	cmd.AddCommand(show)
	return cmd
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	limit, _ := cmd.Flags().GetInt("runs")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	settings, err := store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	runs, err := store.GetRecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to load run log: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSettings(settings, runs))
	return nil
}
