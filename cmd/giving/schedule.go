package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/giving-analytics/internal/engine"
	"github.com/Veraticus/giving-analytics/internal/scheduler"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run giving analytics on a cron schedule",
		Long: `Start a long-running process that runs the giving analytics job on the
configured cron schedule (schedule.cron, default "0 2 * * *").

The job's own run gate still applies: it classifies at most once per day and
only on the configured days of the week.`,
		RunE: runSchedule,
	}

	cmd.Flags().String("cron", "", "Cron spec overriding schedule.cron")
	cmd.Flags().Duration("timeout", 2*time.Hour, "Maximum duration of a single run (0 = unlimited)")

	_ = viper.BindPFlag("schedule.timeout", cmd.Flags().Lookup("timeout"))

	return cmd
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if spec, _ := cmd.Flags().GetString("cron"); spec != "" {
		cfg.Schedule = spec
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	job, err := engine.NewJob(engine.Dependencies{
		Gifts:    store,
		Settings: store,
		People:   store,
		Runs:     store,
	}, cfg)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(cfg.Schedule, time.Local, viper.GetDuration("schedule.timeout"),
		func(ctx context.Context, now time.Time) error {
			summary, err := job.Run(ctx, now, engine.RunOptions{})
			if summary != nil {
				slog.Info("Giving analytics run finished", "result", summary.ResultText())
			}
			return err
		})
	if err != nil {
		return err
	}

	slog.Info("⏰ Giving analytics scheduled", "cron", cfg.Schedule, "next_run", sched.Next(time.Now()))
	return sched.Run(ctx)
}
