package main

import (
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/Veraticus/giving-analytics/internal/cli"
	"github.com/Veraticus/giving-analytics/internal/common"
	"github.com/Veraticus/giving-analytics/internal/config"
	"github.com/Veraticus/giving-analytics/internal/model"
	"github.com/Veraticus/giving-analytics/internal/ofx"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import gifts from OFX/QFX bank statements",
		Long: `Import deposits from OFX/QFX bank statements as gifts.

Each deposit's payee name is looked up in a giver map, a YAML file listing the
payee names used by each giver id:

  givers:
    G100: ["JOHN SMITH", "J SMITH"]
    G200: ["MARY JONES"]

Deposits from unknown payees are reported and skipped. Gifts already imported
are ignored, so statements can be imported more than once.

Examples:
  giving import-ofx --giver-map givers.yaml ~/Downloads/deposits_jan_2024.qfx
  giving import-ofx --giver-map givers.yaml ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().String("giver-map", "", "YAML file mapping payee names to giver ids (required)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")
	_ = cmd.MarkFlagRequired("giver-map")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	mapPath, _ := cmd.Flags().GetString("giver-map")

	givers, err := ofx.LoadGiverMap(config.ExpandPath(mapPath))
	if err != nil {
		return common.NewUserError("Could not load giver map", err)
	}

	// Expand globs and collect all files
	var allFiles []string
	for _, pattern := range args {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			slog.Warn("No files found matching pattern", "pattern", pattern)
			continue
		}
		allFiles = append(allFiles, matches...)
	}
	if len(allFiles) == 0 {
		return common.NewUserError("No files found to import", nil)
	}

	slog.Info("🎁 Importing OFX files...",
		"file_count", len(allFiles),
		"dry_run", dryRun)

	parser := ofx.NewParser(givers)
	var allGifts []model.Gift
	unmatched := make(map[string]bool)

	for _, filePath := range allFiles {
		f, err := os.Open(filePath)
		if err != nil {
			slog.Error("Failed to open file", "file", filePath, "error", err)
			continue
		}

		result, err := parser.ParseFile(ctx, f)
		_ = f.Close()
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", filePath, "error", err)
			continue
		}

		for _, name := range result.Unmatched {
			unmatched[name] = true
		}
		allGifts = append(allGifts, result.Gifts...)
		slog.Info("Processed file",
			"file", filepath.Base(filePath),
			"gifts", len(result.Gifts),
			"unmatched", len(result.Unmatched),
			"skipped", result.Skipped)
	}

	out := cmd.OutOrStdout()
	for _, name := range slices.Sorted(maps.Keys(unmatched)) {
		fmt.Fprintln(out, cli.FormatWarning("No giver for payee: "+name))
	}

	if len(allGifts) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No gifts found"))
		return nil
	}

	total := decimal.Zero
	for _, g := range allGifts {
		total = total.Add(g.Amount)
	}

	if dryRun {
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Dry run: %d gifts totalling $%s would be imported",
			len(allGifts), total.StringFixed(2))))
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	inserted, err := store.SaveGifts(ctx, allGifts)
	if err != nil {
		return fmt.Errorf("failed to save gifts: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d new gifts (%d already present), $%s total",
		inserted, len(allGifts)-inserted, total.StringFixed(2))))
	return nil
}
