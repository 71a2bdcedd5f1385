package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/giving-analytics/internal/engine"
	"github.com/Veraticus/giving-analytics/internal/model"
)

const timestampFormat = "2006-01-02 15:04:05 MST"

// RenderRunSummary renders the outcome of a giving analytics run.
func RenderRunSummary(summary *engine.RunSummary) string {
	if summary.Skipped {
		return FormatInfo("Run skipped: " + summary.SkipReason)
	}

	var sb strings.Builder
	sb.WriteString(RenderField("Run", summary.RunID) + "\n")
	sb.WriteString(RenderField("As of", summary.Now.Format(timestampFormat)) + "\n")
	sb.WriteString(RenderField("Eligible units", fmt.Sprintf("%d", summary.Eligible)) + "\n")
	sb.WriteString(RenderField("Classified", SuccessStyle.Render(fmt.Sprintf("%d", summary.Succeeded))) + "\n")
	if summary.Failed > 0 {
		sb.WriteString(RenderField("Failed", ErrorStyle.Render(fmt.Sprintf("%d", summary.Failed))) + "\n")
	}
	sb.WriteString(RenderField("Duration", summary.Duration.Round(time.Millisecond).String()) + "\n")

	binNote := "kept previous thresholds"
	if summary.BinsRecalculated {
		binNote = "recalculated"
	}
	sb.WriteString(RenderField("Giving bins", binNote) + "\n")
	sb.WriteString(renderBins(summary.Bins))

	for _, msg := range summary.Errors {
		sb.WriteString("\n" + FormatError(msg))
	}

	title := ChartIcon + " Giving Analytics Complete"
	if summary.DryRun {
		title += " (dry run)"
	}
	return RenderBox(title, strings.TrimRight(sb.String(), "\n"))
}

// RenderSettings renders the stored job settings and recent runs.
func RenderSettings(settings model.GivingAnalyticsSettings, runs []model.RunRecord) string {
	var sb strings.Builder
	sb.WriteString(RenderField("Version", fmt.Sprintf("%d", settings.Version)) + "\n")
	sb.WriteString(RenderField("Last run", formatOptionalTime(settings.LastRunDateTime)) + "\n")
	sb.WriteString(RenderField("Bins updated", formatOptionalTime(settings.BinsUpdatedDateTime)) + "\n")
	sb.WriteString(renderBins(settings.GivingBins))

	if len(runs) > 0 {
		sb.WriteString("\n" + BoldStyle.Render("Recent runs") + "\n")
		for _, run := range runs {
			line := fmt.Sprintf("%s  eligible %d, classified %d, failed %d",
				run.StartedAt.Format(timestampFormat), run.Eligible, run.Succeeded, run.Failed)
			if run.Failed > 0 {
				line = WarningStyle.Render(line)
			}
			sb.WriteString(line + "\n")
		}
	}

	return RenderBox(FolderIcon+" Giving Analytics Settings", strings.TrimRight(sb.String(), "\n"))
}

func renderBins(bins []model.GivingBin) string {
	if len(bins) == 0 {
		return SubtleStyle.Render("No giving bins computed yet") + "\n"
	}

	var sb strings.Builder
	for i, bin := range bins {
		sb.WriteString(RenderField(fmt.Sprintf("  Bin %d", i+1), "≥ $"+bin.LowerLimit.StringFixed(2)) + "\n")
	}
	return sb.String()
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return SubtleStyle.Render("never")
	}
	return t.Format(timestampFormat)
}
