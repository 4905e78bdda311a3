package tui

import (
	"fmt"
	"strings"

	"github.com/downlinkhq/downlink/internal/model"
)

// renderDetail renders one download with its recent process output.
func (a *App) renderDetail() string {
	d, ok := a.ctrl.Get(a.selected)
	if !ok {
		return errorStyle.Render("Download no longer exists.") +
			helpStyle.Render("\n\n[Esc] Back")
	}

	var b strings.Builder

	name := d.Title
	if name == "" {
		name = d.SourceURL
	}
	b.WriteString(titleStyle.Render(truncate(name, 70)))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render(d.SourceURL))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("  Status:   %s %s", StatusIcon(d.Status), d.Status))
	if d.Phase != "" {
		b.WriteString(fmt.Sprintf(" (%s)", d.Phase))
	}
	b.WriteString("\n")

	if d.Uploader != "" {
		b.WriteString(fmt.Sprintf("  Uploader: %s\n", d.Uploader))
	}
	if d.DurationSeconds > 0 {
		b.WriteString(fmt.Sprintf("  Duration: %s\n", FormatDuration(d.DurationSeconds)))
	}
	b.WriteString(fmt.Sprintf("  Preset:   %s\n", d.PresetID))

	if d.SourceKind == model.SourcePlaylistParent {
		agg := a.ctrl.AggregateFor(d.ID)
		b.WriteString(fmt.Sprintf("\n  Items:    %d total, %d done, %d failed, %d active\n",
			agg.Total, agg.Completed, agg.Failed, agg.Active))
		b.WriteString(fmt.Sprintf("  %s %3.0f%%\n", RenderBar(agg.Percent, 40), agg.Percent))
	} else {
		pct, known := d.Progress.KnownPercent()
		pctStr := "--%"
		if known {
			pctStr = fmt.Sprintf("%.1f%%", pct)
		}
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %s %s\n", RenderBar(pct, 40), pctStr))
		b.WriteString(fmt.Sprintf("  %s of %s  %s  ETA %s\n",
			FormatBytes(d.Progress.BytesDownloaded),
			FormatBytes(d.Progress.BytesTotal),
			FormatSpeed(float64(d.Progress.SpeedBps)),
			FormatETA(d.Progress.ETASeconds)))
	}

	if d.FinalPath != "" {
		b.WriteString(fmt.Sprintf("\n  Saved to: %s\n", d.FinalPath))
	}

	if d.LastError != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("  %s: %s", d.LastError.Code, d.LastError.Message)))
		b.WriteString("\n")
		for _, action := range d.LastError.Actions {
			b.WriteString(mutedItemStyle.Render(fmt.Sprintf("    · %s", action.Label)))
			b.WriteString("\n")
		}
	}

	if len(a.logs) > 0 {
		b.WriteString(sectionHeaderStyle.Render("Recent output"))
		b.WriteString("\n")
		for _, line := range a.logs {
			b.WriteString(mutedItemStyle.Render("  " + truncate(line.Line, 100)))
			b.WriteString("\n")
		}
	}

	if a.actionErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(a.actionErr))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("\n[s] Stop  [p] Resume  [y] Retry  [c] Cancel  [x] Remove  [Esc] Back  [q] Quit"))

	return b.String()
}
