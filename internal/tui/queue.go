package tui

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/downlinkhq/downlink/internal/model"
)

// renderQueue renders the download queue view
func (a *App) renderQueue() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Downlink"))
	b.WriteString("\n")

	active, queued, done, failed := 0, 0, 0, 0
	for _, d := range a.downloads {
		switch {
		case d.Status.IsActive():
			active++
		case d.Status == model.StatusQueued:
			queued++
		case d.Status == model.StatusDone:
			done++
		case d.Status == model.StatusFailed:
			failed++
		}
	}
	b.WriteString(subtitleStyle.Render(
		fmt.Sprintf("%d active, %d queued, %d done, %d failed", active, queued, done, failed)))
	b.WriteString("\n\n")

	rows := a.visibleRows()
	if len(rows) == 0 {
		b.WriteString(mutedItemStyle.Render("No downloads yet. Press 'a' to add a URL.\n"))
		b.WriteString(helpStyle.Render("\n[a] Add  [q] Quit"))
		return b.String()
	}

	for i, d := range rows {
		prefix := "  "
		if a.cursor == i {
			prefix = "> "
		}
		indent := ""
		if d.ParentID != nil {
			indent = "  "
		}

		line := fmt.Sprintf("%s%s%s %s", prefix, indent, StatusIcon(d.Status), a.rowSummary(d))
		if a.cursor == i {
			b.WriteString(selectedItemStyle.Render(line))
		} else if d.Status == model.StatusCanceled {
			b.WriteString(mutedItemStyle.Render(line))
		} else {
			b.WriteString(normalItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if a.actionErr != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(a.actionErr))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(
		"\n[a] Add  [Enter] Detail  [Tab] Expand playlist  [s/S] Stop/all  [p/P] Resume/all  [y] Retry  [c] Cancel  [x] Remove  [q] Quit"))

	return b.String()
}

// rowSummary renders one queue line: name, bar, and transfer numbers.
func (a *App) rowSummary(d model.Download) string {
	name := d.Title
	if name == "" {
		name = d.SourceURL
	}
	name = truncate(name, 44)

	if d.SourceKind == model.SourcePlaylistParent {
		agg := a.aggregateOf(d.ID)
		bar := RenderBar(agg.Percent, 20)
		return fmt.Sprintf("%-44s %s %3.0f%%  %d/%d items", name, bar, agg.Percent, agg.Completed, agg.Total)
	}

	switch d.Status {
	case model.StatusDownloading, model.StatusPostProcessing, model.StatusStopped:
		pct, known := d.Progress.KnownPercent()
		bar := RenderBar(pct, 20)
		pctStr := " --%"
		if known {
			pctStr = fmt.Sprintf("%3.0f%%", pct)
		}
		return fmt.Sprintf("%-44s %s %s  %s  ETA %s",
			name, bar, pctStr, FormatSpeed(float64(d.Progress.SpeedBps)), FormatETA(d.Progress.ETASeconds))
	case model.StatusFailed:
		msg := "failed"
		if d.LastError != nil {
			msg = d.LastError.Message
		}
		return fmt.Sprintf("%-44s %s", name, truncate(msg, 40))
	default:
		return fmt.Sprintf("%-44s %s", name, string(d.Phase))
	}
}

// aggregateOf computes a parent's aggregate from the loaded snapshot so a
// render never calls back into the scheduler.
func (a *App) aggregateOf(parentID uuid.UUID) model.PlaylistAggregate {
	var children []model.Download
	for _, d := range a.downloads {
		if d.ParentID != nil && *d.ParentID == parentID {
			children = append(children, d)
		}
	}
	return model.Aggregate(children)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
