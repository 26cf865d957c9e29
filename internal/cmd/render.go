package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kaizengine/shopfloor/internal/order"
	"github.com/kaizengine/shopfloor/internal/shopfloor"
	"github.com/kaizengine/shopfloor/internal/telemetry"
	"github.com/kaizengine/shopfloor/internal/util"
)

// timeRounding keeps run durations readable in the summary line.
const timeRounding = 10 * time.Millisecond

// maxLineWidth caps order and detail lines so the report stays scannable.
const maxLineWidth = 100

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// renderReport formats the final run report for the terminal.
func renderReport(report *shopfloor.Report, metrics telemetry.Snapshot) string {
	var sb strings.Builder

	state := doneStyle.Render(string(report.State))
	if report.State == shopfloor.StateAborted {
		state = failedStyle.Render(string(report.State))
	}

	sb.WriteString(titleStyle.Render(fmt.Sprintf("Run %s: %s", report.RunID, report.Task)))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("State: %s", state))
	if report.Reason != nil {
		sb.WriteString(dimStyle.Render(fmt.Sprintf(" (%v)", report.Reason)))
	}
	sb.WriteString("\n\n")

	for _, o := range report.Orders {
		line := fmt.Sprintf("  %s WO-%d %s %s",
			statusGlyph(o.Status), o.Index, o.Description, attemptNote(o))
		sb.WriteString(util.TruncateANSI(line, maxLineWidth))
		sb.WriteString("\n")
		if o.Detail != "" && o.Status != order.StatusDone {
			detail := dimStyle.Render("      " + util.TruncateString(firstLine(o.Detail), maxLineWidth-6))
			sb.WriteString(detail)
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf(
		"%d cycles, %d attempts, %d reworks, %d merge conflicts, %s",
		report.Cycles, report.Attempts, report.Reworks,
		metrics.MergeConflicts, report.Duration.Round(timeRounding))))

	return sb.String()
}

func statusGlyph(s order.Status) string {
	switch s {
	case order.StatusDone:
		return doneStyle.Render("✓")
	case order.StatusFailed:
		return failedStyle.Render("✗")
	case order.StatusBlocked:
		return warnStyle.Render("⊘")
	default:
		return dimStyle.Render("·")
	}
}

func attemptNote(o shopfloor.OrderReport) string {
	note := fmt.Sprintf("(%d attempt", o.Attempts)
	if o.Attempts != 1 {
		note += "s"
	}
	note += ")"
	if o.Origin == order.OriginFeedback {
		note += " " + warnStyle.Render("reworked")
	}
	return dimStyle.Render(note)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
