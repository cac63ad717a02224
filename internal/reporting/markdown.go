package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a run report as a Markdown string.
func RenderMarkdown(r *RunReport) string {
	var sb strings.Builder

	sb.WriteString("# Position History Report\n\n")
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.UTC().Format(time.RFC3339)))
	if r.Owner != "" {
		sb.WriteString(fmt.Sprintf("Owner: %s\n\n", r.Owner))
	}
	sb.WriteString(fmt.Sprintf("Window: %s to %s\n\n",
		r.WindowStart.UTC().Format(time.RFC3339), r.WindowEnd.UTC().Format(time.RFC3339)))

	sb.WriteString("## Retrieval Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Identifiers | %d |\n", r.Identifiers))
	sb.WriteString(fmt.Sprintf("| Pages Fetched | %d |\n", r.PagesFetched))
	sb.WriteString(fmt.Sprintf("| Records Fetched | %d |\n", r.RecordsFetched))
	sb.WriteString(fmt.Sprintf("| Partial Failures | %d |\n", r.PartialFailures))
	sb.WriteString(fmt.Sprintf("| Events Decoded | %d |\n", r.EventsDecoded))
	sb.WriteString(fmt.Sprintf("| Payloads Dropped | %d |\n", r.PayloadsDropped))
	sb.WriteString(fmt.Sprintf("| Unknown Enum Values | %d |\n", r.UnknownEnums))
	sb.WriteString("\n")

	sb.WriteString("## Trades\n\n")
	sb.WriteString(fmt.Sprintf("Active: %d | Completed: %d\n\n", len(r.Active), len(r.Completed)))
	if len(r.Completed) > 0 {
		sb.WriteString("| Trade | Side | Status | Entry | Exit | Max Size | PnL | ROI % | Fees | Closed |\n")
		sb.WriteString("|-------|------|--------|-------|------|----------|-----|-------|------|--------|\n")
		for _, t := range r.Completed {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %.2f | %s | %s |\n",
				t.ID, t.Side, t.Status, t.EntryPrice, t.ExitPrice,
				t.MaxSizeUsd, t.CumulativePnlUsd, t.Roi, t.CumulativeFeesUsd,
				t.CloseTime.UTC().Format(time.RFC3339)))
		}
		sb.WriteString("\n")
	}
	if len(r.Active) > 0 {
		sb.WriteString("| Trade | Side | Entry | Size | Collateral | Leverage | Opened |\n")
		sb.WriteString("|-------|------|-------|------|------------|----------|--------|\n")
		for _, t := range r.Active {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %.2f | %s |\n",
				t.ID, t.Side, t.EntryPrice, t.CurrentSizeUsd, t.CollateralUsd,
				t.Leverage, t.OpenTime.UTC().Format(time.RFC3339)))
		}
		sb.WriteString("\n")
	}

	if len(r.DataError) > 0 {
		sb.WriteString("## Data Consistency Errors\n\n")
		for _, e := range r.DataError {
			sb.WriteString(fmt.Sprintf("- %s\n", e))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
