// Package reporting renders reconstructed trades for human and
// spreadsheet consumption. Monetary columns appear twice: the raw
// atomic integer for lossless downstream processing and a formatted
// 6-decimal string for display.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"solana-perp-history/internal/domain"
)

// RenderTradesCSV renders trades as a CSV document.
func RenderTradesCSV(trades []*domain.Trade) string {
	var sb strings.Builder

	sb.WriteString("identifier,ordinal,owner,side,status,")
	sb.WriteString("entry_price_raw,entry_price,exit_price_raw,exit_price,")
	sb.WriteString("size_raw,size,max_size_raw,max_size,collateral_raw,collateral,")
	sb.WriteString("leverage,pnl_raw,pnl,roi_pct,fees_raw,fees,")
	sb.WriteString("open_time,close_time,events\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%d,%s,%d,%s,%d,%s,%d,%s,%d,%s,%.4f,%d,%s,%.4f,%d,%s,%s,%s,%d\n",
			t.ID.Identifier,
			t.ID.Ordinal,
			t.Owner,
			t.Side,
			t.Status,
			t.EntryPrice.Raw(), t.EntryPrice,
			t.ExitPrice.Raw(), t.ExitPrice,
			t.CurrentSizeUsd.Raw(), t.CurrentSizeUsd,
			t.MaxSizeUsd.Raw(), t.MaxSizeUsd,
			t.CollateralUsd.Raw(), t.CollateralUsd,
			t.Leverage,
			t.CumulativePnlUsd.Raw(), t.CumulativePnlUsd,
			t.Roi,
			t.CumulativeFeesUsd.Raw(), t.CumulativeFeesUsd,
			formatTime(t.OpenTime),
			formatTime(t.CloseTime),
			len(t.Events),
		))
	}

	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
