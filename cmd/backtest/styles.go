package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(18)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// formatPnL prints a signed amount with an arrow for its direction.
func formatPnL(value float64) string {
	text := fmt.Sprintf("%+.2f", value)

	switch {
	case value > 0:
		return text + " ▲"
	case value < 0:
		return text + " ▼"
	}

	return text
}

func renderSummary(stats types.BacktestStats) string {
	rows := [][2]string{
		{"Run", stats.ID},
		{"Strategy", stats.Strategy},
		{"Symbol", stats.Symbol},
		{"Initial balance", fmt.Sprintf("%.2f", stats.InitialBalance)},
		{"Final balance", fmt.Sprintf("%.2f", stats.FinalBalance)},
		{"Realized PnL", formatPnL(stats.TradePnl.RealizedPnL)},
		{"Unrealized PnL", formatPnL(stats.TradePnl.UnrealizedPnL)},
		{"Buy and hold", formatPnL(stats.BuyAndHoldPnl)},
		{"Positions", fmt.Sprintf("%d (%d closed)", stats.TradeResult.NumberOfPositions, stats.TradeResult.NumberOfClosedPositions)},
		{"Win rate", fmt.Sprintf("%.1f%%", stats.TradeResult.WinRate*100)},
		{"Exits", formatExitReasons(stats.TradeResult.ExitReasons)},
		{"Events", stats.EventsFilePath},
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, titleStyle.Render("Backtest summary"))

	for _, row := range rows {
		lines = append(lines, labelStyle.Render(row[0])+row[1])
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}

func formatExitReasons(reasons map[types.ExitReason]int) string {
	if len(reasons) == 0 {
		return "-"
	}

	parts := make([]string, 0, len(reasons))
	for reason, count := range reasons {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, count))
	}

	sort.Strings(parts)

	return strings.Join(parts, " ")
}
