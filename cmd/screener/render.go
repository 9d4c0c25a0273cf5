package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"signal-screener/internal/reportlog"
	"signal-screener/internal/types"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	statusStyles = map[types.Status]lipgloss.Style{
		types.StatusTakeProfit: cellStyle.Foreground(lipgloss.Color("#10B981")).Bold(true),
		types.StatusHold:       cellStyle.Foreground(lipgloss.Color("#F59E0B")),
		types.StatusStopLoss:   cellStyle.Foreground(lipgloss.Color("#EF4444")).Bold(true),
		types.StatusError:      cellStyle.Foreground(lipgloss.Color("#6B7280")),
	}

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeReport prints r as json (default), table or csv
func writeReport(w io.Writer, r *types.Report, format string) error {
	switch format {
	case "table":
		_, err := fmt.Fprintln(w, renderReport(r))
		return err
	case "csv":
		return reportlog.WriteCSV(w, r)
	default:
		return writeJSON(w, r)
	}
}

// renderReport draws a report as a bordered table, one row per ticker in
// request order.
func renderReport(r *types.Report) string {
	rows := make([][]string, 0, len(r.Tickers))
	statuses := make([]types.Status, 0, len(r.Tickers))
	for _, res := range r.Ordered() {
		rows = append(rows, []string{
			res.Ticker,
			string(res.Status),
			formatPercent(res.PercentChange),
			formatPrice(res.StartPrice),
			formatPrice(res.EndPrice),
			res.Message,
		})
		statuses = append(statuses, res.Status)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers("TICKER", "STATUS", "CHANGE", "START", "END", "NOTE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(statuses) {
				return statusStyles[statuses[row]]
			}
			return cellStyle
		})

	title := fmt.Sprintf("Run %s  stop_loss=%g  take_profit=%g", r.RunID, r.Thresholds.StopLoss, r.Thresholds.TakeProfit)
	if r.Sector != "" {
		title = fmt.Sprintf("%s  sector=%s", title, r.Sector)
	}
	selected := fmt.Sprintf("Selected: %v", r.Selected)
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), t.Render(), selected)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}

func formatPrice(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
