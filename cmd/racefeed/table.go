package main

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"racefeed/internal/pipeline"
)

// renderTable draws rows under headers. Columns listed in numeric (zero
// based) are right aligned; short rows are padded with empty cells.
func renderTable(headers []string, rows [][]string, numeric ...int) string {
	if len(headers) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i := range configs {
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft, Align: text.AlignLeft}
		if slices.Contains(numeric, i) {
			configs[i].Align = text.AlignRight
		}
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

func toRow(cells []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}

// colorOutcome tints an outcome or pass result for terminal output.
func colorOutcome(enabled bool, value string) string {
	if !enabled {
		return value
	}
	var colors text.Colors
	switch value {
	case string(pipeline.OutcomePublished), pipeline.ResultCompleted:
		colors = text.Colors{text.FgGreen}
	case string(pipeline.OutcomeDegraded), string(pipeline.OutcomeValidationFailed):
		colors = text.Colors{text.FgYellow}
	case string(pipeline.OutcomeFailed), pipeline.ResultBatchFailed:
		colors = text.Colors{text.FgRed, text.Bold}
	default:
		return value
	}
	return colors.Sprint(value)
}
