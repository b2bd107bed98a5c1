package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"racefeed/internal/api"
	"racefeed/internal/pipeline"
	"racefeed/internal/rowstore"
	"racefeed/internal/submission"
)

// writeJSON prints v as indented JSON on the command's stdout; --json output
// shares the wire types of the daemon API.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderPassSummary(s pipeline.PassSummary, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pass %s (%s): %s in %s\n", s.ID, s.Trigger, colorOutcome(color, s.Result()), s.Duration().Round(time.Millisecond))
	if s.Err != nil {
		fmt.Fprintf(&b, "Error: %v\n", s.Err)
		return b.String()
	}
	fmt.Fprintf(&b, "Rows loaded: %d, groups: %d, skipped rows: %d\n", s.RowsLoaded, len(s.Groups), s.Skipped)
	if len(s.Groups) > 0 {
		rows := make([][]string, 0, len(s.Groups))
		for _, g := range s.Groups {
			detail := g.Link
			if g.Err != nil {
				detail = g.Err.Error()
			} else if len(g.Warnings) > 0 {
				detail = strings.Join(g.Warnings, "; ")
			}
			rows = append(rows, []string{
				strconv.Itoa(g.HeadRow),
				g.RowID,
				g.RaceName,
				strconv.Itoa(len(g.VariantRows)),
				colorOutcome(color, string(g.Outcome)),
				detail,
			})
		}
		b.WriteString(renderTable(
			[]string{"Row", "ID", "Race", "Variants", "Outcome", "Link / Detail"},
			rows,
			0, 3,
		))
		b.WriteString("\n")
	}
	for _, term := range s.Terminators {
		fmt.Fprintf(&b, "Row %d with status %q ended the group at row %d and was skipped\n", term.Position, term.Status, term.HeadPosition)
	}
	stats := s.Stats()
	fmt.Fprintf(&b, "Published %d (degraded %d), failed %d, needs fixes %d\n",
		stats.Published, stats.Degraded, stats.Failed, stats.ValidationFailed)
	return b.String()
}

func renderGroups(scan submission.ScanResult) string {
	var b strings.Builder
	if len(scan.Groups) == 0 {
		b.WriteString("No revised rows waiting to be published\n")
	} else {
		rows := make([][]string, 0, len(scan.Groups))
		for _, g := range scan.Groups {
			variants := make([]string, 0, len(g.Variants))
			for _, pos := range g.VariantPositions() {
				variants = append(variants, strconv.Itoa(pos))
			}
			rows = append(rows, []string{
				strconv.Itoa(g.Head.Position),
				g.Head.ID(),
				g.Head.Get(rowstore.FieldRaceName),
				strings.Join(variants, ","),
			})
		}
		b.WriteString(renderTable(
			[]string{"Head Row", "ID", "Race", "Variant Rows"},
			rows,
			0,
		))
		b.WriteString("\n")
	}
	for _, term := range scan.Terminators {
		fmt.Fprintf(&b, "Row %d has unrecognised status %q; it ends the group at row %d and will be skipped\n",
			term.Position, term.Status, term.HeadPosition)
	}
	return b.String()
}

func renderHistory(passes []api.Pass, color bool) string {
	if len(passes) == 0 {
		return "No passes recorded\n"
	}
	rows := make([][]string, 0, len(passes))
	for _, p := range passes {
		rows = append(rows, []string{
			p.StartedAt,
			p.Trigger,
			colorOutcome(color, p.Result),
			(time.Duration(p.DurationMS) * time.Millisecond).String(),
			strconv.Itoa(p.RowsLoaded),
			strconv.Itoa(p.Published),
			strconv.Itoa(p.Degraded),
			strconv.Itoa(p.Failed),
			strconv.Itoa(p.ValidationFailed),
		})
	}
	return renderTable(
		[]string{"Started", "Trigger", "Result", "Duration", "Rows", "Published", "Degraded", "Failed", "Needs Fixes"},
		rows,
		3, 4, 5, 6, 7, 8,
	) + "\n"
}

func renderStatus(s api.DaemonStatus, color bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daemon:    %s (pid %d)\n", yesNo(s.Running), s.PID)
	if s.StartedAt != "" {
		fmt.Fprintf(&b, "Started:   %s\n", s.StartedAt)
	}
	if s.Scheduler.Passing != "" {
		fmt.Fprintf(&b, "Pass:      running (%s)\n", s.Scheduler.Passing)
	} else {
		b.WriteString("Pass:      idle\n")
	}
	if s.Scheduler.NextRun != "" {
		fmt.Fprintf(&b, "Next pass: %s\n", s.Scheduler.NextRun)
	}
	if last := s.Scheduler.LastPass; last != nil {
		fmt.Fprintf(&b, "Last pass: %s %s (%d published, %d failed)\n",
			last.StartedAt, colorOutcome(color, last.Result), last.Published, last.Failed)
	}
	if s.Scheduler.LastError != "" {
		fmt.Fprintf(&b, "Last error: %s\n", s.Scheduler.LastError)
	}
	return b.String()
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
