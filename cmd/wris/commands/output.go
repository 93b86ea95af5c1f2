package commands

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"wris-inventory/internal/crawler"
	"wris-inventory/internal/db"
	"wris-inventory/internal/facet"
	"wris-inventory/internal/store"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	headerColor  = color.New(color.FgBlue, color.Bold)
	labelColor   = color.New(color.FgWhite, color.Bold)
	valueColor   = color.New(color.FgHiBlack)
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func printSection(title string) {
	fmt.Println()
	_, _ = headerColor.Printf("▸ %s\n", title)
}

func printSuccess(msg string) {
	_, _ = successColor.Printf("✓ %s\n", msg)
}

func printWarning(msg string) {
	_, _ = warningColor.Printf("⚠ %s\n", msg)
}

func printError(msg string) {
	_, _ = errorColor.Fprintf(os.Stderr, "✗ %s\n", msg)
}

func printLabelValue(label, value string) {
	_, _ = labelColor.Printf("  %s: ", label)
	_, _ = valueColor.Println(value)
}

type outcome int

const (
	outcome_success outcome = iota
	outcome_warning
	outcome_error
)

// summaryMessage reports what the run left on disk, counts are the records
// every output accepted rather than the records collected.
func summaryMessage(summary crawler.Summary, runErr error) (outcome, string) {
	persisted := summary.Persisted()
	switch {
	case runErr != nil && summary.Unsaved > 0:
		return outcome_error, fmt.Sprintf(
			"run aborted, %d of %d stations written, the rest could not be saved (%s): %s",
			persisted, summary.Records, summary.FlushErr, runErr,
		)
	case runErr != nil:
		return outcome_error, fmt.Sprintf("run aborted, %d stations written: %s", persisted, runErr)
	case summary.Unsaved > 0:
		return outcome_error, fmt.Sprintf(
			"%d of %d stations written, the rest could not be saved: %s",
			persisted, summary.Records, summary.FlushErr,
		)
	case summary.Abandoned > 0 || summary.Degraded > 0:
		return outcome_warning, fmt.Sprintf(
			"%d stations written, %d branches abandoned, %d stations without metadata",
			persisted, summary.Abandoned, summary.Degraded,
		)
	}
	return outcome_success, fmt.Sprintf("%d stations written", persisted)
}

func printSummary(state string, summary crawler.Summary, outputs []string, runErr error) {
	printSection("Crawl of " + state)

	t := newTable()
	t.AppendHeader(table.Row{"Districts", "Branches", "Leaves", "Resets", "Records", "Unsaved", "Degraded", "Duplicates", "Abandoned"})
	t.AppendRow(table.Row{
		summary.Districts,
		summary.Branches,
		summary.Leaves,
		summary.Resets,
		summary.Records,
		summary.Unsaved,
		summary.Degraded,
		summary.Duplicates,
		summary.Abandoned,
	})
	t.Render()

	for _, out := range outputs {
		printLabelValue("output", out)
	}

	kind, msg := summaryMessage(summary, runErr)
	switch kind {
	case outcome_error:
		printError(msg)
	case outcome_warning:
		printWarning(msg)
	default:
		printSuccess(msg)
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func renderRecords(records []facet.StationRecord) {
	t := newTable()
	t.AppendHeader(table.Row{"District", "Tehsil", "Block", "Agency", "Mode", "Code", "Name", "Metadata name"})
	for _, r := range records {
		t.AppendRow(table.Row{
			r.District, r.Tehsil, r.Block, r.Agency, r.Mode,
			deref(r.StationCode), r.StationName, deref(r.MetaName),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(records)})
	t.Render()
}

func renderStationHits(hits []store.StationHit) {
	t := newTable()
	t.AppendHeader(table.Row{"Run", "District", "Tehsil", "Block", "Agency", "Mode", "Name"})
	for _, h := range hits {
		r := h.Record
		t.AppendRow(table.Row{h.RunID, r.District, r.Tehsil, r.Block, r.Agency, r.Mode, r.StationName})
	}
	t.Render()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func statusText(status db.RunStatus) string {
	switch status {
	case db.RUN_STATUS_COMPLETE:
		return successColor.Sprint(string(status))
	case db.RUN_STATUS_ABORTED:
		return errorColor.Sprint(string(status))
	default:
		return warningColor.Sprint(string(status))
	}
}

func renderRuns(runs []store.Run) {
	t := newTable()
	t.AppendHeader(table.Row{"ID", "State", "Surface", "Started", "Finished", "Status", "Stations"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID, r.State, r.Surface,
			formatTime(r.StartedAt), formatTime(r.FinishedAt),
			statusText(r.Status), strconv.FormatInt(r.RecordCount, 10),
		})
	}
	t.Render()
}
