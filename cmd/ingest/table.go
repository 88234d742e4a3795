package ingest

import (
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	ingestion "github.com/xailab/xai-review/internal/ingest"
)

// renderReport formats a run summary followed by an error table when
// failures were recorded.
func renderReport(report *ingestion.Report) string {
	var b strings.Builder

	summary := table.NewWriter()
	summary.SetStyle(table.StyleRounded)
	summary.SetTitle("Ingestion " + report.RunID)
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"Root", report.Root},
		{"Directories", directoryList(report.Directories)},
		{"Frames created", report.FramesCreated},
		{"Frames existing", report.FramesExisting},
		{"Masks created", report.MasksCreated},
		{"Masks existing", report.MasksExisting},
		{"Skipped", report.Skipped},
		{"Errors", len(report.Errors)},
		{"Duration", strconv.FormatInt(report.DurationMs, 10) + "ms"},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	b.WriteString(summary.Render())
	b.WriteString("\n")

	if len(report.Errors) == 0 {
		return b.String()
	}

	errs := table.NewWriter()
	errs.SetStyle(table.StyleRounded)
	errs.AppendHeader(table.Row{"Directory", "File", "Kind", "Message"})
	for _, e := range report.Errors {
		errs.AppendRow(table.Row{e.Directory, e.File, e.Kind, e.Message})
	}
	errs.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 80},
	})
	b.WriteString(errs.Render())
	b.WriteString("\n")

	return b.String()
}

func directoryList(dirs []string) string {
	if len(dirs) == 0 {
		return "-"
	}
	return strings.Join(dirs, ", ")
}
