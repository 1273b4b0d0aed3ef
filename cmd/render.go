package cmd

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/cleaner"
	"github.com/FrederikBertelsen/bgg-analysis-dash/internal/domain"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// renderTasks prints tasks with their progress and ETA.
func renderTasks(w io.Writer, tasks []*domain.ScrapeTask) {
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Status", "Progress", "Items", "ETA", "Last Update", "Message"})

	for _, task := range tasks {
		t.AppendRow(table.Row{
			task.ID,
			task.Name,
			task.Status,
			fmt.Sprintf("%.1f%%", task.Progress*100),
			intOrDash(task.ItemsProcessed),
			stringOrDash(task.ETA),
			task.LastUpdate.Local().Format(timeLayout),
			stringOrDash(task.Message),
		})
	}

	t.Render()
}

// renderLogLines prints log lines in line order.
func renderLogLines(w io.Writer, lines []*domain.ScrapeLogLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No log lines")
		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Time", "Text"})
	for _, line := range lines {
		t.AppendRow(table.Row{line.LineNo, line.CreatedAt.Local().Format(timeLayout), line.Text})
	}
	t.Render()
}

// renderSummary prints the outcome counts of a clean run.
func renderSummary(w io.Writer, summary cleaner.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Source Task", "Total", "Cleaned", "Failed", "Skipped"})
	t.AppendRow(table.Row{summary.SourceTaskID, summary.Total, summary.Cleaned, summary.Failed, summary.Skipped})
	t.Render()
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(*v)
}

func stringOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

