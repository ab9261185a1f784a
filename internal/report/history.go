package report

import (
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/snapetech/playlist-dedup/internal/history"
)

// RenderRuns writes past runs, newest first.
func RenderRuns(w io.Writer, f Format, runs []history.Run) error {
	if runs == nil {
		runs = []history.Run{}
	}
	return render(w, f, runs, func() string {
		if len(runs) == 0 {
			return "No runs recorded.\n"
		}
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"Run", "Started", "Input", "Groups", "Removed", "Kept", "Dry run"})
		for _, r := range runs {
			dry := ""
			if r.DryRun {
				dry = "yes"
			}
			tw.AppendRow(table.Row{
				r.ID,
				r.StartedAt.Local().Format(time.DateTime),
				r.Input,
				strconv.Itoa(r.Summary.Groups),
				strconv.Itoa(r.Summary.Removed),
				strconv.Itoa(r.Summary.Kept),
				dry,
			})
		}
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 4, Align: text.AlignRight},
			{Number: 5, Align: text.AlignRight},
			{Number: 6, Align: text.AlignRight},
		})
		return tw.Render() + "\n"
	})
}

// RenderRemovals writes the entries one run removed.
func RenderRemovals(w io.Writer, f Format, removals []history.Removal) error {
	if removals == nil {
		removals = []history.Removal{}
	}
	return render(w, f, removals, func() string {
		if len(removals) == 0 {
			return "No entries removed.\n"
		}
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"#", "Channel", "Tier", "Name", "tvg-id", "URL"})
		for _, r := range removals {
			tw.AppendRow(table.Row{strconv.Itoa(r.Position), r.Key, r.Tier, r.Name, r.TvgID, r.URL})
		}
		return tw.Render() + "\n"
	})
}
