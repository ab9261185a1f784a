// Package report renders a dedup result for people (table) or tools (JSON, YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/snapetech/playlist-dedup/internal/dedup"
)

// Format names a renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Document is what the JSON and YAML renderers emit.
type Document struct {
	Input   string        `json:"input" yaml:"input"`
	DryRun  bool          `json:"dry_run" yaml:"dry_run"`
	Summary dedup.Summary `json:"summary" yaml:"summary"`
	Groups  []dedup.Group `json:"groups" yaml:"groups"`
}

// Render writes doc to w in format f. The table form lists groups only and is empty
// when nothing was found.
func Render(w io.Writer, f Format, doc Document) error {
	return render(w, f, doc, func() string { return renderTable(doc.Groups) })
}

func render(w io.Writer, f Format, v any, table func() string) error {
	switch Format(strings.ToLower(string(f))) {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		_, err := io.WriteString(w, table())
		return err
	}
	return fmt.Errorf("unknown report format %q", f)
}

func renderTable(groups []dedup.Group) string {
	if len(groups) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Channel", "Kept", "Dropped tiers", "Entries"})
	removed := 0
	for _, g := range groups {
		tw.AppendRow(table.Row{
			g.Key,
			string(g.Best),
			joinTiers(g),
			strconv.Itoa(len(g.Removed)),
		})
		removed += len(g.Removed)
	}
	tw.AppendFooter(table.Row{"", "", "Total", strconv.Itoa(removed)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	return tw.Render() + "\n"
}

func joinTiers(g dedup.Group) string {
	parts := make([]string, len(g.Worse))
	for i, t := range g.Worse {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}
