// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pdiddy/dataset-engine/pkg/types"
)

const nameWidth = 48

// newTable returns a light-style table writing to w with footers left in
// their original case.
func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// printBatch renders one row per reference followed by the batch totals.
func printBatch(w io.Writer, batch types.BatchResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Status", "Name", "Repository", "Strategy", "Files", "Size", "Detail"})

	for i, d := range batch.Details {
		detail := d.Path
		if d.Status == types.StatusFailed {
			detail = d.Error
		}
		t.AppendRow(table.Row{
			i + 1,
			statusText(d.Status),
			truncate(d.Reference.Name, nameWidth),
			d.Reference.Repository,
			d.Strategy,
			len(d.Files),
			formatBytes(d.TotalSize),
			truncate(detail, 60),
		})
	}
	t.AppendFooter(table.Row{
		"", "", fmt.Sprintf("%d ok, %d skipped, %d failed", batch.Success, batch.Skipped, batch.Failed),
		"", "", "", formatBytes(batch.TotalSize()),
		batch.FinishedAt.Sub(batch.StartedAt).Round(time.Millisecond),
	})
	t.Render()
}

// printReferences renders extracted references.
func printReferences(w io.Writer, refs []types.DatasetReference) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Name", "Repository", "Found In", "URL"})
	for i, r := range refs {
		t.AppendRow(table.Row{i + 1, truncate(r.Name, nameWidth), r.Repository, r.FoundIn, r.URL})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d references", len(refs))})
	t.Render()
}

// printHistory renders history records.
func printHistory(w io.Writer, recs []types.HistoryRecord) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Timestamp", "Status", "Name", "Repository", "Strategy", "Files", "Size", "Key"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			r.Timestamp.Local().Format("2006-01-02 15:04"),
			r.Status,
			truncate(r.Name, nameWidth),
			r.Repository,
			r.Strategy,
			len(r.Files),
			formatBytes(r.TotalSize),
			r.Key,
		})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d records", len(recs))})
	t.Render()
}

func statusText(s types.DownloadStatus) string {
	switch s {
	case types.StatusSuccess:
		return text.FgGreen.Sprint(s)
	case types.StatusSkipped:
		return text.FgYellow.Sprint(s)
	default:
		return text.FgRed.Sprint(s)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
