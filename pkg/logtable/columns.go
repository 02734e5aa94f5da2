// Package logtable is the paginated, sortable, searchable table that holds
// the module's log snapshot.
package logtable

import (
	"cmp"
	"strings"

	"github.com/modoterra/adminlog/pkg/core"
	"github.com/modoterra/adminlog/pkg/l10n"
)

// Tone tells the renderer how to color a cell.
type Tone int

const (
	ToneNone Tone = iota
	ToneSuccess
	ToneDanger
)

// Cell is one rendered table cell.
type Cell struct {
	Text string
	Tone Tone
}

// Column describes how one record field is shown and ordered.
type Column struct {
	Key      string // JSON field name
	Title    string // translation key of the header
	Sortable bool
	Render   func(r core.LogRecord) Cell
	Compare  func(a, b core.LogRecord) int
}

// LogColumns returns the six log columns: status, time, source IP, file
// name, file type and PDF conversion. The last two cannot be sorted.
func LogColumns(cat l10n.Catalog, dates l10n.DateFormatter) []Column {
	return []Column{
		{
			Key:      "status",
			Title:    "Status",
			Sortable: true,
			Render: func(r core.LogRecord) Cell {
				if r.Status {
					return Cell{Text: cat.T("Success"), Tone: ToneSuccess}
				}
				return Cell{Text: cat.T("Fail"), Tone: ToneDanger}
			},
			Compare: func(a, b core.LogRecord) int {
				return compareFlags(a.Status, b.Status)
			},
		},
		{
			Key:      "timestamp",
			Title:    "Time",
			Sortable: true,
			Render: func(r core.LogRecord) Cell {
				if t, ok := r.Time(); ok {
					return Cell{Text: dates.Format(t)}
				}
				return Cell{Text: r.Timestamp}
			},
			Compare: compareTimestamps,
		},
		{
			Key:      "source_ip",
			Title:    "Source IP",
			Sortable: true,
			Render:   func(r core.LogRecord) Cell { return Cell{Text: r.SourceIP} },
			Compare:  func(a, b core.LogRecord) int { return strings.Compare(a.SourceIP, b.SourceIP) },
		},
		{
			Key:      "file_name",
			Title:    "File name",
			Sortable: true,
			Render:   func(r core.LogRecord) Cell { return Cell{Text: r.FileName} },
			Compare:  func(a, b core.LogRecord) int { return strings.Compare(a.FileName, b.FileName) },
		},
		{
			Key:    "file_ext",
			Title:  "Type",
			Render: func(r core.LogRecord) Cell { return Cell{Text: r.FileExt} },
		},
		{
			Key:   "to_pdf",
			Title: "To PDF",
			Render: func(r core.LogRecord) Cell {
				if r.ToPDF {
					return Cell{Text: cat.T("Yes"), Tone: ToneSuccess}
				}
				return Cell{}
			},
		},
	}
}

func compareFlags(a, b core.Flag) int {
	switch {
	case a == b:
		return 0
	case !bool(a):
		return -1
	default:
		return 1
	}
}

// Unparseable timestamps sort before parseable ones, then by raw text.
func compareTimestamps(a, b core.LogRecord) int {
	ta, okA := a.Time()
	tb, okB := b.Time()
	switch {
	case okA && okB:
		return ta.Compare(tb)
	case okA:
		return 1
	case okB:
		return -1
	default:
		return cmp.Compare(a.Timestamp, b.Timestamp)
	}
}
