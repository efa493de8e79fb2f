// Package table renders plain text tables with ASCII borders.
package table

import (
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Alignment controls how a cell is padded within its column.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
	AlignCenter
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripAnsi(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func visibleWidth(s string) int {
	return utf8.RuneCountInString(stripAnsi(s))
}

// Table accumulates rows and writes them to an io.Writer on Render.
type Table struct {
	w               io.Writer
	header          []string
	rows            [][]string
	columnAlignment []Alignment
	headerAlignment []Alignment
}

// NewTable returns an empty table that renders to w.
func NewTable(w io.Writer) *Table {
	return &Table{w: w}
}

// WithHeader sets the header row.
func (t *Table) WithHeader(header []string) *Table {
	t.header = header
	return t
}

// WithColumnAlignment sets per-column alignment for body rows.
func (t *Table) WithColumnAlignment(alignment []Alignment) *Table {
	t.columnAlignment = alignment
	return t
}

// WithHeaderAlignment sets per-column alignment for the header row.
func (t *Table) WithHeaderAlignment(alignment []Alignment) *Table {
	t.headerAlignment = alignment
	return t
}

// WithRows appends rows to the table body.
func (t *Table) WithRows(rows [][]string) *Table {
	t.rows = append(t.rows, rows...)
	return t
}

// Append adds a single row to the table body.
func (t *Table) Append(row []string) *Table {
	t.rows = append(t.rows, row)
	return t
}

func (t *Table) columnCount() int {
	n := len(t.header)
	for _, row := range t.rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

func (t *Table) widths(columns int) []int {
	widths := make([]int, columns)
	measure := func(row []string) {
		for i, cell := range row {
			if w := visibleWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return widths
}

// Render writes the table. Color escape sequences in cells do not count
// toward column widths.
func (t *Table) Render() error {
	columns := t.columnCount()
	widths := t.widths(columns)

	var b strings.Builder
	separator := func() {
		b.WriteString("+")
		for _, w := range widths {
			b.WriteString(strings.Repeat("-", w+2))
			b.WriteString("+")
		}
		b.WriteString("\n")
	}
	line := func(row []string, alignment []Alignment) {
		b.WriteString("|")
		for i, w := range widths {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			align := AlignLeft
			if i < len(alignment) {
				align = alignment[i]
			}
			b.WriteString(" ")
			b.WriteString(pad(cell, w, align))
			b.WriteString(" |")
		}
		b.WriteString("\n")
	}

	separator()
	if len(t.header) > 0 {
		line(t.header, t.headerAlignment)
		separator()
	}
	for _, row := range t.rows {
		line(row, t.columnAlignment)
	}
	if len(t.rows) > 0 {
		separator()
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

func pad(cell string, width int, align Alignment) string {
	gap := width - visibleWidth(cell)
	if gap <= 0 {
		return cell
	}
	switch align {
	case AlignRight:
		return strings.Repeat(" ", gap) + cell
	case AlignCenter:
		left := gap / 2
		return strings.Repeat(" ", left) + cell + strings.Repeat(" ", gap-left)
	default:
		return cell + strings.Repeat(" ", gap)
	}
}
