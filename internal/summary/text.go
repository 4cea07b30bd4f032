package summary

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText writes an indented plain-text rendering of t, one line per
// field and a tab-aligned table per array block.
func WriteText(w io.Writer, t *Tree) error {
	tw := &textWriter{w: w}
	for i, s := range t.Sections {
		if i > 0 {
			tw.line(0, "")
		}
		state := ""
		if s.Collapsible && !s.Expanded {
			state = " (collapsed)"
		}
		tw.line(0, "== %s ==%s", s.Title, state)
		tw.fields(1, s.Fields)
		for _, b := range s.Blocks {
			tw.block(1, b)
		}
	}
	for _, warn := range t.Warnings {
		tw.line(0, "warning: %s", warn)
	}
	return tw.err
}

type textWriter struct {
	w   io.Writer
	err error
}

func (tw *textWriter) line(depth int, format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.w, strings.Repeat("  ", depth)+format+"\n", args...)
}

func (tw *textWriter) fields(depth int, fields []Field) {
	for _, f := range fields {
		tw.line(depth, "%s: %s", f.Label, f.Display)
	}
}

func (tw *textWriter) block(depth int, b Block) {
	tw.line(depth, "-- %s --", b.Title)
	if b.IsArray {
		tw.table(depth+1, b)
		return
	}
	tw.fields(depth+1, b.Fields)
	for _, child := range b.Blocks {
		tw.block(depth+1, child)
	}
}

func (tw *textWriter) table(depth int, b Block) {
	if tw.err != nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	t := tabwriter.NewWriter(tw.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(t, indent+strings.Join(b.Columns, "\t"))
	for _, r := range b.Rows {
		cells := make([]string, len(b.Columns))
		for i, col := range b.Columns {
			cells[i] = EmptyPlaceholder
			for _, f := range r.Fields {
				if f.Label == col {
					cells[i] = f.Display
					break
				}
			}
		}
		fmt.Fprintln(t, indent+strings.Join(cells, "\t"))
	}
	tw.err = t.Flush()
}
