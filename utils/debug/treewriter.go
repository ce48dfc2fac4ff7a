// Package debug formats human readable dumps stored in debug report.
package debug

import (
	"fmt"
	"strconv"
	"strings"
)

const indent = "  "

// TreeWriter accumulates indented text, one node per line.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) Bytes() []byte {
	return []byte(tw.w.String())
}

// Line writes formatted node at depth.
func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

// Field writes "label: value" node, value is quoted so that stylesheet text
// with newlines stays on a single line.
func (tw TreeWriter) Field(depth int, label, value string) {
	tw.w.WriteString(strings.Repeat(indent, depth))
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(quote(value))
	tw.w.WriteByte('\n')
}

func quote(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
