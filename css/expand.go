package css

import (
	"bytes"
	"fmt"
	"io"
)

// GeneratedHeader separates base stylesheet from generated media blocks.
const GeneratedHeader = "/* Generated Responsive Utilities */"

// Generated is the responsive stylesheet: base text verbatim followed by one
// media block per breakpoint.
type Generated struct {
	Base        []byte       // Base stylesheet, never modified
	Breakpoints []Breakpoint // In output order
	Rules       []Rule       // Extracted from Base once, shared by all breakpoints
}

// Expand prepares responsive stylesheet for base text. Rules are extracted
// once and reused read-only for every breakpoint. Breakpoints are neither
// reordered nor deduplicated here, see CheckBreakpoints.
func Expand(base []byte, bps []Breakpoint) *Generated {
	return &Generated{
		Base:        base,
		Breakpoints: bps,
		Rules:       Extract(base),
	}
}

// Counts returns number of expanded rules for each breakpoint in output order.
func (g *Generated) Counts() []int {
	counts := make([]int, len(g.Breakpoints))
	for i := range counts {
		counts[i] = len(g.Rules)
	}
	return counts
}

// WriteTo writes complete stylesheet to w, implementing io.WriterTo.
func (g *Generated) WriteTo(w io.Writer) (int64, error) {
	var total int64

	n, err := w.Write(g.Base)
	total += int64(n)
	if err != nil {
		return total, err
	}
	n, err = fmt.Fprintf(w, "\n\n%s\n", GeneratedHeader)
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, bp := range g.Breakpoints {
		n, err = writeMediaBlock(w, bp, g.Rules)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Bytes returns complete stylesheet.
func (g *Generated) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(g.Base) * (len(g.Breakpoints) + 1))
	g.WriteTo(&buf) //nolint:errcheck
	return buf.Bytes()
}

// String returns complete stylesheet as text.
func (g *Generated) String() string {
	return string(g.Bytes())
}

// writeMediaBlock writes breakpoint comment and media block with a prefixed
// copy of every rule, one per line.
func writeMediaBlock(w io.Writer, bp Breakpoint, rules []Rule) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "\n/* --- Breakpoint: %s (%s) --- */\n@media (min-width: %s) {\n", bp.Prefix, bp.MinWidth, bp.MinWidth)
	total += n
	if err != nil {
		return total, err
	}

	for _, rule := range rules {
		n, err = fmt.Fprintf(w, "  %s { %s }\n", rule.Prefixed(bp), rule.Body)
		total += n
		if err != nil {
			return total, err
		}
	}

	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
