package css

import (
	"errors"
	"fmt"
	"strings"
)

// Breakpoint is a named viewport width threshold. Rules expanded for it are
// activated by "@media (min-width: MinWidth)" and addressed as "Prefix:class".
type Breakpoint struct {
	Prefix   string // Short identifier placed before escaped colon (e.g., "m")
	MinWidth string // CSS length (e.g., "768px")
}

// String returns breakpoint in "prefix@width" form used in logs.
func (b Breakpoint) String() string {
	return b.Prefix + "@" + b.MinWidth
}

// DefaultBreakpoints returns breakpoints used when nothing else is configured.
func DefaultBreakpoints() []Breakpoint {
	return []Breakpoint{
		{Prefix: "m", MinWidth: "768px"},
		{Prefix: "l", MinWidth: "992px"},
		{Prefix: "xl", MinWidth: "1400px"},
	}
}

// CheckBreakpoints verifies breakpoint list is usable for expansion. Order is
// not checked - it is preserved as given. Duplicate prefixes are rejected
// since they would produce colliding selectors.
func CheckBreakpoints(bps []Breakpoint) error {
	if len(bps) == 0 {
		return errors.New("no breakpoints specified")
	}
	seen := make(map[string]int, len(bps))
	for i, bp := range bps {
		if bp.Prefix == "" {
			return fmt.Errorf("breakpoint %d: empty prefix", i)
		}
		if !isIdent(bp.Prefix) {
			return fmt.Errorf("breakpoint %d: prefix %q contains characters not allowed in class name", i, bp.Prefix)
		}
		if strings.TrimSpace(bp.MinWidth) == "" {
			return fmt.Errorf("breakpoint %d (%s): empty min-width", i, bp.Prefix)
		}
		if strings.ContainsAny(bp.MinWidth, "{};") {
			return fmt.Errorf("breakpoint %d (%s): malformed min-width %q", i, bp.Prefix, bp.MinWidth)
		}
		if j, exists := seen[bp.Prefix]; exists {
			return fmt.Errorf("breakpoint %d: prefix %q already used by breakpoint %d", i, bp.Prefix, j)
		}
		seen[bp.Prefix] = i
	}
	return nil
}

// Rule is a single flat utility class rule found in the stylesheet.
type Rule struct {
	Selector string // Leading-dot class with optional pseudo-class chain (e.g., ".btn:hover")
	Body     string // Declarations between braces, trimmed
	Line     int    // Line number in source for diagnostics
}

// Class returns selector without leading dot (e.g., "btn:hover").
func (r Rule) Class() string {
	return strings.TrimPrefix(r.Selector, ".")
}

// Prefixed returns selector for the breakpoint: ".m\:btn:hover". Colon
// after prefix is escaped so "m:btn" is a single class name in markup.
func (r Rule) Prefixed(bp Breakpoint) string {
	return "." + bp.Prefix + `\:` + r.Class()
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

func isIdent(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentChar(s[i]) {
			return false
		}
	}
	return true
}
