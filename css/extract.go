package css

import (
	"bytes"
	"strings"
)

// Extract scans stylesheet text and returns utility rules in source order.
// Text that does not look like a flat utility rule is silently skipped,
// extraction never fails. Extract keeps no state between calls.
func Extract(data []byte) []Rule {
	s := &scanner{data: data, line: 1, lineClean: true, stmtStart: true}
	// compilers emit byte order mark for non-ASCII output, it is not content
	if bytes.HasPrefix(data, utf8BOM) {
		s.pos = len(utf8BOM)
	}
	return s.run()
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// scanner walks the text once tracking only what is needed to decide whether
// a dot starts a top level rule: brace depth, whether the current line has
// seen anything but whitespace and whether a statement prelude is underway.
type scanner struct {
	data      []byte
	pos       int
	line      int
	depth     int
	lineClean bool
	stmtStart bool
	rules     []Rule
}

func (s *scanner) run() []Rule {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case c == '\n':
			s.line++
			s.lineClean = true
			s.pos++
		case isSpace(c):
			s.pos++
		case c == '/' && s.pos+1 < len(s.data) && s.data[s.pos+1] == '*':
			s.skipComment()
		case c == '.' && s.depth == 0 && s.stmtStart && s.lineClean:
			if rule, end, ok := s.matchRule(); ok {
				s.rules = append(s.rules, rule)
				s.line += bytes.Count(s.data[s.pos:end], []byte{'\n'})
				s.pos = end
				s.lineClean = false
				continue
			}
			s.consume(c)
		default:
			s.consume(c)
		}
	}
	return s.rules
}

func (s *scanner) consume(c byte) {
	switch c {
	case '{':
		s.depth++
	case '}':
		if s.depth > 0 {
			s.depth--
		}
	}
	if s.depth == 0 {
		s.stmtStart = c == '}' || c == ';'
	}
	s.lineClean = false
	s.pos++
}

// skipComment moves past "/* ... */". Unterminated comment swallows the rest
// of the input.
func (s *scanner) skipComment() {
	end := bytes.Index(s.data[s.pos+2:], []byte("*/"))
	if end < 0 {
		end = len(s.data)
	} else {
		end += s.pos + 4
	}
	s.line += bytes.Count(s.data[s.pos:end], []byte{'\n'})
	s.pos = end
	s.lineClean = false
}

// matchRule tries to read ".class(:pseudo)* { body }" at current position and
// returns the rule and the offset right after its closing brace.
func (s *scanner) matchRule() (Rule, int, bool) {
	d := s.data

	i := identEnd(d, s.pos+1)
	if i == s.pos+1 {
		return Rule{}, 0, false
	}
	for i < len(d) && d[i] == ':' {
		j := identEnd(d, i+1)
		if j == i+1 {
			break
		}
		i = j
	}
	selEnd := i

	for i < len(d) && (isSpace(d[i]) || d[i] == '\n') {
		i++
	}
	if i >= len(d) || d[i] != '{' {
		return Rule{}, 0, false
	}

	bodyStart := i + 1
	for i = bodyStart; i < len(d) && d[i] != '}'; i++ {
		if d[i] == '{' {
			return Rule{}, 0, false
		}
	}
	if i >= len(d) || i == bodyStart {
		return Rule{}, 0, false
	}

	return Rule{
		Selector: string(d[s.pos:selEnd]),
		Body:     strings.TrimSpace(string(d[bodyStart:i])),
		Line:     s.line,
	}, i + 1, true
}

func identEnd(d []byte, i int) int {
	for i < len(d) && isIdentChar(d[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

// isUtilitySelector reports whether complete selector text has the shape
// Extract accepts.
func isUtilitySelector(sel string) bool {
	sel = strings.TrimSpace(sel)
	if !strings.HasPrefix(sel, ".") {
		return false
	}
	for part := range strings.SplitSeq(sel[1:], ":") {
		if !isIdent(part) {
			return false
		}
	}
	return true
}
