package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// SkipKind describes why top level construct is not expanded.
type SkipKind string

const (
	SkipAtRule          SkipKind = "at-rule"
	SkipGroupedSelector SkipKind = "grouped-selector"
	SkipComplexSelector SkipKind = "complex-selector"
)

// Skipped is a top level construct left in base stylesheet only.
type Skipped struct {
	Kind SkipKind
	Text string // At-rule name or selector text
}

// Surveyor tokenizes stylesheet with a real CSS grammar parser to find what
// Extract leaves out. Results are informational and never affect output.
type Surveyor struct {
	log *zap.Logger
}

// NewSurveyor creates a new stylesheet surveyor.
func NewSurveyor(log *zap.Logger) *Surveyor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Surveyor{log: log.Named("css-survey")}
}

// Survey lists top level constructs of data which are not flat utility rules.
// The optional source parameter identifies what's being surveyed (for debug logging).
func (s *Surveyor) Survey(data []byte, source ...string) []Skipped {
	if len(source) > 0 && source[0] != "" {
		s.log.Debug("Surveying CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	var (
		skipped []Skipped
		group   []string
		depth   int
	)
	for {
		gt, _, tok := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				s.log.Debug("CSS parse error", zap.Error(err))
			}
			return skipped

		case css.AtRuleGrammar:
			if depth == 0 {
				skipped = append(skipped, Skipped{Kind: SkipAtRule, Text: string(tok)})
			}

		case css.BeginAtRuleGrammar:
			if depth == 0 {
				skipped = append(skipped, Skipped{Kind: SkipAtRule, Text: string(tok)})
				s.log.Debug("At-rule will not be expanded", zap.String("rule", string(tok)))
			}
			depth++

		case css.QualifiedRuleGrammar:
			if depth == 0 {
				group = append(group, selectorText(tok, parser.Values()))
			}

		case css.BeginRulesetGrammar:
			if depth == 0 {
				group = append(group, selectorText(tok, parser.Values()))
				if item, ok := classifySelectors(group); !ok {
					skipped = append(skipped, item)
					s.log.Debug("Selector will not be expanded", zap.String("kind", string(item.Kind)), zap.String("selector", item.Text))
				}
				group = group[:0]
			}
			depth++

		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if depth > 0 {
				depth--
			}
		}
	}
}

func selectorText(data []byte, values []css.Token) string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}
	return strings.TrimSpace(sb.String())
}

// classifySelectors returns ok for single utility selector, otherwise
// describes why selector list is skipped.
func classifySelectors(group []string) (Skipped, bool) {
	if len(group) > 1 {
		return Skipped{Kind: SkipGroupedSelector, Text: strings.Join(group, ", ")}, false
	}
	if strings.Contains(group[0], ",") {
		return Skipped{Kind: SkipGroupedSelector, Text: group[0]}, false
	}
	if isUtilitySelector(group[0]) {
		return Skipped{}, true
	}
	return Skipped{Kind: SkipComplexSelector, Text: group[0]}, false
}
