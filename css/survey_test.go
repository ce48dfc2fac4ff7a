package css_test

import (
	"testing"

	"go.uber.org/zap"

	"kfcss/css"
)

func TestSurvey_UtilityRulesNotReported(t *testing.T) {
	s := css.NewSurveyor(zap.NewNop())
	skipped := s.Survey([]byte(".p-4 { padding: 1rem; }\n.btn:hover { color: blue; }\n"))
	if len(skipped) != 0 {
		t.Errorf("expected nothing skipped, got %+v", skipped)
	}
}

func TestSurvey_ReportsSkipped(t *testing.T) {
	s := css.NewSurveyor(nil)
	input := []byte(`.a, .b { color: red; }
@keyframes spin { from { opacity: 0; } to { opacity: 1; } }
div .c { margin: 0; }
.d { x: 1; }
`)
	skipped := s.Survey(input, "test.css")

	kinds := make(map[css.SkipKind]int)
	for _, item := range skipped {
		kinds[item.Kind]++
	}
	if kinds[css.SkipGroupedSelector] != 1 {
		t.Errorf("expected 1 grouped selector, got %d (%+v)", kinds[css.SkipGroupedSelector], skipped)
	}
	if kinds[css.SkipAtRule] != 1 {
		t.Errorf("expected 1 at-rule, got %d (%+v)", kinds[css.SkipAtRule], skipped)
	}
	if kinds[css.SkipComplexSelector] != 1 {
		t.Errorf("expected 1 complex selector, got %d (%+v)", kinds[css.SkipComplexSelector], skipped)
	}
}

func TestSurvey_NestedRulesBelongToAtRule(t *testing.T) {
	s := css.NewSurveyor(nil)
	skipped := s.Survey([]byte("@media print {\n  .a, .b { x: 1; }\n  p { y: 2; }\n}\n"))
	if len(skipped) != 1 || skipped[0].Kind != css.SkipAtRule {
		t.Errorf("expected single at-rule entry, got %+v", skipped)
	}
}
