package css_test

import (
	"testing"

	"kfcss/css"
)

func TestClasses(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		variants []css.Variant
		want     string
	}{
		{"base only", "p-4", nil, "p-4"},
		{"two variants", "p-4", []css.Variant{{"m", "p-6"}, {"l", "p-8"}}, "p-4 m:p-6 l:p-8"},
		{"empty base", "", []css.Variant{{"m", "p-6"}}, "m:p-6"},
		{"empty variant skipped", "p-4", []css.Variant{{"m", ""}, {"l", "p-8"}}, "p-4 l:p-8"},
		{"every class prefixed", "flex", []css.Variant{{"m", "p-6  gap-2"}}, "flex m:p-6 m:gap-2"},
		{"multi-class variant", "p-4", []css.Variant{{"l", "p-8 text-left"}}, "p-4 l:p-8 l:text-left"},
		{"nothing", "", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := css.Classes(tt.base, tt.variants...); got != tt.want {
				t.Errorf("Classes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseVariant(t *testing.T) {
	v, err := css.ParseVariant("xl=p-8 m-2")
	if err != nil {
		t.Fatalf("ParseVariant() error = %v", err)
	}
	if v.Prefix != "xl" || v.Classes != "p-8 m-2" {
		t.Errorf("unexpected variant: %+v", v)
	}

	for _, bad := range []string{"p-8", "=p-8", "a:b=p-8"} {
		if _, err := css.ParseVariant(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
