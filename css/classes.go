package css

import (
	"fmt"
	"strings"
)

// Variant is a set of classes to apply starting from the breakpoint with
// given prefix.
type Variant struct {
	Prefix  string
	Classes string
}

// ParseVariant reads "prefix=classes" form used on command line.
func ParseVariant(s string) (Variant, error) {
	prefix, classes, found := strings.Cut(s, "=")
	prefix = strings.TrimSpace(prefix)
	if !found || !isIdent(prefix) {
		return Variant{}, fmt.Errorf("malformed variant %q, expected PREFIX=CLASSES", s)
	}
	return Variant{Prefix: prefix, Classes: classes}, nil
}

// Classes combines base classes with breakpoint qualified ones:
//
//	Classes("p-4", Variant{"m", "p-6"}, Variant{"l", "p-8"}) == "p-4 m:p-6 l:p-8"
//
// Every class of a variant gets the prefix, so Variant{"l", "p-8 text-left"}
// yields "l:p-8 l:text-left" rather than prefixing only the first class of
// the string as "l:p-8 text-left". This is deliberate: an unprefixed class
// would apply at all widths. Variants without classes are skipped, order is
// kept.
func Classes(base string, variants ...Variant) string {
	parts := strings.Fields(base)
	for _, v := range variants {
		for _, class := range strings.Fields(v.Classes) {
			parts = append(parts, v.Prefix+":"+class)
		}
	}
	return strings.Join(parts, " ")
}
