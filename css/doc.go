// Package css turns a flat utility-class stylesheet into its responsive
// variant.
//
// Extract recognizes rules of a single shape - a top level, line-leading
// class selector with optional pseudo-class chain and a brace-free body:
//
//	.p-4 { padding: 1rem; }
//	.btn:hover { color: blue; }
//
// Expand appends one "@media (min-width: ...)" block per breakpoint to the
// untouched base text, each holding breakpoint-prefixed copies of every
// extracted rule (".m\:p-4 { padding: 1rem; }").
//
// This is not a general CSS parser. Grouped selectors, combinators, at-rules
// and anything nested inside them are left in the base text and never
// expanded. Survey uses a real tokenizer to report such constructs for
// diagnostics only.
package css
