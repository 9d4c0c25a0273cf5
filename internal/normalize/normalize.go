// Package normalize rewrites free text so that $SYMBOL ticker mentions read
// as catalog display titles.
package normalize

import "strings"

// Lookup resolves a ticker symbol to its display title.
// *catalog.Catalog satisfies it.
type Lookup interface {
	Title(symbol string) (string, bool)
}

// Text replaces every whitespace-delimited token of the form $SYMBOL, where
// SYMBOL is an exact (case-sensitive) key in titles, with that key's title.
// Other tokens are kept verbatim. Tokens are rejoined with single spaces, so
// runs of whitespace and leading/trailing space are not preserved.
//
// Text is pure and never fails. A nil titles makes it a whitespace-collapsing
// pass-through.
func Text(text string, titles Lookup) string {
	tokens := strings.Fields(text)
	if titles == nil {
		return strings.Join(tokens, " ")
	}
	for i, tok := range tokens {
		if len(tok) < 2 || tok[0] != '$' {
			continue
		}
		if title, ok := titles.Title(tok[1:]); ok {
			tokens[i] = title
		}
	}
	return strings.Join(tokens, " ")
}

// Lines normalizes each element of lines, preserving order.
func Lines(lines []string, titles Lookup) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = Text(l, titles)
	}
	return out
}

// Map is a Lookup backed by a plain map, handy for callers that build a small
// table inline.
type Map map[string]string

// Title implements Lookup.
func (m Map) Title(symbol string) (string, bool) {
	t, ok := m[symbol]
	return t, ok
}
