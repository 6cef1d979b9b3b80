// Package grapheme encodes text one character at a time using a static
// symbol table (letter mode).
package grapheme

import (
	"sync"
	"unicode"

	"tactiled/internal/pattern"
)

// Space is the table key used for pauses between words.
const Space = " "

var defaultTable = sync.OnceValue(func() *pattern.Table {
	return pattern.MustTable(DefaultDefinitions())
})

// DefaultTable returns the shared built-in table.
func DefaultTable() *pattern.Table {
	return defaultTable()
}

// Encoder maps characters to patterns. It holds no mutable state.
type Encoder struct {
	table *pattern.Table
}

// New returns an encoder over table. A nil table selects the built-in one.
func New(table *pattern.Table) *Encoder {
	if table == nil {
		table = DefaultTable()
	}
	return &Encoder{table: table}
}

// Default returns an encoder over the built-in table.
func Default() *Encoder {
	return New(nil)
}

// Table returns the encoder's table.
func (e *Encoder) Table() *pattern.Table {
	return e.table
}

// EncodeSymbol returns the pattern for r. Lookup is case-insensitive: an
// exact key wins, otherwise the upper-case form is tried.
func (e *Encoder) EncodeSymbol(r rune) (pattern.Pattern, bool) {
	if p, ok := e.table.Lookup(string(r)); ok {
		return p, true
	}
	if up := unicode.ToUpper(r); up != r {
		return e.table.Lookup(string(up))
	}
	if lo := unicode.ToLower(r); lo != r {
		return e.table.Lookup(string(lo))
	}
	return pattern.Pattern{}, false
}

// EncodeSequence encodes every character of text independently. Characters
// without an entry are omitted; no error is reported.
func (e *Encoder) EncodeSequence(text string) []pattern.Pattern {
	patterns := make([]pattern.Pattern, 0, len(text))
	for _, r := range text {
		if p, ok := e.EncodeSymbol(r); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// SpacePattern returns the pause pattern, or an empty pattern if the table
// has no space entry.
func (e *Encoder) SpacePattern() pattern.Pattern {
	if p, ok := e.table.Lookup(Space); ok {
		return p
	}
	return pattern.New(Space)
}
