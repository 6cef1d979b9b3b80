// Package phoneme converts text to phonemes with a greedy rule-based G2P
// pass and encodes the phonemes as tactile patterns.
//
// The conversion scans the lower-cased, trimmed input left to right. At each
// position it tries a 3-rune rule, then a 2-rune rule, then a single-rune
// rule; the first match wins and the scan advances past the matched
// graphemes. Whitespace becomes a literal Space entry. Characters without a
// rule are dropped.
package phoneme

import (
	"errors"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"tactiled/internal/pattern"
)

// Space is the phoneme entry emitted for whitespace. It encodes to an empty
// pattern rather than to nothing.
const Space = " "

// ErrInvalidText is returned when the input is not valid UTF-8.
var ErrInvalidText = errors.New("phoneme: text is not valid UTF-8")

var (
	defaultTable = sync.OnceValue(func() *pattern.Table {
		return pattern.MustTable(DefaultDefinitions())
	})
	defaultRules = sync.OnceValue(func() RuleTable {
		return MustRuleTable(DefaultRules())
	})
)

// DefaultTable returns the shared built-in phoneme table.
func DefaultTable() *pattern.Table {
	return defaultTable()
}

// DefaultRuleTable returns the shared built-in G2P rules.
func DefaultRuleTable() RuleTable {
	return defaultRules()
}

// Encoder converts text to phonemes and phonemes to patterns.
type Encoder struct {
	table *pattern.Table
	rules RuleTable
}

// New returns an encoder. A nil table or an empty rule table selects the
// built-in one.
func New(table *pattern.Table, rules RuleTable) *Encoder {
	if table == nil {
		table = DefaultTable()
	}
	if rules.Len() == 0 {
		rules = DefaultRuleTable()
	}
	return &Encoder{table: table, rules: rules}
}

// Default returns an encoder over the built-in tables.
func Default() *Encoder {
	return New(nil, RuleTable{})
}

// Table returns the phoneme pattern table.
func (e *Encoder) Table() *pattern.Table {
	return e.table
}

// Rules returns the G2P rule table.
func (e *Encoder) Rules() RuleTable {
	return e.rules
}

// TextToPhonemes converts text to an ordered phoneme sequence.
func (e *Encoder) TextToPhonemes(text string) []string {
	runes := []rune(strings.ToLower(strings.TrimSpace(text)))
	phonemes := make([]string, 0, len(runes))

	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			phonemes = append(phonemes, Space)
			i++
			continue
		}

		matched := false
		for n := MaxNgram; n >= 2; n-- {
			if i+n > len(runes) {
				continue
			}
			if rule, ok := e.rules.Lookup(string(runes[i : i+n])); ok {
				phonemes = e.apply(phonemes, rule)
				i += n
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if rule, ok := e.rules.Lookup(string(runes[i])); ok {
			phonemes = e.apply(phonemes, rule)
		}
		i++
	}

	return phonemes
}

// apply appends the phonemes a rule produces. A list contributes each of its
// known phonemes. A string is one phoneme when the table knows it; otherwise
// each of its characters that the table knows is emitted on its own.
func (e *Encoder) apply(out []string, rule Rule) []string {
	if rule.IsList() {
		for _, ph := range rule.List {
			if e.table.Has(ph) {
				out = append(out, ph)
			}
		}
		return out
	}

	if e.table.Has(rule.Single) {
		return append(out, rule.Single)
	}
	for _, r := range rule.Single {
		if ph := string(r); e.table.Has(ph) {
			out = append(out, ph)
		}
	}
	return out
}

// EncodePhoneme returns the pattern for one phoneme. Space yields an empty
// pattern.
func (e *Encoder) EncodePhoneme(ph string) (pattern.Pattern, bool) {
	if ph == Space {
		return pattern.New(Space), true
	}
	return e.table.Lookup(ph)
}

// EncodeText converts text to phonemes and encodes each one. Phonemes
// without a pattern are skipped.
func (e *Encoder) EncodeText(text string) ([]pattern.Pattern, error) {
	if !utf8.ValidString(text) {
		return nil, ErrInvalidText
	}

	phonemes := e.TextToPhonemes(text)
	patterns := make([]pattern.Pattern, 0, len(phonemes))
	for _, ph := range phonemes {
		if p, ok := e.EncodePhoneme(ph); ok {
			patterns = append(patterns, p)
		}
	}
	return patterns, nil
}
