package phoneme

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// MaxNgram is the longest grapheme sequence a rule may match.
const MaxNgram = 3

// Rule is the output of one G2P rule: either a single phoneme string or an
// ordered list of phonemes. In files it is written as a string or a list.
type Rule struct {
	Single string
	List   []string
}

// S is shorthand for a single-string rule.
func S(ph string) Rule { return Rule{Single: ph} }

// L is shorthand for a list rule.
func L(phs ...string) Rule { return Rule{List: phs} }

// IsList reports whether the rule carries an explicit phoneme list.
func (r Rule) IsList() bool {
	return r.List != nil
}

func (r Rule) String() string {
	if r.IsList() {
		return fmt.Sprintf("%q", r.List)
	}
	return fmt.Sprintf("%q", r.Single)
}

// MarshalJSON writes a list rule as an array and a single rule as a string.
func (r Rule) MarshalJSON() ([]byte, error) {
	if r.IsList() {
		return json.Marshal(r.List)
	}
	return json.Marshal(r.Single)
}

// UnmarshalJSON accepts a string or an array of strings.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = Rule{Single: single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("rule must be a string or a list of strings: %w", err)
	}
	*r = Rule{List: list}
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence of scalars.
func (r *Rule) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = Rule{Single: node.Value}
		return nil
	case yaml.SequenceNode:
		list := make([]string, 0, len(node.Content))
		if err := node.Decode(&list); err != nil {
			return err
		}
		*r = Rule{List: list}
		return nil
	default:
		return errors.New("rule must be a string or a list of strings")
	}
}

// RuleTable maps grapheme n-grams (1 to MaxNgram runes) to rules. It is
// immutable after construction.
type RuleTable struct {
	rules map[string]Rule
}

// NewRuleTable copies rules into a table.
func NewRuleTable(rules map[string]Rule) (RuleTable, error) {
	t := RuleTable{rules: make(map[string]Rule, len(rules))}
	for k, v := range rules {
		n := utf8.RuneCountInString(k)
		if n < 1 || n > MaxNgram {
			return RuleTable{}, fmt.Errorf("rule %q: grapheme length must be 1-%d", k, MaxNgram)
		}
		if v.IsList() {
			v.List = append([]string(nil), v.List...)
		}
		t.rules[k] = v
	}
	return t, nil
}

// MustRuleTable is NewRuleTable for built-in tables.
func MustRuleTable(rules map[string]Rule) RuleTable {
	t, err := NewRuleTable(rules)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the rule for ngram.
func (t RuleTable) Lookup(ngram string) (Rule, bool) {
	r, ok := t.rules[ngram]
	return r, ok
}

// Len returns the number of rules.
func (t RuleTable) Len() int {
	return len(t.rules)
}

// Graphemes returns the rule keys sorted by length (longest first), then
// lexically.
func (t RuleTable) Graphemes() []string {
	keys := make([]string, 0, len(t.rules))
	for k := range t.rules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(keys[i]), utf8.RuneCountInString(keys[j])
		if li != lj {
			return li > lj
		}
		return keys[i] < keys[j]
	})
	return keys
}

// DefaultRules returns the built-in English G2P approximation. It is a
// deliberately small heuristic; 'x' has no rule and is dropped.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		// single letters
		"a": S("æ"),
		"e": S("ɛ"),
		"i": S("ɪ"),
		"o": S("ɔ"),
		"u": S("ʌ"),
		"b": S("b"),
		"c": S("k"),
		"d": S("d"),
		"f": S("f"),
		"g": S("g"),
		"h": S("h"),
		"j": S("dʒ"),
		"k": S("k"),
		"l": S("l"),
		"m": S("m"),
		"n": S("n"),
		"p": S("p"),
		"q": S("k"),
		"r": S("r"),
		"s": S("s"),
		"t": S("t"),
		"v": S("v"),
		"w": S("w"),
		"y": S("j"),
		"z": S("z"),

		// consonant digraphs
		"th": S("θ"),
		"sh": S("ʃ"),
		"ch": S("tʃ"),
		"ng": S("ŋ"),
		"ph": S("f"),
		"ck": S("k"),
		"qu": L("k", "w"),
		"gh": S(""), // usually silent
		"kn": S("n"),
		"wr": S("r"),
		"mb": S("m"),

		// vowel digraphs
		"ee": S("i"),
		"oo": S("u"),
		"ai": S("eɪ"),
		"ay": S("eɪ"),
		"oi": S("ɔɪ"),
		"oy": S("ɔɪ"),
		"ou": S("aʊ"),
		"ow": S("aʊ"),
		"ie": S("i"),
		"ei": S("eɪ"),
		"oa": S("oʊ"),
		"ue": S("u"),
	}
}
