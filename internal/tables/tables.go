// Package tables loads custom pattern and G2P tables from YAML or JSON
// files. Files are validated against an embedded JSON schema before they are
// decoded; sections a file leaves out keep their built-in contents.
package tables

import (
	"bytes"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"tactiled/internal/grapheme"
	"tactiled/internal/pattern"
	"tactiled/internal/phoneme"
)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://tactiled.local/schema/tables.json"

var (
	// ErrUnknownFormat is returned for files that are neither YAML nor JSON.
	ErrUnknownFormat = errors.New("unknown table file format")
	// ErrSchema wraps schema validation failures.
	ErrSchema = errors.New("table file does not match schema")
)

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// Schema returns the embedded JSON schema for table files.
func Schema() []byte {
	return append([]byte(nil), schemaJSON...)
}

// Format is a table file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// Set is a complete group of tables used to build encoders.
type Set struct {
	Graphemes *pattern.Table
	Phonemes  *pattern.Table
	Rules     phoneme.RuleTable
}

// Default returns the built-in tables.
func Default() *Set {
	return &Set{
		Graphemes: grapheme.DefaultTable(),
		Phonemes:  phoneme.DefaultTable(),
		Rules:     phoneme.DefaultRuleTable(),
	}
}

// file is the decoded form of a table file.
type file struct {
	Graphemes map[string]pattern.Definition `json:"graphemes"`
	Phonemes  map[string]pattern.Definition `json:"phonemes"`
	Rules     map[string]phoneme.Rule       `json:"rules"`
}

// Load reads, validates and compiles a table file.
func Load(path string) (*Set, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table file: %w", err)
	}
	set, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse validates and compiles table file contents.
func Parse(data []byte, format Format) (*Set, error) {
	canonical, err := toJSON(data, format)
	if err != nil {
		return nil, err
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	var instance any
	if err := json.Unmarshal(canonical, &instance); err != nil {
		return nil, fmt.Errorf("parse table file: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	var f file
	if err := json.Unmarshal(canonical, &f); err != nil {
		return nil, fmt.Errorf("decode table file: %w", err)
	}
	return f.compile()
}

// toJSON converts the input to canonical JSON so that both formats go
// through the same validation and decoding.
func toJSON(data []byte, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		if !json.Valid(data) {
			return nil, errors.New("parse table file: invalid JSON")
		}
		return data, nil
	case FormatYAML:
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse table file: %w", err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		return json.Marshal(stringKeys(doc))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// stringKeys rewrites YAML mappings with non-string keys (such as the digit
// 0) into string-keyed maps.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

func (f *file) compile() (*Set, error) {
	set := Default()

	if f.Graphemes != nil {
		t, err := pattern.NewTable(f.Graphemes)
		if err != nil {
			return nil, fmt.Errorf("graphemes: %w", err)
		}
		set.Graphemes = t
	}
	if f.Phonemes != nil {
		t, err := pattern.NewTable(f.Phonemes)
		if err != nil {
			return nil, fmt.Errorf("phonemes: %w", err)
		}
		set.Phonemes = t
	}
	if f.Rules != nil {
		r, err := phoneme.NewRuleTable(f.Rules)
		if err != nil {
			return nil, fmt.Errorf("rules: %w", err)
		}
		set.Rules = r
	}
	return set, nil
}

// Validate checks every pattern against the device's actuator count.
func (s *Set) Validate(actuators int) error {
	if err := s.Graphemes.Validate(actuators); err != nil {
		return fmt.Errorf("graphemes: %w", err)
	}
	if err := s.Phonemes.Validate(actuators); err != nil {
		return fmt.Errorf("phonemes: %w", err)
	}
	return nil
}

// GraphemeEncoder returns a letter encoder over the set.
func (s *Set) GraphemeEncoder() *grapheme.Encoder {
	return grapheme.New(s.Graphemes)
}

// PhonemeEncoder returns a phoneme encoder over the set.
func (s *Set) PhonemeEncoder() *phoneme.Encoder {
	return phoneme.New(s.Phonemes, s.Rules)
}

// UnknownPhonemes lists phonemes the rules can emit that the phoneme table
// lacks. Such phonemes are skipped at encode time. A string rule that is not
// itself a phoneme is checked character by character, as the encoder splits
// it.
func (s *Set) UnknownPhonemes() []string {
	seen := make(map[string]bool)
	check := func(ph string) {
		if ph != "" && !s.Phonemes.Has(ph) {
			seen[ph] = true
		}
	}

	for _, g := range s.Rules.Graphemes() {
		rule, _ := s.Rules.Lookup(g)
		switch {
		case rule.IsList():
			for _, ph := range rule.List {
				check(ph)
			}
		case s.Phonemes.Has(rule.Single):
		default:
			for _, r := range rule.Single {
				check(string(r))
			}
		}
	}

	out := make([]string, 0, len(seen))
	for ph := range seen {
		out = append(out, ph)
	}
	sort.Strings(out)
	return out
}

// Fingerprint identifies the set: a blake2b-256 digest over both table
// fingerprints and the rules.
func (s *Set) Fingerprint() string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(s.Graphemes.Fingerprint()))
	h.Write([]byte{0})
	h.Write([]byte(s.Phonemes.Fingerprint()))
	for _, g := range s.Rules.Graphemes() {
		rule, _ := s.Rules.Lookup(g)
		h.Write([]byte{0})
		h.Write([]byte(g))
		h.Write([]byte{0})
		h.Write([]byte(rule.String()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
