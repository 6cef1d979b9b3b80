package tables

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tactiled/internal/grapheme"
	"tactiled/internal/pattern"
	"tactiled/internal/phoneme"
)

func TestLoad_YAML(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "custom.yaml"))
	require.NoError(t, err)

	// unquoted digit keys still name the '0' symbol
	zero, ok := set.Graphemes.Lookup("0")
	require.True(t, ok)
	assert.Equal(t, []pattern.ActuatorEvent{
		{Actuator: 1, OffsetMs: 0, DurationMs: 100, Intensity: 120},
		{Actuator: 2, OffsetMs: 150, DurationMs: 100, Intensity: pattern.DefaultIntensity},
	}, zero.Events)
	assert.Equal(t, 2, set.Graphemes.Len())

	rule, ok := set.Rules.Lookup("qu")
	require.True(t, ok)
	assert.Equal(t, []string{"k", "w"}, rule.List)
	rule, ok = set.Rules.Lookup("th")
	require.True(t, ok)
	assert.Equal(t, "θ", rule.Single)

	// phonemes section omitted
	assert.Same(t, phoneme.DefaultTable(), set.Phonemes)
	assert.Empty(t, set.UnknownPhonemes())
}

func TestLoad_JSON(t *testing.T) {
	set, err := Load(filepath.Join("testdata", "custom.json"))
	require.NoError(t, err)

	assert.Same(t, grapheme.DefaultTable(), set.Graphemes)
	assert.Equal(t, 2, set.Phonemes.Len())
	assert.Equal(t, 3, set.Rules.Len())

	k, ok := set.Phonemes.Lookup("k")
	require.True(t, ok)
	assert.Equal(t, uint16(90), k.Events[0].DurationMs)

	assert.Equal(t, []string{"tʃ"}, set.UnknownPhonemes())

	enc := set.PhonemeEncoder()
	assert.Equal(t, []string{"k", "æ"}, enc.TextToPhonemes("ca"))
	patterns, err := enc.EncodeText("ca")
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	assert.Equal(t, uint8(255), patterns[1].Events[0].Intensity)
}

func TestParse_EmptyDocumentKeepsDefaults(t *testing.T) {
	for _, tc := range []struct {
		data   string
		format Format
	}{
		{"", FormatYAML},
		{"{}", FormatJSON},
		{"# no overrides\n", FormatYAML},
	} {
		set, err := Parse([]byte(tc.data), tc.format)
		require.NoError(t, err, "%q", tc.data)
		assert.Equal(t, Default().Fingerprint(), set.Fingerprint(), "%q", tc.data)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	cases := map[string]string{
		"actuator out of range": `{"graphemes": {"A": {"events": [{"actuator": 8, "time_offset": 0, "duration": 100}]}}}`,
		"missing duration":      `{"graphemes": {"A": {"events": [{"actuator": 1, "time_offset": 0}]}}}`,
		"zero duration":         `{"phonemes": {"k": {"events": [{"actuator": 1, "time_offset": 0, "duration": 0}]}}}`,
		"intensity too high":    `{"phonemes": {"k": {"events": [{"actuator": 1, "time_offset": 0, "duration": 9, "intensity": 256}]}}}`,
		"unknown section":       `{"glyphs": {}}`,
		"rule key too long":     `{"rules": {"ough": "o"}}`,
		"rule value not string": `{"rules": {"a": 5}}`,
		"missing events":        `{"graphemes": {"A": {}}}`,
		"null section":          `{"rules": null}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data), FormatJSON)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("{"), FormatJSON)
	assert.Error(t, err)

	_, err = Parse([]byte("graphemes: [unterminated"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte("{}"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json":     FormatJSON,
		"a.yaml":     FormatYAML,
		"dir/b.YML":  FormatYAML,
		"c.tar.json": FormatJSON,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatFromPath("tables.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
	_, err = Load("tables.txt")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestLoad_TempFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.yml")
	data := "graphemes:\n  Z:\n    events:\n      - {actuator: 3, time_offset: 0, duration: 50}\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	set, err := Load(path)
	require.NoError(t, err)

	p, ok := set.GraphemeEncoder().EncodeSymbol('z')
	require.True(t, ok)
	assert.Equal(t, "Z", p.Symbol)
	assert.Equal(t, 50, p.TotalDurationMs)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSet_Validate(t *testing.T) {
	require.NoError(t, Default().Validate(pattern.MaxActuators))

	// the default tables drive all eight actuators
	assert.Error(t, Default().Validate(4))

	set, err := Load(filepath.Join("testdata", "custom.yaml"))
	require.NoError(t, err)
	assert.NoError(t, set.Graphemes.Validate(4))
}

func TestSet_Fingerprint(t *testing.T) {
	a := Default().Fingerprint()
	assert.Equal(t, a, Default().Fingerprint())
	assert.Len(t, a, 64)

	custom, err := Load(filepath.Join("testdata", "custom.yaml"))
	require.NoError(t, err)
	assert.NotEqual(t, a, custom.Fingerprint())

	// rules alone change the fingerprint
	rulesOnly, err := Parse([]byte(`{"rules": {"a": "æ"}}`), FormatJSON)
	require.NoError(t, err)
	assert.NotEqual(t, a, rulesOnly.Fingerprint())
}

func TestSchema_IsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	assert.NotEqual(t, byte('x'), Schema()[0])
}
