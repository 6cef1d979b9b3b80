package unified

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tactiled/internal/grapheme"
	"tactiled/internal/phoneme"
)

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Phoneme")
	require.NoError(t, err)
	assert.Equal(t, ModePhoneme, m)

	m, err = ParseMode("character")
	require.NoError(t, err)
	assert.Equal(t, ModeLetter, m)

	_, err = ParseMode("braille")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestEncoder_DefaultsToLetter(t *testing.T) {
	var m Mode
	enc := New(m)
	assert.Equal(t, ModeLetter, enc.Mode())
	assert.Equal(t, "letter", enc.ModeName())
}

func TestEncodeText_Delegates(t *testing.T) {
	text := "hello world"

	letters := New(ModeLetter).EncodeText(text)
	assert.Equal(t, grapheme.Default().EncodeSequence(text), letters)

	phonemes := New(ModePhoneme).EncodeText(text)
	want, err := phoneme.Default().EncodeText(text)
	require.NoError(t, err)
	assert.Equal(t, want, phonemes)
}

func TestEncodeText_InvalidUTF8InPhonemeMode(t *testing.T) {
	assert.Empty(t, New(ModePhoneme).EncodeText("\xff\xfe"))
}

func TestEncodeSymbol_Letter(t *testing.T) {
	p, ok := New(ModeLetter).EncodeSymbol('e')
	require.True(t, ok)
	assert.Equal(t, "E", p.Symbol)
	assert.Equal(t, 150, p.TotalDurationMs)
}

func TestEncodeSymbol_PhonemeFirstOnly(t *testing.T) {
	rules := phoneme.MustRuleTable(map[string]phoneme.Rule{
		"x": phoneme.L("k", "s"),
	})
	enc := New(ModePhoneme, WithPhonemes(phoneme.New(nil, rules)))

	p, ok := enc.EncodeSymbol('x')
	require.True(t, ok)
	assert.Equal(t, "k", p.Symbol, "only the first phoneme is encoded")

	full := enc.EncodeText("x")
	require.Len(t, full, 2)
	assert.Equal(t, p, full[0])
}

func TestEncodeSymbol_PhonemeMode(t *testing.T) {
	enc := New(ModePhoneme)

	p, ok := enc.EncodeSymbol('j')
	require.True(t, ok)
	assert.Equal(t, "dʒ", p.Symbol)

	_, ok = enc.EncodeSymbol('x')
	assert.False(t, ok, "no rule for x")

	// surrounding whitespace is trimmed before conversion
	_, ok = enc.EncodeSymbol(' ')
	assert.False(t, ok)
}

func TestWithMode_IsACopy(t *testing.T) {
	letters := New(ModeLetter)
	phonemes := letters.WithMode(ModePhoneme)

	assert.Equal(t, ModeLetter, letters.Mode())
	assert.Equal(t, ModePhoneme, phonemes.Mode())
	assert.Equal(t, "phoneme", phonemes.ModeName())
	assert.NotSame(t, letters, phonemes)
}

func TestEncoder_ConcurrentModes(t *testing.T) {
	base := New(ModeLetter)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(mode Mode) {
			defer wg.Done()
			enc := base.WithMode(mode)
			for j := 0; j < 100; j++ {
				enc.EncodeText("think")
			}
			assert.Equal(t, mode, enc.Mode())
		}(Mode(i % 2))
	}
	wg.Wait()
	assert.Equal(t, ModeLetter, base.Mode())
}
