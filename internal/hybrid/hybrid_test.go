package hybrid

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tactiled/internal/grapheme"
	"tactiled/internal/metrics"
	"tactiled/internal/pattern"
	"tactiled/internal/phoneme"
)

// recordingPhonemes wraps a phoneme encoder and records every call.
type recordingPhonemes struct {
	mu    sync.Mutex
	calls []string
	next  PhonemeEncoder
}

func (r *recordingPhonemes) EncodeText(text string) ([]pattern.Pattern, error) {
	r.mu.Lock()
	r.calls = append(r.calls, text)
	r.mu.Unlock()
	return r.next.EncodeText(text)
}

type phonemeFunc func(string) ([]pattern.Pattern, error)

func (f phonemeFunc) EncodeText(text string) ([]pattern.Pattern, error) { return f(text) }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func symbols(patterns []pattern.Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.Symbol
	}
	return out
}

func TestTokenize(t *testing.T) {
	tokens := Tokenize("  Hello, world\t\n3D ")
	require.Len(t, tokens, 7)

	want := []Token{
		{"  ", Whitespace},
		{"Hello,", Word},
		{" ", Whitespace},
		{"world", Word},
		{"\t\n", Whitespace},
		{"3D", NonWord},
		{" ", Whitespace},
	}
	assert.Equal(t, want, tokens)

	var joined strings.Builder
	for _, tok := range tokens {
		joined.WriteString(tok.Text)
	}
	assert.Equal(t, "  Hello, world\t\n3D ", joined.String())

	assert.Empty(t, Tokenize(""))
}

func TestTokenize_KindsExcludePassage(t *testing.T) {
	for _, text := range []string{"Hello, world", "http://x.io 3D", " \t", "end. ok!"} {
		for _, tok := range Tokenize(text) {
			assert.Contains(t, []TokenKind{Whitespace, Word, NonWord}, tok.Kind, "token %q", tok.Text)
		}
	}

	o := New()
	for _, s := range []Strategy{Letter, Phoneme} {
		segs := o.EncodeSegments("the cat", s)
		require.Len(t, segs, 1)
		assert.Equal(t, Passage, segs[0].Token.Kind)
	}
}

func TestIsWord(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"hello", true},
		{"Hello,", true},
		{"end.", true},
		{"don't", true},
		{"well-known", true},
		{"¿qué", false},
		{"café", true},
		{"3D", false},
		{"2nd", false},
		{"42", false},
		{"Code:", false},
		{"http://x", false},
		{"a@b", false},
		{"#tag", false},
		{"$5", false},
		{`C:\dir`, false},
		{"...", false},
		{"'-'", false},
		{"=", false},
		{"x", true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWord(tt.token))
		})
	}
}

func TestCommonWords(t *testing.T) {
	words := CommonWords()
	assert.Len(t, words, 98)
	assert.True(t, IsCommonWord("The"))
	assert.True(t, IsCommonWord("think!"))
	assert.False(t, IsCommonWord("elephant"))
	assert.True(t, strings.Compare(words[0], words[1]) < 0)
}

func TestParseStrategy(t *testing.T) {
	tests := map[string]Strategy{
		"letter":     Letter,
		"character":  Letter,
		"PHONEME":    Phoneme,
		"adaptive":   HybridAdaptive,
		"word_level": HybridWordLevel,
		"word-level": HybridWordLevel,
	}
	for name, want := range tests {
		got, err := ParseStrategy(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseStrategy("morse")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	for _, s := range Strategies() {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
}

func TestStrategy_Text(t *testing.T) {
	var s Strategy
	require.NoError(t, s.UnmarshalText([]byte("character")))
	assert.Equal(t, Letter, s)

	out, err := HybridWordLevel.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "word_level", string(out))

	_, err = Strategy(0).MarshalText()
	assert.Error(t, err)
}

func TestEncode_NonWordNeverAttemptsPhonemes(t *testing.T) {
	rec := &recordingPhonemes{next: phoneme.Default()}
	o := New(WithPhonemes(rec), WithLogger(quietLogger()))

	segments := o.EncodeSegments("we print 3D models", HybridAdaptive)

	assert.NotContains(t, rec.calls, "3D")
	assert.Equal(t, []string{"we", "print", "models"}, rec.calls)

	var found bool
	for _, s := range segments {
		if s.Token.Text == "3D" {
			found = true
			assert.Equal(t, RouteGrapheme, s.Route)
			assert.Equal(t, grapheme.Default().EncodeSequence("3D"), s.Patterns)
		}
	}
	assert.True(t, found)
}

func TestEncode_WordLevelDivergence(t *testing.T) {
	rec := &recordingPhonemes{next: phoneme.Default()}
	o := New(WithPhonemes(rec), WithLogger(quietLogger()))

	adaptive := o.EncodeSegments("elephant", HybridAdaptive)
	require.Len(t, adaptive, 1)
	assert.Equal(t, RoutePhoneme, adaptive[0].Route)
	assert.Equal(t, []string{"elephant"}, rec.calls)

	rec.calls = nil
	wordLevel := o.EncodeSegments("elephant", HybridWordLevel)
	require.Len(t, wordLevel, 1)
	assert.Equal(t, RouteGrapheme, wordLevel[0].Route)
	assert.Empty(t, rec.calls, "uncommon words never reach the phoneme encoder")
	assert.Len(t, wordLevel[0].Patterns, len("elephant"))

	rec.calls = nil
	common := o.EncodeSegments("Think!", HybridWordLevel)
	require.Len(t, common, 1)
	assert.Equal(t, RoutePhoneme, common[0].Route)
	assert.Equal(t, []string{"Think!"}, rec.calls)
}

func TestEncode_CodeScenario(t *testing.T) {
	rec := &recordingPhonemes{next: phoneme.Default()}
	o := New(WithPhonemes(rec), WithLogger(quietLogger()))

	segments := o.EncodeSegments("Code: x = 42", HybridAdaptive)
	require.Len(t, segments, 7)

	routes := make(map[string]Route)
	for _, s := range segments {
		if s.Token.Kind != Whitespace {
			routes[s.Token.Text] = s.Route
		}
	}
	assert.Equal(t, RouteGrapheme, routes["Code:"])
	assert.Equal(t, RouteGrapheme, routes["42"])
	assert.Equal(t, RouteGrapheme, routes["="])
	// "x" is a word; the default rules have no phoneme for it, so the
	// attempt comes back empty and letters take over.
	assert.Equal(t, RouteFallback, routes["x"])
	assert.Equal(t, []string{"x"}, rec.calls)

	assert.Equal(t, []string{"C", "O", "D", "E"}, symbols(segments[0].Patterns))
	assert.Equal(t, []string{"X"}, symbols(segments[2].Patterns))
	assert.Empty(t, segments[4].Patterns, "'=' has no table entry")
	assert.Equal(t, []string{"2"}, symbols(segments[6].Patterns))
}

func TestEncode_WhitespaceRunIsOnePause(t *testing.T) {
	o := New(WithLogger(quietLogger()))

	for _, strategy := range []Strategy{HybridAdaptive, HybridWordLevel} {
		segments := o.EncodeSegments("the \t\n  end", strategy)
		require.Len(t, segments, 3, strategy.String())
		assert.Equal(t, RouteSpace, segments[1].Route)
		require.Len(t, segments[1].Patterns, 1)
		assert.True(t, segments[1].Patterns[0].IsEmpty())
		assert.Equal(t, grapheme.Space, segments[1].Patterns[0].Symbol)
	}

	patterns := o.Encode("   ", HybridAdaptive)
	assert.Len(t, patterns, 1)
	assert.Empty(t, o.Encode("", HybridAdaptive))
}

func TestEncode_FallbackOnError(t *testing.T) {
	failing := phonemeFunc(func(string) ([]pattern.Pattern, error) {
		return nil, errors.New("g2p exploded")
	})
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	o := New(WithPhonemes(failing), WithLogger(logger))

	segments := o.EncodeSegments("hello", HybridAdaptive)
	require.Len(t, segments, 1)
	assert.Equal(t, RouteFallback, segments[0].Route)
	assert.Equal(t, "g2p exploded", segments[0].Reason)
	assert.Equal(t, []string{"H", "E", "L", "L", "O"}, symbols(segments[0].Patterns))
	assert.Contains(t, logs.String(), "phoneme fallback")
}

func TestEncode_FallbackOnPanic(t *testing.T) {
	panicking := phonemeFunc(func(string) ([]pattern.Pattern, error) {
		panic("index out of range")
	})
	o := New(WithPhonemes(panicking), WithLogger(quietLogger()))

	var segments []Segment
	require.NotPanics(t, func() {
		segments = o.EncodeSegments("hi there", HybridAdaptive)
	})
	require.Len(t, segments, 3)
	assert.Equal(t, RouteFallback, segments[0].Route)
	assert.Contains(t, segments[0].Reason, ErrPhonemePanic.Error())
	assert.Len(t, segments[2].Patterns, 5)
}

func TestEncode_FallbackOnInvalidUTF8(t *testing.T) {
	o := New(WithLogger(quietLogger()))
	segments := o.EncodeSegments("ab\xffc", HybridAdaptive)
	require.Len(t, segments, 1)
	// The invalid byte makes the token a non-word.
	assert.Equal(t, RouteGrapheme, segments[0].Route)

	// A pure phoneme strategy has no fallback.
	segments = o.EncodeSegments("ab\xffc", Phoneme)
	require.Len(t, segments, 1)
	assert.Empty(t, segments[0].Patterns)
	assert.Contains(t, segments[0].Reason, "UTF-8")
}

func TestEncode_PureStrategies(t *testing.T) {
	rec := &recordingPhonemes{next: phoneme.Default()}
	o := New(WithPhonemes(rec), WithLogger(quietLogger()))
	text := "Call me at 3"

	letters := o.Encode(text, Letter)
	assert.Equal(t, grapheme.Default().EncodeSequence(text), letters)
	assert.Empty(t, rec.calls)

	phonemes := o.Encode(text, Phoneme)
	want, err := phoneme.Default().EncodeText(text)
	require.NoError(t, err)
	assert.Equal(t, want, phonemes)
	assert.Equal(t, []string{text}, rec.calls)
}

func TestEncode_UnknownStrategyIsAdaptive(t *testing.T) {
	o := New(WithLogger(quietLogger()))
	text := "Send 3 emails to bob@example.com today"
	assert.Equal(t, o.Encode(text, HybridAdaptive), o.Encode(text, Strategy(42)))
	assert.Equal(t, o.Encode(text, HybridAdaptive), o.Encode(text, Strategy(0)))
}

func TestEncode_OrderPreserved(t *testing.T) {
	o := New(WithLogger(quietLogger()))
	segments := o.EncodeSegments("sh 42 sh", HybridAdaptive)

	var flat []pattern.Pattern
	for _, s := range segments {
		flat = append(flat, s.Patterns...)
	}
	assert.Equal(t, flat, o.Encode("sh 42 sh", HybridAdaptive))
	assert.Equal(t, []string{"ʃ", " ", "2", " ", "ʃ"}, symbols(flat))
}

func TestEncode_Normalization(t *testing.T) {
	decomposed := "cafe\u0301"
	custom := pattern.MustTable(map[string]pattern.Definition{
		"é": pattern.Def(pattern.Ev(0, 0, 100)),
	})
	g := grapheme.New(custom)

	on := New(WithGraphemes(g), WithLogger(quietLogger()))
	assert.Len(t, on.Encode(decomposed, Letter), 1, "composed é has an entry")

	off := New(WithGraphemes(g), WithLogger(quietLogger()), WithNormalization(false))
	assert.Empty(t, off.Encode(decomposed, Letter))
}

func TestEncode_Metrics(t *testing.T) {
	m := metrics.NewEncoderMetrics(metrics.NewRegistry("test", ""))
	o := New(WithMetrics(m), WithLogger(quietLogger()))

	o.Encode("the 3D x", HybridAdaptive)

	assert.Equal(t, uint64(2), m.TokensSpace.Value())
	assert.Equal(t, uint64(1), m.TokensPhoneme.Value())
	assert.Equal(t, uint64(1), m.TokensGrapheme.Value())
	assert.Equal(t, uint64(1), m.TokensFallback.Value())
	assert.Equal(t, uint64(1), m.EncodeDuration.Count())
	assert.Positive(t, m.PatternsTotal.Value())
}

func TestEncode_Concurrent(t *testing.T) {
	o := New(WithLogger(quietLogger()))
	want := o.Encode("the quick brown fox", HybridAdaptive)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(s Strategy) {
			defer wg.Done()
			o.Encode("the quick brown fox", s)
			assert.Equal(t, want, o.Encode("the quick brown fox", HybridAdaptive))
		}(Strategies()[i%4])
	}
	wg.Wait()
}

func TestRouteAndKindNames(t *testing.T) {
	assert.Equal(t, "fallback", RouteFallback.String())
	assert.Equal(t, "non-word", NonWord.String())
	assert.Equal(t, "passage", Passage.String())
}
