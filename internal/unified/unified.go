// Package unified is a single-mode facade over the letter and phoneme
// encoders. It has no fallback logic; see package hybrid for that.
package unified

import (
	"errors"
	"fmt"
	"strings"

	"tactiled/internal/grapheme"
	"tactiled/internal/pattern"
	"tactiled/internal/phoneme"
)

// ErrUnknownMode is returned by ParseMode for unrecognized names.
var ErrUnknownMode = errors.New("unknown encoding mode")

// Mode selects the encoder an Encoder delegates to.
type Mode int

const (
	// ModeLetter encodes character by character.
	ModeLetter Mode = iota
	// ModePhoneme encodes speech sounds.
	ModePhoneme
)

func (m Mode) String() string {
	switch m {
	case ModeLetter:
		return "letter"
	case ModePhoneme:
		return "phoneme"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses "letter" (or "character") and "phoneme".
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "letter", "character", "char":
		return ModeLetter, nil
	case "phoneme":
		return ModePhoneme, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithGraphemes sets the letter encoder.
func WithGraphemes(enc *grapheme.Encoder) Option {
	return func(e *Encoder) { e.letters = enc }
}

// WithPhonemes sets the phoneme encoder.
func WithPhonemes(enc *phoneme.Encoder) Option {
	return func(e *Encoder) { e.phonemes = enc }
}

// Encoder delegates to one encoder chosen at construction. It is immutable;
// WithMode returns a copy in another mode.
type Encoder struct {
	mode     Mode
	letters  *grapheme.Encoder
	phonemes *phoneme.Encoder
}

// New returns an encoder in mode, using the built-in tables unless options
// say otherwise.
func New(mode Mode, opts ...Option) *Encoder {
	e := &Encoder{mode: mode}
	for _, opt := range opts {
		opt(e)
	}
	if e.letters == nil {
		e.letters = grapheme.Default()
	}
	if e.phonemes == nil {
		e.phonemes = phoneme.Default()
	}
	return e
}

// WithMode returns an encoder in mode sharing e's tables.
func (e *Encoder) WithMode(mode Mode) *Encoder {
	c := *e
	c.mode = mode
	return &c
}

// Mode returns the encoder's mode.
func (e *Encoder) Mode() Mode {
	return e.mode
}

// ModeName returns the mode as a string.
func (e *Encoder) ModeName() string {
	return e.mode.String()
}

// EncodeText encodes text with the mode's encoder. Text the phoneme
// pipeline rejects encodes to nothing.
func (e *Encoder) EncodeText(text string) []pattern.Pattern {
	if e.mode != ModePhoneme {
		return e.letters.EncodeSequence(text)
	}
	patterns, err := e.phonemes.EncodeText(text)
	if err != nil {
		return nil
	}
	return patterns
}

// EncodeSymbol encodes one character. In phoneme mode the character is
// converted to phonemes and only the first one is encoded; the rest are
// discarded.
func (e *Encoder) EncodeSymbol(r rune) (pattern.Pattern, bool) {
	if e.mode != ModePhoneme {
		return e.letters.EncodeSymbol(r)
	}
	phonemes := e.phonemes.TextToPhonemes(string(r))
	if len(phonemes) == 0 {
		return pattern.Pattern{}, false
	}
	return e.phonemes.EncodePhoneme(phonemes[0])
}
