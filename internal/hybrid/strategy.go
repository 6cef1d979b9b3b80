package hybrid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownStrategy is returned by ParseStrategy for names it does not
// recognize.
var ErrUnknownStrategy = errors.New("unknown encoding strategy")

// Strategy selects which encoders the orchestrator consults. The zero value
// and any unknown value behave like HybridAdaptive.
type Strategy int

const (
	// Letter encodes everything through the grapheme table.
	Letter Strategy = iota + 1
	// Phoneme encodes everything through the phoneme pipeline.
	Phoneme
	// HybridAdaptive tries phonemes for words and falls back to letters.
	HybridAdaptive
	// HybridWordLevel tries phonemes only for common words.
	HybridWordLevel
)

// Strategies lists the strategies in declaration order.
func Strategies() []Strategy {
	return []Strategy{Letter, Phoneme, HybridAdaptive, HybridWordLevel}
}

func (s Strategy) String() string {
	switch s {
	case Letter:
		return "letter"
	case Phoneme:
		return "phoneme"
	case HybridAdaptive:
		return "adaptive"
	case HybridWordLevel:
		return "word_level"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// Valid reports whether s is one of the declared strategies.
func (s Strategy) Valid() bool {
	return s >= Letter && s <= HybridWordLevel
}

// ParseStrategy parses a strategy name. "character" is accepted as an alias
// for "letter".
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "letter", "character", "char":
		return Letter, nil
	case "phoneme":
		return Phoneme, nil
	case "adaptive", "hybrid", "hybrid_adaptive":
		return HybridAdaptive, nil
	case "word_level", "word-level", "wordlevel", "hybrid_word_level":
		return HybridWordLevel, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Strategy) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
