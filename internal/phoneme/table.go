package phoneme

import (
	"tactiled/internal/pattern"
)

// DefaultDefinitions returns the built-in phoneme pattern table, keyed by
// IPA symbol.
func DefaultDefinitions() map[string]pattern.Definition {
	ev, def := pattern.Ev, pattern.Def

	return map[string]pattern.Definition{
		// frequent consonants: one actuator, 120ms
		"n": def(ev(0, 0, 120)),
		"t": def(ev(1, 0, 120)),
		"s": def(ev(2, 0, 120)),
		"r": def(ev(3, 0, 120)),
		"l": def(ev(4, 0, 120)),

		// frequent vowels: one actuator, 150ms
		"ə": def(ev(5, 0, 150)),
		"ɪ": def(ev(6, 0, 150)),
		"ɛ": def(ev(7, 0, 150)),

		// stops: two actuators, sequential
		"d": def(ev(0, 0, 100), ev(1, 150, 100)),
		"k": def(ev(1, 0, 100), ev(2, 150, 100)),
		"m": def(ev(2, 0, 100), ev(3, 150, 100)),
		"p": def(ev(3, 0, 100), ev(4, 150, 100)),
		"b": def(ev(4, 0, 100), ev(5, 150, 100)),
		"g": def(ev(5, 0, 100), ev(6, 150, 100)),

		// fricatives: one long pulse
		"f": def(ev(0, 0, 200)),
		"v": def(ev(1, 0, 200)),
		"z": def(ev(2, 0, 200)),
		"θ": def(ev(3, 0, 200)),
		"ð": def(ev(4, 0, 200)),

		// sibilants, affricates, velar nasal
		"ʃ":  def(ev(0, 0, 150), ev(2, 0, 150)),
		"ʒ":  def(ev(1, 0, 150), ev(3, 0, 150)),
		"tʃ": def(ev(0, 0, 80), ev(1, 120, 80), ev(2, 240, 80)),
		"dʒ": def(ev(2, 0, 80), ev(1, 120, 80), ev(0, 240, 80)),
		"ŋ":  def(ev(5, 0, 150), ev(6, 0, 150), ev(7, 0, 150)),

		// vowels: three-step sweeps
		"æ": def(ev(0, 0, 100), ev(1, 150, 100), ev(2, 300, 100)),
		"ʌ": def(ev(1, 0, 100), ev(2, 150, 100), ev(3, 300, 100)),
		"ɑ": def(ev(2, 0, 100), ev(3, 150, 100), ev(4, 300, 100)),
		"ɔ": def(ev(3, 0, 100), ev(4, 150, 100), ev(5, 300, 100)),
		"ʊ": def(ev(4, 0, 100), ev(5, 150, 100), ev(6, 300, 100)),
		"u": def(ev(5, 0, 100), ev(6, 150, 100), ev(7, 300, 100)),
		"i": def(ev(6, 0, 100), ev(7, 150, 100), ev(0, 300, 100)),
		"o": def(ev(7, 0, 100), ev(0, 150, 100), ev(1, 300, 100)),

		// diphthongs: two phases
		"aɪ": def(ev(0, 0, 100), ev(4, 150, 150)),
		"aʊ": def(ev(0, 0, 100), ev(7, 150, 150)),
		"eɪ": def(ev(1, 0, 100), ev(4, 150, 150)),
		"oʊ": def(ev(3, 0, 100), ev(7, 150, 150)),
		"ɔɪ": def(ev(3, 0, 100), ev(4, 150, 150)),

		// glides
		"w": def(ev(0, 0, 120), ev(7, 0, 120)),
		"j": def(ev(1, 0, 120), ev(6, 0, 120)),
		"h": def(ev(0, 0, 80)),
	}
}
