package grapheme

import (
	"tactiled/internal/pattern"
)

// DefaultDefinitions returns the built-in letter table. Keys are upper-case;
// lower-case input resolves to the same entries by case folding.
//
// Frequent letters get a single short pulse, rarer letters longer sweeps.
// Digits carry a marker pulse on actuator 5.
func DefaultDefinitions() map[string]pattern.Definition {
	return map[string]pattern.Definition{
		// single actuator, short pulse
		"E": pattern.Def(pattern.Ev(0, 0, 150)),
		"T": pattern.Def(pattern.Ev(1, 0, 150)),
		"A": pattern.Def(pattern.Ev(2, 0, 150)),
		"O": pattern.Def(pattern.Ev(3, 0, 150)),
		"I": pattern.Def(pattern.Ev(4, 0, 150)),

		// two actuators, sequential
		"N": pattern.Def(pattern.Ev(0, 0, 100), pattern.Ev(1, 150, 100)),
		"S": pattern.Def(pattern.Ev(1, 0, 100), pattern.Ev(2, 150, 100)),
		"H": pattern.Def(pattern.Ev(2, 0, 100), pattern.Ev(3, 150, 100)),
		"R": pattern.Def(pattern.Ev(3, 0, 100), pattern.Ev(4, 150, 100)),
		"D": pattern.Def(pattern.Ev(4, 0, 100), pattern.Ev(5, 150, 100)),
		"L": pattern.Def(pattern.Ev(5, 0, 100), pattern.Ev(6, 150, 100)),

		// three actuators
		"C": pattern.Def(pattern.Ev(0, 0, 80), pattern.Ev(1, 120, 80), pattern.Ev(2, 240, 80)),
		"U": pattern.Def(pattern.Ev(1, 0, 80), pattern.Ev(2, 120, 80), pattern.Ev(3, 240, 80)),
		"M": pattern.Def(pattern.Ev(2, 0, 80), pattern.Ev(3, 120, 80), pattern.Ev(4, 240, 80)),
		"W": pattern.Def(pattern.Ev(3, 0, 80), pattern.Ev(4, 120, 80), pattern.Ev(5, 240, 80)),
		"F": pattern.Def(pattern.Ev(4, 0, 80), pattern.Ev(5, 120, 80), pattern.Ev(6, 240, 80)),
		"G": pattern.Def(pattern.Ev(5, 0, 80), pattern.Ev(6, 120, 80), pattern.Ev(7, 240, 80)),
		"Y": pattern.Def(pattern.Ev(0, 0, 80), pattern.Ev(2, 120, 80), pattern.Ev(4, 240, 80)),
		"P": pattern.Def(pattern.Ev(1, 0, 80), pattern.Ev(3, 120, 80), pattern.Ev(5, 240, 80)),
		"B": pattern.Def(pattern.Ev(2, 0, 80), pattern.Ev(4, 120, 80), pattern.Ev(6, 240, 80)),
		"V": pattern.Def(pattern.Ev(3, 0, 80), pattern.Ev(5, 120, 80), pattern.Ev(7, 240, 80)),

		// four or more
		"K": pattern.Def(pattern.Ev(0, 0, 70), pattern.Ev(1, 100, 70), pattern.Ev(2, 200, 70), pattern.Ev(3, 300, 70)),
		"J": pattern.Def(pattern.Ev(4, 0, 70), pattern.Ev(3, 100, 70), pattern.Ev(2, 200, 70), pattern.Ev(1, 300, 70)),
		"X": pattern.Def(
			pattern.Ev(0, 0, 100), pattern.Ev(7, 0, 100),
			pattern.Ev(1, 120, 100), pattern.Ev(6, 120, 100),
			pattern.Ev(2, 240, 100), pattern.Ev(5, 240, 100),
			pattern.Ev(3, 360, 100), pattern.Ev(4, 360, 100),
		),
		"Q": pattern.Def(sweep(0, 1, 80, 60)...),
		"Z": pattern.Def(sweep(7, -1, 80, 60)...),

		"0": pattern.Def(pattern.Ev(5, 0, 200)),
		"1": pattern.Def(pattern.Ev(5, 0, 100), pattern.Ev(0, 150, 150)),
		"2": pattern.Def(pattern.Ev(5, 0, 100), pattern.Ev(0, 150, 100), pattern.Ev(1, 300, 100)),
		"3": pattern.Def(pattern.Ev(5, 0, 100), pattern.Ev(0, 150, 80), pattern.Ev(1, 270, 80), pattern.Ev(2, 390, 80)),

		".": pattern.Def(all(0, 200)...),
		",": pattern.Def(pattern.Ev(0, 0, 150), pattern.Ev(7, 0, 150)),
		"?": pattern.Def(pattern.Ev(0, 0, 100), pattern.Ev(4, 150, 100), pattern.Ev(0, 300, 100)),
		"!": pattern.Def(append(all(0, 150), all(200, 150)...)...),

		// pause: an entry with no events
		" ": pattern.Def(),
	}
}

// sweep steps across all actuators starting at first, one every step ms.
func sweep(first, dir, step, duration int) []pattern.EventDef {
	events := make([]pattern.EventDef, 0, pattern.MaxActuators)
	for i := 0; i < pattern.MaxActuators; i++ {
		events = append(events, pattern.Ev(first+dir*i, i*step, duration))
	}
	return events
}

// all fires every actuator at once.
func all(offset, duration int) []pattern.EventDef {
	events := make([]pattern.EventDef, 0, pattern.MaxActuators)
	for a := 0; a < pattern.MaxActuators; a++ {
		events = append(events, pattern.Ev(a, offset, duration))
	}
	return events
}
