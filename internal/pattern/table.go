package pattern

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// ErrInvalidDefinition is returned when a table definition cannot be compiled.
var ErrInvalidDefinition = errors.New("invalid pattern definition")

// EventDef is the declarative form of an ActuatorEvent, as written in
// built-in tables and table files.
type EventDef struct {
	Actuator   int  `json:"actuator" yaml:"actuator"`
	TimeOffset int  `json:"time_offset" yaml:"time_offset"`
	Duration   int  `json:"duration" yaml:"duration"`
	Intensity  *int `json:"intensity,omitempty" yaml:"intensity,omitempty"`
}

// Definition describes the events of one symbol.
type Definition struct {
	Events []EventDef `json:"events" yaml:"events"`
}

// Ev is shorthand for an EventDef with the default intensity.
func Ev(actuator, offset, duration int) EventDef {
	return EventDef{Actuator: actuator, TimeOffset: offset, Duration: duration}
}

// Def is shorthand for a Definition.
func Def(events ...EventDef) Definition {
	return Definition{Events: events}
}

func (d EventDef) compile() (ActuatorEvent, error) {
	intensity := DefaultIntensity
	if d.Intensity != nil {
		intensity = *d.Intensity
	}

	switch {
	case d.Actuator < 0 || d.Actuator >= MaxActuators:
		return ActuatorEvent{}, fmt.Errorf("%w: actuator %d out of range 0-%d", ErrInvalidDefinition, d.Actuator, MaxActuators-1)
	case d.TimeOffset < 0 || d.TimeOffset > math.MaxUint16:
		return ActuatorEvent{}, fmt.Errorf("%w: time offset %d out of range", ErrInvalidDefinition, d.TimeOffset)
	case d.Duration <= 0 || d.Duration > math.MaxUint16:
		return ActuatorEvent{}, fmt.Errorf("%w: duration %d out of range", ErrInvalidDefinition, d.Duration)
	case intensity < 0 || intensity > math.MaxUint8:
		return ActuatorEvent{}, fmt.Errorf("%w: intensity %d out of range", ErrInvalidDefinition, intensity)
	}

	return ActuatorEvent{
		Actuator:   uint8(d.Actuator),
		OffsetMs:   uint16(d.TimeOffset),
		DurationMs: uint16(d.Duration),
		Intensity:  uint8(intensity),
	}, nil
}

// Table maps symbols to patterns. It is built once and never mutated, so a
// single Table can be shared by any number of encoders and goroutines.
type Table struct {
	entries     map[string]Pattern
	symbols     []string
	fingerprint string
}

// NewTable compiles definitions into a Table.
func NewTable(defs map[string]Definition) (*Table, error) {
	t := &Table{
		entries: make(map[string]Pattern, len(defs)),
		symbols: make([]string, 0, len(defs)),
	}

	for symbol, def := range defs {
		if symbol == "" {
			return nil, fmt.Errorf("%w: empty symbol", ErrInvalidDefinition)
		}
		events := make([]ActuatorEvent, 0, len(def.Events))
		for i, ed := range def.Events {
			e, err := ed.compile()
			if err != nil {
				return nil, fmt.Errorf("symbol %q event %d: %w", symbol, i, err)
			}
			events = append(events, e)
		}
		t.entries[symbol] = New(symbol, events...)
		t.symbols = append(t.symbols, symbol)
	}
	sort.Strings(t.symbols)

	t.fingerprint = t.computeFingerprint()
	return t, nil
}

// MustTable is NewTable for built-in tables; it panics on a bad definition.
func MustTable(defs map[string]Definition) *Table {
	t, err := NewTable(defs)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the pattern for symbol. The returned pattern shares its
// event slice with the table and must not be modified.
func (t *Table) Lookup(symbol string) (Pattern, bool) {
	p, ok := t.entries[symbol]
	return p, ok
}

// Has reports whether symbol has an entry.
func (t *Table) Has(symbol string) bool {
	_, ok := t.entries[symbol]
	return ok
}

// Symbols returns all keys in sorted order.
func (t *Table) Symbols() []string {
	out := make([]string, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Validate checks every entry against a device with the given actuator count.
func (t *Table) Validate(actuators int) error {
	for _, s := range t.symbols {
		if err := t.entries[s].Validate(actuators); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint is a stable hex digest of the table contents.
func (t *Table) Fingerprint() string {
	return t.fingerprint
}

func (t *Table) computeFingerprint() string {
	h, _ := blake2b.New256(nil)
	var rec [6]byte
	for _, s := range t.symbols {
		p := t.entries[s]
		h.Write([]byte(s))
		h.Write([]byte{0, byte(len(p.Events))})
		for _, e := range p.Events {
			rec[0] = e.Actuator
			binary.BigEndian.PutUint16(rec[1:3], e.OffsetMs)
			binary.BigEndian.PutUint16(rec[3:5], e.DurationMs)
			rec[5] = e.Intensity
			h.Write(rec[:])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
