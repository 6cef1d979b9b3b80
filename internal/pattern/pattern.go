// Package pattern defines the tactile value types shared by every encoder:
// actuator events, patterns, and the immutable symbol tables they come from.
package pattern

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	// MaxActuators is the number of actuators on the reference device (ids 0-7).
	MaxActuators = 8

	// DefaultIntensity is used when a definition omits the intensity.
	DefaultIntensity = 200
)

// ErrInvalidEvent is returned when an event falls outside the device limits.
var ErrInvalidEvent = errors.New("invalid actuator event")

// ActuatorEvent is one discrete vibration pulse.
type ActuatorEvent struct {
	Actuator   uint8  `json:"actuator"`
	OffsetMs   uint16 `json:"time_offset_ms"`
	DurationMs uint16 `json:"duration_ms"`
	Intensity  uint8  `json:"intensity"`
}

// End returns the offset at which the pulse stops.
func (e ActuatorEvent) End() int {
	return int(e.OffsetMs) + int(e.DurationMs)
}

// Validate checks the event against a device with the given actuator count.
func (e ActuatorEvent) Validate(actuators int) error {
	if int(e.Actuator) >= actuators {
		return fmt.Errorf("%w: actuator %d out of range 0-%d", ErrInvalidEvent, e.Actuator, actuators-1)
	}
	if e.DurationMs == 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidEvent)
	}
	return nil
}

func (e ActuatorEvent) String() string {
	return fmt.Sprintf("actuator=%d t=%dms d=%dms i=%d", e.Actuator, e.OffsetMs, e.DurationMs, e.Intensity)
}

// Pattern is the tactile rendering of one symbol. Events are sorted by
// offset and TotalDurationMs is derived from them; use New to build one.
type Pattern struct {
	// Symbol is the table key that produced the pattern (a grapheme or phoneme).
	Symbol          string          `json:"symbol"`
	Events          []ActuatorEvent `json:"events"`
	TotalDurationMs int             `json:"total_duration_ms"`
}

// New returns a well-formed pattern. The events are copied, so the caller
// may reuse its slice.
func New(symbol string, events ...ActuatorEvent) Pattern {
	sorted := make([]ActuatorEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OffsetMs < sorted[j].OffsetMs
	})

	total := 0
	for _, e := range sorted {
		if end := e.End(); end > total {
			total = end
		}
	}

	return Pattern{
		Symbol:          symbol,
		Events:          sorted,
		TotalDurationMs: total,
	}
}

// Duration returns the total pattern duration.
func (p Pattern) Duration() time.Duration {
	return time.Duration(p.TotalDurationMs) * time.Millisecond
}

// Len returns the number of events.
func (p Pattern) Len() int {
	return len(p.Events)
}

// IsEmpty reports whether the pattern has no events (a pause).
func (p Pattern) IsEmpty() bool {
	return len(p.Events) == 0
}

// Validate checks every event against the actuator count.
func (p Pattern) Validate(actuators int) error {
	for i, e := range p.Events {
		if err := e.Validate(actuators); err != nil {
			return fmt.Errorf("symbol %q event %d: %w", p.Symbol, i, err)
		}
	}
	return nil
}

// TotalDuration sums the durations of a sequence played back to back.
func TotalDuration(patterns []Pattern) time.Duration {
	var total time.Duration
	for _, p := range patterns {
		total += p.Duration()
	}
	return total
}
