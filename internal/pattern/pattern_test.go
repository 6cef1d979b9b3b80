package pattern

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortsByOffset(t *testing.T) {
	p := New("X",
		ActuatorEvent{Actuator: 3, OffsetMs: 240, DurationMs: 80, Intensity: 200},
		ActuatorEvent{Actuator: 1, OffsetMs: 0, DurationMs: 80, Intensity: 200},
		ActuatorEvent{Actuator: 2, OffsetMs: 120, DurationMs: 80, Intensity: 200},
	)

	require.Len(t, p.Events, 3)
	assert.Equal(t, uint8(1), p.Events[0].Actuator)
	assert.Equal(t, uint8(2), p.Events[1].Actuator)
	assert.Equal(t, uint8(3), p.Events[2].Actuator)
	assert.Equal(t, 320, p.TotalDurationMs)
}

func TestNew_StableForEqualOffsets(t *testing.T) {
	p := New("x",
		ActuatorEvent{Actuator: 0, OffsetMs: 0, DurationMs: 100},
		ActuatorEvent{Actuator: 7, OffsetMs: 0, DurationMs: 100},
	)
	assert.Equal(t, uint8(0), p.Events[0].Actuator)
	assert.Equal(t, uint8(7), p.Events[1].Actuator)
}

func TestNew_CopiesEvents(t *testing.T) {
	events := []ActuatorEvent{{Actuator: 1, DurationMs: 10}}
	p := New("a", events...)
	events[0].Actuator = 5
	assert.Equal(t, uint8(1), p.Events[0].Actuator)
}

func TestDurationLaw(t *testing.T) {
	tests := []struct {
		name   string
		events []ActuatorEvent
		want   int
	}{
		{"empty", nil, 0},
		{"single", []ActuatorEvent{{OffsetMs: 0, DurationMs: 150}}, 150},
		{"later event shorter", []ActuatorEvent{
			{OffsetMs: 0, DurationMs: 500},
			{OffsetMs: 100, DurationMs: 50},
		}, 500},
		{"last event ends latest", []ActuatorEvent{
			{OffsetMs: 0, DurationMs: 60},
			{OffsetMs: 560, DurationMs: 60},
		}, 620},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New("s", tt.events...)
			assert.Equal(t, tt.want, p.TotalDurationMs)
			assert.Equal(t, time.Duration(tt.want)*time.Millisecond, p.Duration())

			max := 0
			for _, e := range p.Events {
				if e.End() > max {
					max = e.End()
				}
			}
			assert.Equal(t, max, p.TotalDurationMs)
		})
	}
}

func TestPattern_IsEmpty(t *testing.T) {
	assert.True(t, New(" ").IsEmpty())
	assert.False(t, New("E", ActuatorEvent{DurationMs: 1}).IsEmpty())
}

func TestActuatorEvent_Validate(t *testing.T) {
	assert.NoError(t, ActuatorEvent{Actuator: 7, DurationMs: 1}.Validate(8))

	err := ActuatorEvent{Actuator: 8, DurationMs: 1}.Validate(8)
	assert.True(t, errors.Is(err, ErrInvalidEvent))

	err = ActuatorEvent{Actuator: 3, DurationMs: 1}.Validate(3)
	assert.ErrorIs(t, err, ErrInvalidEvent)

	err = ActuatorEvent{Actuator: 0, DurationMs: 0}.Validate(8)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestTotalDuration(t *testing.T) {
	ps := []Pattern{
		New("a", ActuatorEvent{DurationMs: 100}),
		New(" "),
		New("b", ActuatorEvent{OffsetMs: 50, DurationMs: 50}),
	}
	assert.Equal(t, 200*time.Millisecond, TotalDuration(ps))
}
