// Package history keeps a SQLite journal of encode sessions and the frames
// each one produced.
package history

import (
	"time"

	"github.com/google/uuid"

	"tactiled/internal/protocol"
)

// Session is one encode run: the input text, how it was encoded, and a
// summary of the output.
type Session struct {
	ID               uuid.UUID
	CreatedAt        time.Time
	Strategy         string
	Text             string
	PatternCount     int
	TotalDurationMs  int
	TableFingerprint string
	FrameBytes       int
}

// Frame is one wire frame belonging to a session, in transmission order.
type Frame struct {
	SessionID uuid.UUID
	Seq       int
	Type      protocol.MessageType
	Data      []byte
}

// Stats summarizes the journal.
type Stats struct {
	Sessions   int
	Frames     int
	Patterns   int
	FrameBytes int64
	Oldest     time.Time
	Newest     time.Time
}
