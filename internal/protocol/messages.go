package protocol

import (
	"fmt"

	"tactiled/internal/pattern"
)

// NewPatternMessage builds a PATTERN message for one encoded pattern.
func NewPatternMessage(p pattern.Pattern) (*Message, error) {
	payload, err := NewPatternPayload(p).Serialize()
	if err != nil {
		return nil, err
	}
	return &Message{Type: MsgPattern, Payload: payload}, nil
}

// NewPatternBatchMessage builds a PATTERN_BATCH message. It fails with
// ErrPayloadTooLarge when the patterns do not fit in one frame.
func NewPatternBatchMessage(patterns []pattern.Pattern) (*Message, error) {
	b := &PatternBatchPayload{Items: make([]PatternPayload, len(patterns))}
	for i, p := range patterns {
		b.Items[i] = *NewPatternPayload(p)
	}
	payload, err := b.Serialize()
	if err != nil {
		return nil, err
	}
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	return &Message{Type: MsgPatternBatch, Payload: payload}, nil
}

// NewConfigMessage builds a CONFIG message.
func NewConfigMessage(t ConfigType, value uint8) *Message {
	return &Message{Type: MsgConfig, Payload: (&ConfigPayload{Type: t, Value: value}).Serialize()}
}

// NewStatusRequestMessage builds an empty STATUS_REQUEST message.
func NewStatusRequestMessage() *Message {
	return &Message{Type: MsgStatusRequest}
}

// NewStatusResponseMessage builds a STATUS_RESPONSE message.
func NewStatusResponseMessage(s StatusPayload) *Message {
	return &Message{Type: MsgStatusResponse, Payload: s.Serialize()}
}

// NewHeartbeatMessage builds an empty HEARTBEAT message.
func NewHeartbeatMessage() *Message {
	return &Message{Type: MsgHeartbeat}
}

// NewResetMessage builds an empty RESET message.
func NewResetMessage() *Message {
	return &Message{Type: MsgReset}
}

// NewErrorMessage builds an ERROR message. See ErrorPayload.Serialize for
// how text is sanitized.
func NewErrorMessage(code ErrorCode, text string) *Message {
	return &Message{Type: MsgError, Payload: (&ErrorPayload{Code: code, Message: text}).Serialize()}
}
