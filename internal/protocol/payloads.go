package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"tactiled/internal/pattern"
)

// CharCode returns the byte sent alongside a pattern: the symbol itself when
// it is a single ASCII character, otherwise 0.
func CharCode(symbol string) byte {
	if len(symbol) == 1 && symbol[0] < utf8.RuneSelf {
		return symbol[0]
	}
	return 0
}

// putEvents appends [count:1] and the event records to buf.
func putEvents(buf []byte, events []pattern.ActuatorEvent) []byte {
	buf = append(buf, byte(len(events)))
	for _, ev := range events {
		buf = append(buf, ev.Actuator)
		buf = binary.BigEndian.AppendUint16(buf, ev.OffsetMs)
		buf = binary.BigEndian.AppendUint16(buf, ev.DurationMs)
		buf = append(buf, ev.Intensity)
	}
	return buf
}

// readEvents decodes [count:1] and the records from the start of data and
// returns the number of bytes consumed.
func readEvents(data []byte) ([]pattern.ActuatorEvent, int, error) {
	if len(data) < 1 {
		return nil, 0, fmt.Errorf("%w: missing event count", ErrPayloadTooShort)
	}
	count := int(data[0])
	size := 1 + count*EventRecordSize
	if len(data) < size {
		return nil, 0, fmt.Errorf("%w: %d events need %d bytes, have %d",
			ErrPayloadTooShort, count, size, len(data))
	}

	events := make([]pattern.ActuatorEvent, count)
	offset := 1
	for i := range events {
		events[i] = pattern.ActuatorEvent{
			Actuator:   data[offset],
			OffsetMs:   binary.BigEndian.Uint16(data[offset+1:]),
			DurationMs: binary.BigEndian.Uint16(data[offset+3:]),
			Intensity:  data[offset+5],
		}
		offset += EventRecordSize
	}
	return events, size, nil
}

// PatternPayload is the body of a PATTERN message and one item of a
// PATTERN_BATCH message.
type PatternPayload struct {
	Char   byte
	Events []pattern.ActuatorEvent
}

// NewPatternPayload builds a payload from an encoded pattern.
func NewPatternPayload(p pattern.Pattern) *PatternPayload {
	return &PatternPayload{Char: CharCode(p.Symbol), Events: p.Events}
}

// Size returns the serialized size of the payload.
func (p *PatternPayload) Size() int {
	return 2 + len(p.Events)*EventRecordSize
}

// Serialize encodes the payload to bytes.
func (p *PatternPayload) Serialize() ([]byte, error) {
	if len(p.Events) > MaxEventsPerPattern {
		return nil, fmt.Errorf("%w: %d events, max %d", ErrTooManyEvents, len(p.Events), MaxEventsPerPattern)
	}
	buf := make([]byte, 0, p.Size())
	buf = append(buf, p.Char)
	return putEvents(buf, p.Events), nil
}

// Pattern rebuilds the pattern the payload carries.
func (p *PatternPayload) Pattern() pattern.Pattern {
	symbol := ""
	if p.Char != 0 {
		symbol = string(rune(p.Char))
	}
	return pattern.New(symbol, p.Events...)
}

// DeserializePattern decodes a PATTERN payload.
func DeserializePattern(data []byte) (*PatternPayload, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: pattern payload needs 2 bytes, have %d", ErrPayloadTooShort, len(data))
	}
	events, used, err := readEvents(data[1:])
	if err != nil {
		return nil, err
	}
	if 1+used != len(data) {
		return nil, fmt.Errorf("%w: pattern payload has %d bytes, events use %d",
			ErrPatternLength, len(data), 1+used)
	}
	return &PatternPayload{Char: data[0], Events: events}, nil
}

// PatternBatchPayload is the body of a PATTERN_BATCH message:
//
//	[count:1] then per item [char:1][length:2][event count:1][records]
//
// where length covers the event count byte and the records.
type PatternBatchPayload struct {
	Items []PatternPayload
}

// batchItemSize is the serialized size of one batch item.
func batchItemSize(events int) int {
	return 1 + 2 + 1 + events*EventRecordSize
}

// BatchItemSize returns the bytes p adds to a batch.
func BatchItemSize(p pattern.Pattern) int {
	return batchItemSize(len(p.Events))
}

// EmptyBatchSize is the size of a batch with no items.
const EmptyBatchSize = 1

// Serialize encodes the batch. The result may still be too large for one
// frame; Frame reports that.
func (b *PatternBatchPayload) Serialize() ([]byte, error) {
	if len(b.Items) > 255 {
		return nil, fmt.Errorf("%w: %d patterns", ErrTooManyPatterns, len(b.Items))
	}

	size := EmptyBatchSize
	for _, it := range b.Items {
		size += batchItemSize(len(it.Events))
	}

	buf := make([]byte, 0, size)
	buf = append(buf, byte(len(b.Items)))
	for _, it := range b.Items {
		if len(it.Events) > 255 {
			return nil, fmt.Errorf("%w: %d events", ErrTooManyEvents, len(it.Events))
		}
		buf = append(buf, it.Char)
		buf = binary.BigEndian.AppendUint16(buf, uint16(1+len(it.Events)*EventRecordSize))
		buf = putEvents(buf, it.Events)
	}
	return buf, nil
}

// DeserializePatternBatch decodes a PATTERN_BATCH payload.
func DeserializePatternBatch(data []byte) (*PatternBatchPayload, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: batch payload is empty", ErrPayloadTooShort)
	}

	count := int(data[0])
	b := &PatternBatchPayload{Items: make([]PatternPayload, 0, count)}
	offset := 1
	for i := 0; i < count; i++ {
		if len(data) < offset+3 {
			return nil, fmt.Errorf("%w: batch item %d header", ErrPayloadTooShort, i)
		}
		char := data[offset]
		length := int(binary.BigEndian.Uint16(data[offset+1:]))
		offset += 3

		if len(data) < offset+length {
			return nil, fmt.Errorf("%w: batch item %d needs %d bytes", ErrPayloadTooShort, i, length)
		}
		events, used, err := readEvents(data[offset : offset+length])
		if err != nil {
			return nil, fmt.Errorf("batch item %d: %w", i, err)
		}
		if used != length {
			return nil, fmt.Errorf("%w: batch item %d declares %d bytes, events use %d",
				ErrPatternLength, i, length, used)
		}
		offset += length

		b.Items = append(b.Items, PatternPayload{Char: char, Events: events})
	}
	return b, nil
}

// ConfigPayload sets one device parameter.
type ConfigPayload struct {
	Type  ConfigType
	Value uint8
}

// Serialize encodes the payload to bytes.
func (c *ConfigPayload) Serialize() []byte {
	return []byte{byte(c.Type), c.Value}
}

// DeserializeConfig decodes a CONFIG payload.
func DeserializeConfig(data []byte) (*ConfigPayload, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: config payload needs 2 bytes, have %d", ErrPayloadTooShort, len(data))
	}
	t, err := ParseConfigType(data[0])
	if err != nil {
		return nil, err
	}
	return &ConfigPayload{Type: t, Value: data[1]}, nil
}

// StatusPayload is the body of a STATUS_RESPONSE message. ConnectionQuality
// is a signed byte (two's complement), so values such as -50 dBm survive
// the trip.
type StatusPayload struct {
	BatteryLevel      uint8
	ConnectionQuality int8
	ErrorCode         uint8 // 0 means no error
	QueueLength       uint8
}

// Serialize encodes the payload to bytes.
func (s *StatusPayload) Serialize() []byte {
	return []byte{s.BatteryLevel, byte(s.ConnectionQuality), s.ErrorCode, s.QueueLength}
}

// Err returns the reported error code and whether a known one is set.
func (s *StatusPayload) Err() (ErrorCode, bool) {
	code := ErrorCode(s.ErrorCode)
	if !code.Valid() {
		return 0, false
	}
	return code, true
}

// DeserializeStatus decodes a STATUS_RESPONSE payload.
func DeserializeStatus(data []byte) (*StatusPayload, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: status payload needs 4 bytes, have %d", ErrPayloadTooShort, len(data))
	}
	if data[2] != 0 {
		if _, err := ParseErrorCode(data[2]); err != nil {
			return nil, fmt.Errorf("status payload: %w", err)
		}
	}
	return &StatusPayload{
		BatteryLevel:      data[0],
		ConnectionQuality: int8(data[1]),
		ErrorCode:         data[2],
		QueueLength:       data[3],
	}, nil
}

// ErrorPayload is the body of an ERROR message.
type ErrorPayload struct {
	Code    ErrorCode
	Message string
}

// MaxErrorMessage is the longest error text that fits beside the code byte.
const MaxErrorMessage = MaxPayloadSize - 1

// asciiOnly drops non-ASCII runes and truncates to limit bytes.
func asciiOnly(s string, limit int) []byte {
	out := make([]byte, 0, min(len(s), limit))
	for _, r := range s {
		if len(out) == limit {
			break
		}
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
		}
	}
	return out
}

// Serialize encodes the payload. Non-ASCII characters are dropped and the
// text is cut to MaxErrorMessage bytes.
func (e *ErrorPayload) Serialize() []byte {
	return append([]byte{byte(e.Code)}, asciiOnly(e.Message, MaxErrorMessage)...)
}

// DeserializeError decodes an ERROR payload.
func DeserializeError(data []byte) (*ErrorPayload, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: error payload is empty", ErrPayloadTooShort)
	}
	code, err := ParseErrorCode(data[0])
	if err != nil {
		return nil, err
	}
	return &ErrorPayload{Code: code, Message: string(data[1:])}, nil
}

// ParsePayload decodes m's payload according to its type. Messages without
// a body (status request, heartbeat, reset) yield nil.
func ParsePayload(m *Message) (any, error) {
	switch m.Type {
	case MsgPattern:
		return DeserializePattern(m.Payload)
	case MsgPatternBatch:
		return DeserializePatternBatch(m.Payload)
	case MsgConfig:
		return DeserializeConfig(m.Payload)
	case MsgStatusResponse:
		return DeserializeStatus(m.Payload)
	case MsgError:
		return DeserializeError(m.Payload)
	case MsgStatusRequest, MsgHeartbeat, MsgReset:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownMessageType, uint8(m.Type))
	}
}
