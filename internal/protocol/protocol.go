// Package protocol implements the binary wire protocol spoken with the
// tactile device.
//
// Every message travels as one frame:
//
//	[type:1][length:1][payload:length][checksum:1]
//
// The checksum is the sum of the type, length and payload bytes modulo 256.
// Multi-byte integers inside payloads are big-endian. A pattern event is a
// 6-byte record: actuator:1, offset:2, duration:2, intensity:1.
package protocol

import (
	"errors"
	"fmt"
)

// Frame geometry.
const (
	HeaderSize     = 2
	ChecksumSize   = 1
	MaxPayloadSize = 255
	MinFrameSize   = HeaderSize + ChecksumSize
	MaxFrameSize   = MinFrameSize + MaxPayloadSize

	// EventRecordSize is the encoded size of one actuator event.
	EventRecordSize = 6
	// MaxEventsPerPattern is how many events fit in a single PATTERN
	// message: char and count bytes plus the records.
	MaxEventsPerPattern = (MaxPayloadSize - 2) / EventRecordSize
)

var (
	ErrPayloadTooLarge    = errors.New("payload exceeds 255 bytes")
	ErrFrameTooShort      = errors.New("frame shorter than header and checksum")
	ErrFrameTruncated     = errors.New("frame shorter than its declared length")
	ErrChecksumMismatch   = errors.New("frame checksum mismatch")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrPayloadTooShort    = errors.New("payload too short")
	ErrUnknownConfigType  = errors.New("unknown config type")
	ErrUnknownErrorCode   = errors.New("unknown error code")
	ErrTooManyEvents      = errors.New("too many events for one pattern message")
	ErrTooManyPatterns    = errors.New("too many patterns for one batch")
	ErrPatternTooLong     = errors.New("pattern does not fit in a batch")
	ErrPatternLength      = errors.New("pattern length does not match its event count")
)

// FrameError reports a frame that failed to decode.
type FrameError struct {
	Length int // bytes supplied
	Err    error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("decode frame (%d bytes): %v", e.Length, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// MessageType identifies a message.
type MessageType uint8

const (
	MsgPattern        MessageType = 0x01
	MsgPatternBatch   MessageType = 0x02
	MsgConfig         MessageType = 0x03
	MsgStatusRequest  MessageType = 0x04
	MsgStatusResponse MessageType = 0x05
	MsgHeartbeat      MessageType = 0x06
	MsgError          MessageType = 0x07
	MsgReset          MessageType = 0x08
)

func (t MessageType) String() string {
	switch t {
	case MsgPattern:
		return "PATTERN"
	case MsgPatternBatch:
		return "PATTERN_BATCH"
	case MsgConfig:
		return "CONFIG"
	case MsgStatusRequest:
		return "STATUS_REQUEST"
	case MsgStatusResponse:
		return "STATUS_RESPONSE"
	case MsgHeartbeat:
		return "HEARTBEAT"
	case MsgError:
		return "ERROR"
	case MsgReset:
		return "RESET"
	default:
		return fmt.Sprintf("MessageType(0x%02x)", uint8(t))
	}
}

// Valid reports whether t is a defined message type.
func (t MessageType) Valid() bool {
	return t >= MsgPattern && t <= MsgReset
}

// ParseMessageType validates a wire byte.
func ParseMessageType(b byte) (MessageType, error) {
	t := MessageType(b)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownMessageType, b)
	}
	return t, nil
}

// ConfigType identifies a device setting.
type ConfigType uint8

const (
	ConfigIntensity      ConfigType = 0x01
	ConfigSpeed          ConfigType = 0x02
	ConfigPatternSpacing ConfigType = 0x03
)

func (c ConfigType) String() string {
	switch c {
	case ConfigIntensity:
		return "INTENSITY"
	case ConfigSpeed:
		return "SPEED"
	case ConfigPatternSpacing:
		return "PATTERN_SPACING"
	default:
		return fmt.Sprintf("ConfigType(0x%02x)", uint8(c))
	}
}

// Valid reports whether c is a defined config type.
func (c ConfigType) Valid() bool {
	return c >= ConfigIntensity && c <= ConfigPatternSpacing
}

// ParseConfigType validates a wire byte.
func ParseConfigType(b byte) (ConfigType, error) {
	c := ConfigType(b)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownConfigType, b)
	}
	return c, nil
}

// ErrorCode is a device-reported error.
type ErrorCode uint8

const (
	ErrCodeInvalidMessage  ErrorCode = 0x01
	ErrCodeQueueFull       ErrorCode = 0x02
	ErrCodeInvalidActuator ErrorCode = 0x03
	ErrCodeInvalidPattern  ErrorCode = 0x04
	ErrCodeDeviceBusy      ErrorCode = 0x05
	ErrCodeLowBattery      ErrorCode = 0x06
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeInvalidMessage:
		return "INVALID_MESSAGE"
	case ErrCodeQueueFull:
		return "QUEUE_FULL"
	case ErrCodeInvalidActuator:
		return "INVALID_ACTUATOR"
	case ErrCodeInvalidPattern:
		return "INVALID_PATTERN"
	case ErrCodeDeviceBusy:
		return "DEVICE_BUSY"
	case ErrCodeLowBattery:
		return "LOW_BATTERY"
	default:
		return fmt.Sprintf("ErrorCode(0x%02x)", uint8(c))
	}
}

// Valid reports whether c is a defined error code.
func (c ErrorCode) Valid() bool {
	return c >= ErrCodeInvalidMessage && c <= ErrCodeLowBattery
}

// ParseErrorCode validates a wire byte.
func ParseErrorCode(b byte) (ErrorCode, error) {
	c := ErrorCode(b)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnknownErrorCode, b)
	}
	return c, nil
}
